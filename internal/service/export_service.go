package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sgacad/sgacad-api/internal/models"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
	"github.com/sgacad/sgacad-api/pkg/export"
)

// ExportFormat identifies a roster export rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries a rendered export payload.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type rosterProvider interface {
	Roster(ctx context.Context, claims *models.JWTClaims, sectionID string) ([]models.SectionRosterEntry, error)
	Get(ctx context.Context, sectionID string) (*models.SectionDetail, error)
}

// ExportConfig tunes export behaviour. Timezone names the IANA zone used
// to render enrollment timestamps; unknown or empty values fall back to UTC.
type ExportConfig struct {
	Enabled  bool
	MaxRows  int
	Timezone string
}

// ExportService renders section rosters as downloadable files.
type ExportService struct {
	sections rosterProvider
	location *time.Location
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(sections rosterProvider, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10000
	}
	location := time.UTC
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			logger.Warn("unknown export timezone, falling back to UTC", zap.String("timezone", cfg.Timezone))
		} else {
			location = loc
		}
	}
	return &ExportService{sections: sections, location: location, logger: logger, cfg: cfg}
}

// Roster renders a section roster in the requested format. Access control is
// delegated to the section service (admin or the section's professor).
func (s *ExportService) Roster(ctx context.Context, claims *models.JWTClaims, sectionID string, format ExportFormat) (*ExportResult, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	detail, err := s.sections.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	roster, err := s.sections.Roster(ctx, claims, sectionID)
	if err != nil {
		return nil, err
	}
	if len(roster) > s.cfg.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("roster exceeds export limit of %d rows", s.cfg.MaxRows))
	}

	table := export.Table{
		Headers: []string{"RA", "Name", "Email", "Status", "Enrolled At"},
		Rows:    make([][]string, 0, len(roster)),
	}
	for _, entry := range roster {
		table.Rows = append(table.Rows, []string{
			entry.RA,
			entry.StudentName,
			entry.StudentEmail,
			string(entry.EnrollmentStatus),
			entry.EnrolledAt.In(s.location).Format(time.RFC3339),
		})
	}

	title := fmt.Sprintf("Roster %s - %s", detail.DisciplineName, detail.Code)
	base := fmt.Sprintf("roster-%s-%s", strings.ToLower(detail.DisciplineCode), detail.Code)

	var result ExportResult
	switch format {
	case ExportFormatCSV:
		payload, err := export.CSV(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		result = ExportResult{Filename: base + ".csv", ContentType: "text/csv", Payload: payload}
	case ExportFormatPDF:
		payload, err := export.PDF(table, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		result = ExportResult{Filename: base + ".pdf", ContentType: "application/pdf", Payload: payload}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	s.logger.Info("roster exported",
		zap.String("section_id", sectionID),
		zap.String("format", string(format)),
		zap.Int("rows", len(table.Rows)))
	return &result, nil
}
