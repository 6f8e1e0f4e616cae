package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sgacad/sgacad-api/internal/models"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	CodeExists(ctx context.Context, code, excludeID string) (bool, error)
	CountActive(ctx context.Context, id string) (int, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) error
	Roster(ctx context.Context, id string) ([]models.SectionRosterEntry, error)
}

type sectionDisciplineRepository interface {
	FindByID(ctx context.Context, id string) (*models.Discipline, error)
}

type sectionProfessorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Professor, error)
}

// SectionService manages section offerings and their seat capacity.
type SectionService struct {
	repo        sectionRepository
	disciplines sectionDisciplineRepository
	professors  sectionProfessorRepository
	catalog     catalogInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSectionService constructs a SectionService instance.
func NewSectionService(repo sectionRepository, disciplines sectionDisciplineRepository, professors sectionProfessorRepository, catalog catalogInvalidator, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SectionService{repo: repo, disciplines: disciplines, professors: professors, catalog: catalog, validator: validate, logger: logger}
}

// List returns sections with joined catalog data and live seat counts.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	sections, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, nil
}

// Get returns a single section with catalog and seat data.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}
	return section, nil
}

// Create opens a new section. The section code is derived from day and shift
// and must be unique.
func (s *SectionService) Create(ctx context.Context, req models.CreateSectionRequest) (*models.SectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	if _, err := s.disciplines.FindByID(ctx, req.DisciplineID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch discipline")
	}
	if _, err := s.professors.FindByID(ctx, req.ProfessorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch professor")
	}

	code := fmt.Sprintf("%d%d", req.Day, req.Shift)
	taken, err := s.repo.CodeExists(ctx, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a section with code %s already exists", code))
	}

	section := &models.Section{
		ID:           uuid.NewString(),
		Code:         code,
		DisciplineID: req.DisciplineID,
		ProfessorID:  req.ProfessorID,
		Seats:        req.Seats,
		Day:          req.Day,
		Shift:        req.Shift,
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}

	s.logger.Info("section created", zap.String("section_id", section.ID), zap.String("code", code))
	if s.catalog != nil {
		s.catalog.InvalidateSections(ctx)
	}

	return s.Get(ctx, section.ID)
}

// Update modifies a section. Seats cannot drop below the current ACTIVE
// enrollment count.
func (s *SectionService) Update(ctx context.Context, id string, req models.UpdateSectionRequest) (*models.SectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}

	if req.ProfessorID != "" {
		if _, err := s.professors.FindByID(ctx, req.ProfessorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch professor")
		}
		section.ProfessorID = req.ProfessorID
	}

	if req.Seats != nil {
		active, err := s.repo.CountActive(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
		}
		if *req.Seats < active {
			return nil, appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("cannot reduce seats to %d: section has %d active enrollments", *req.Seats, active))
		}
		section.Seats = *req.Seats
	}

	if req.Day != nil {
		section.Day = *req.Day
	}
	if req.Shift != nil {
		section.Shift = *req.Shift
	}
	if req.Day != nil || req.Shift != nil {
		code := fmt.Sprintf("%d%d", section.Day, section.Shift)
		if code != section.Code {
			taken, err := s.repo.CodeExists(ctx, code, id)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section code")
			}
			if taken {
				return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a section with code %s already exists", code))
			}
			section.Code = code
		}
	}

	if err := s.repo.Update(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}

	s.logger.Info("section updated", zap.String("section_id", id))
	if s.catalog != nil {
		s.catalog.InvalidateSections(ctx)
	}

	return s.Get(ctx, id)
}

// Delete removes a section that has no ACTIVE enrollments.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}

	active, err := s.repo.CountActive(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if active > 0 {
		return appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("cannot delete section with %d active enrollments", active))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}

	s.logger.Info("section deleted", zap.String("section_id", id))
	if s.catalog != nil {
		s.catalog.InvalidateSections(ctx)
	}
	return nil
}

// Roster returns the section's enrollment roster. Admins always have access;
// professors only for their own sections.
func (s *SectionService) Roster(ctx context.Context, claims *models.JWTClaims, id string) ([]models.SectionRosterEntry, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}

	if !claims.HasRole(models.RoleAdmin) && claims.UserID != section.ProfessorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins or the section's professor can view the roster")
	}

	roster, err := s.repo.Roster(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}
