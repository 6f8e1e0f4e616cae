package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sgacad/sgacad-api/internal/models"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
)

type professorRepository interface {
	List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, error)
	FindByID(ctx context.Context, id string) (*models.Professor, error)
	SIAPEExists(ctx context.Context, siape, excludeID string) (bool, error)
	Update(ctx context.Context, id string, req models.UpdateProfessorRequest) error
	Delete(ctx context.Context, id string) error
	HasSections(ctx context.Context, id string) (bool, error)
}

// ProfessorService manages professor records.
type ProfessorService struct {
	repo      professorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfessorService constructs a ProfessorService instance.
func NewProfessorService(repo professorRepository, validate *validator.Validate, logger *zap.Logger) *ProfessorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfessorService{repo: repo, validator: validate, logger: logger}
}

// List returns professors matching the filter.
func (s *ProfessorService) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, error) {
	professors, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list professors")
	}
	return professors, nil
}

// Get returns a professor by id.
func (s *ProfessorService) Get(ctx context.Context, id string) (*models.Professor, error) {
	professor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch professor")
	}
	return professor, nil
}

// Update modifies a professor record keeping the SIAPE unique.
func (s *ProfessorService) Update(ctx context.Context, id string, req models.UpdateProfessorRequest) (*models.Professor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid professor payload")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch professor")
	}

	if req.SIAPE != "" {
		taken, err := s.repo.SIAPEExists(ctx, req.SIAPE, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check siape")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "siape already in use")
		}
	}

	if err := s.repo.Update(ctx, id, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update professor")
	}

	s.logger.Info("professor updated", zap.String("professor_id", id))
	return s.repo.FindByID(ctx, id)
}

// Delete removes a professor that is not assigned to any section.
func (s *ProfessorService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch professor")
	}

	assigned, err := s.repo.HasSections(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check sections")
	}
	if assigned {
		return appErrors.Clone(appErrors.ErrConflict, "professor is assigned to sections")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete professor")
	}

	s.logger.Info("professor deleted", zap.String("professor_id", id))
	return nil
}
