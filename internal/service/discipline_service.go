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

type disciplineRepository interface {
	List(ctx context.Context) ([]models.DisciplineDetail, error)
	FindByID(ctx context.Context, id string) (*models.Discipline, error)
	Prerequisites(ctx context.Context, id string) ([]models.Discipline, error)
	CodeExists(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, discipline *models.Discipline, prerequisiteIDs []string) error
	Update(ctx context.Context, id string, req models.UpdateDisciplineRequest) error
	Delete(ctx context.Context, id string) error
	InUse(ctx context.Context, id string) (bool, error)
}

// DisciplineService manages the discipline catalog and prerequisite links.
type DisciplineService struct {
	repo      disciplineRepository
	catalog   catalogInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDisciplineService constructs a DisciplineService instance.
func NewDisciplineService(repo disciplineRepository, catalog catalogInvalidator, validate *validator.Validate, logger *zap.Logger) *DisciplineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DisciplineService{repo: repo, catalog: catalog, validator: validate, logger: logger}
}

// List returns all disciplines with their prerequisites.
func (s *DisciplineService) List(ctx context.Context) ([]models.DisciplineDetail, error) {
	disciplines, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list disciplines")
	}
	return disciplines, nil
}

// Get returns one discipline with its prerequisites.
func (s *DisciplineService) Get(ctx context.Context, id string) (*models.DisciplineDetail, error) {
	discipline, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch discipline")
	}

	prerequisites, err := s.repo.Prerequisites(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}

	return &models.DisciplineDetail{Discipline: *discipline, Prerequisites: prerequisites}, nil
}

// Create adds a discipline. Prerequisite ids must reference existing
// disciplines and may not include the discipline itself.
func (s *DisciplineService) Create(ctx context.Context, req models.CreateDisciplineRequest) (*models.DisciplineDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discipline payload")
	}

	taken, err := s.repo.CodeExists(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check discipline code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a discipline with code %s already exists", req.Code))
	}

	for _, prereqID := range req.Prerequisites {
		if _, err := s.repo.FindByID(ctx, prereqID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("prerequisite discipline %s not found", prereqID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite")
		}
	}

	discipline := &models.Discipline{
		ID:      uuid.NewString(),
		Code:    req.Code,
		Name:    req.Name,
		Credits: req.Credits,
	}
	if err := s.repo.Create(ctx, discipline, req.Prerequisites); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create discipline")
	}

	s.logger.Info("discipline created", zap.String("discipline_id", discipline.ID), zap.String("code", discipline.Code))
	if s.catalog != nil {
		s.catalog.InvalidateSections(ctx)
	}

	return s.Get(ctx, discipline.ID)
}

// Update modifies a discipline. A non-nil Prerequisites slice replaces the
// whole prerequisite set.
func (s *DisciplineService) Update(ctx context.Context, id string, req models.UpdateDisciplineRequest) (*models.DisciplineDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discipline payload")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch discipline")
	}

	if req.Code != "" {
		taken, err := s.repo.CodeExists(ctx, req.Code, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check discipline code")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a discipline with code %s already exists", req.Code))
		}
	}

	if req.Prerequisites != nil {
		for _, prereqID := range *req.Prerequisites {
			if prereqID == id {
				return nil, appErrors.Clone(appErrors.ErrValidation, "a discipline cannot be its own prerequisite")
			}
			if _, err := s.repo.FindByID(ctx, prereqID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("prerequisite discipline %s not found", prereqID))
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite")
			}
		}
	}

	if err := s.repo.Update(ctx, id, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update discipline")
	}

	s.logger.Info("discipline updated", zap.String("discipline_id", id))
	if s.catalog != nil {
		s.catalog.InvalidateSections(ctx)
	}

	return s.Get(ctx, id)
}

// Delete removes a discipline that is not referenced by any section or
// prerequisite link.
func (s *DisciplineService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch discipline")
	}

	inUse, err := s.repo.InUse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check discipline references")
	}
	if inUse {
		return appErrors.Clone(appErrors.ErrConflict, "discipline is referenced by sections or prerequisites")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete discipline")
	}

	s.logger.Info("discipline deleted", zap.String("discipline_id", id))
	if s.catalog != nil {
		s.catalog.InvalidateSections(ctx)
	}
	return nil
}
