package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sgacad/sgacad-api/internal/models"
	"github.com/sgacad/sgacad-api/internal/repository"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Enroll(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	AvailableSections(ctx context.Context, studentID string) ([]models.AvailableSection, error)
}

type enrollmentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type catalogInvalidator interface {
	InvalidateSections(ctx context.Context)
}

// EnrollmentService enforces the admission rules for section enrollment.
type EnrollmentService struct {
	repo     enrollmentRepository
	students enrollmentStudentRepository
	audit    enrollmentAuditRepository
	catalog  catalogInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentRepository, audit enrollmentAuditRepository, catalog catalogInvalidator, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, audit: audit, catalog: catalog, metrics: metrics, logger: logger}
}

func (s *EnrollmentService) recordDecision(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordEnrollmentDecision(outcome)
	}
}

// Enroll admits a student into a section. Admission is decided inside a
// single database transaction that locks the section row, so concurrent
// requests against the last seat cannot both succeed.
func (s *EnrollmentService) Enroll(ctx context.Context, claims *models.JWTClaims, studentID, sectionID string) (*models.EnrollmentDetail, error) {
	if !claims.HasRole(models.RoleAdmin) {
		if !claims.HasRole(models.RoleStudent) || claims.UserID != studentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only enroll themselves")
		}
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	enrollment, err := s.repo.Enroll(ctx, studentID, sectionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSectionNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		case errors.Is(err, repository.ErrAlreadyEnrolled):
			s.recordDecision("duplicate")
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active enrollment in this section")
		case errors.Is(err, repository.ErrSectionFull):
			s.recordDecision("full")
			return nil, appErrors.Clone(appErrors.ErrConflict, "section has no available seats")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
		}
	}
	s.recordDecision("admitted")

	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", studentID),
		zap.String("section_id", sectionID))

	s.recordAudit(ctx, claims, models.AuditActionEnrollmentCreate, enrollment.ID,
		fmt.Sprintf(`{"student_id":%q,"section_id":%q}`, studentID, sectionID))
	if s.catalog != nil {
		s.catalog.InvalidateSections(ctx)
	}

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Cancel marks an ACTIVE enrollment as CANCELLED. Only admins and the
// enrollment's own student may cancel; a second cancel is rejected.
func (s *EnrollmentService) Cancel(ctx context.Context, claims *models.JWTClaims, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch enrollment")
	}

	if !claims.HasRole(models.RoleAdmin) && claims.UserID != enrollment.StudentID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the enrolled student or an admin can cancel")
	}

	if enrollment.Status != models.EnrollmentStatusActive {
		return appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("enrollment is %s and cannot be cancelled", enrollment.Status))
	}

	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusCancelled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}
	s.recordDecision("cancelled")

	s.logger.Info("enrollment cancelled",
		zap.String("enrollment_id", id),
		zap.String("student_id", enrollment.StudentID))

	s.recordAudit(ctx, claims, models.AuditActionEnrollmentCancel, id,
		fmt.Sprintf(`{"status":%q}`, models.EnrollmentStatusCancelled))
	if s.catalog != nil {
		s.catalog.InvalidateSections(ctx)
	}

	return nil
}

// List returns enrollments matching the filter. Non-admin callers are
// restricted to their own records.
func (s *EnrollmentService) List(ctx context.Context, claims *models.JWTClaims, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	if !claims.HasRole(models.RoleAdmin) {
		filter.StudentID = claims.UserID
	}

	enrollments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// Get returns a single enrollment with joined section and student data.
func (s *EnrollmentService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch enrollment")
	}

	if !claims.HasRole(models.RoleAdmin) && claims.UserID != detail.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}
	return detail, nil
}

// ListByStudent returns all enrollments of a student, any status.
func (s *EnrollmentService) ListByStudent(ctx context.Context, claims *models.JWTClaims, studentID string) ([]models.EnrollmentDetail, error) {
	if !claims.HasRole(models.RoleAdmin) && claims.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// AvailableSections lists sections with remaining seats that the student
// is not actively enrolled in.
func (s *EnrollmentService) AvailableSections(ctx context.Context, claims *models.JWTClaims, studentID string) ([]models.AvailableSection, error) {
	if !claims.HasRole(models.RoleAdmin) && claims.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	sections, err := s.repo.AvailableSections(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available sections")
	}
	return sections, nil
}

func (s *EnrollmentService) recordAudit(ctx context.Context, claims *models.JWTClaims, action, resourceID, payload string) {
	if s.audit == nil {
		return
	}
	userID := claims.UserID
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "enrollments",
		ResourceID: &resourceID,
		NewValues:  []byte(payload),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record enrollment audit log", zap.Error(err))
	}
}
