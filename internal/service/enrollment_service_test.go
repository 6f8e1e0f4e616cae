package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sgacad/sgacad-api/internal/models"
	"github.com/sgacad/sgacad-api/internal/repository"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
)

// fakeEnrollmentRepo replicates the transactional admission check in memory:
// the mutex plays the role of the row lock.
type fakeEnrollmentRepo struct {
	mu          sync.Mutex
	seats       map[string]int
	enrollments map[string]models.Enrollment
	nextID      int
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{
		seats:       make(map[string]int),
		enrollments: make(map[string]models.Enrollment),
	}
}

func (f *fakeEnrollmentRepo) Enroll(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seats, ok := f.seats[sectionID]
	if !ok {
		return nil, repository.ErrSectionNotFound
	}

	active := 0
	for _, e := range f.enrollments {
		if e.SectionID != sectionID || e.Status != models.EnrollmentStatusActive {
			continue
		}
		if e.StudentID == studentID {
			return nil, repository.ErrAlreadyEnrolled
		}
		active++
	}
	if active >= seats {
		return nil, repository.ErrSectionFull
	}

	f.nextID++
	enrollment := models.Enrollment{
		ID:         fmt.Sprintf("e%d", f.nextID),
		StudentID:  studentID,
		SectionID:  sectionID,
		EnrolledAt: time.Now().UTC(),
		Status:     models.EnrollmentStatusActive,
	}
	f.enrollments[enrollment.ID] = enrollment
	return &enrollment, nil
}

func (f *fakeEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.EnrollmentDetail
	for _, e := range f.enrollments {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.SectionID != "" && e.SectionID != filter.SectionID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		list = append(list, models.EnrollmentDetail{Enrollment: e})
	}
	return list, nil
}

func (f *fakeEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	f.enrollments[id] = e
	return nil
}

func (f *fakeEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return f.List(ctx, models.EnrollmentFilter{StudentID: studentID})
}

func (f *fakeEnrollmentRepo) AvailableSections(ctx context.Context, studentID string) ([]models.AvailableSection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.AvailableSection
	for sectionID, seats := range f.seats {
		active := 0
		enrolled := false
		for _, e := range f.enrollments {
			if e.SectionID != sectionID || e.Status != models.EnrollmentStatusActive {
				continue
			}
			active++
			if e.StudentID == studentID {
				enrolled = true
			}
		}
		if enrolled || seats-active <= 0 {
			continue
		}
		list = append(list, models.AvailableSection{ID: sectionID, Seats: seats, EnrolledCount: active, AvailableSeats: seats - active})
	}
	return list, nil
}

func (f *fakeEnrollmentRepo) activeCount(sectionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == models.EnrollmentStatusActive {
			count++
		}
	}
	return count
}

type fakeStudentReader struct {
	students map[string]*models.Student
}

func (f *fakeStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fakeAuditRecorder struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (f *fakeAuditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *log)
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Roles: []models.UserRole{models.RoleAdmin}}
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Roles: []models.UserRole{models.RoleStudent}}
}

func newEnrollmentFixture(seats int, studentIDs ...string) (*EnrollmentService, *fakeEnrollmentRepo, *fakeAuditRecorder) {
	repo := newFakeEnrollmentRepo()
	repo.seats["sec-1"] = seats
	students := &fakeStudentReader{students: make(map[string]*models.Student)}
	for _, id := range studentIDs {
		students.students[id] = &models.Student{ID: id, RA: "RA-" + id, Name: "Student " + id}
	}
	audit := &fakeAuditRecorder{}
	svc := NewEnrollmentService(repo, students, audit, nil, nil, zap.NewNop())
	return svc, repo, audit
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	svc, repo, audit := newEnrollmentFixture(2, "s1")

	detail, err := svc.Enroll(context.Background(), studentClaims("s1"), "s1", "sec-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, detail.Status)
	assert.Equal(t, 1, repo.activeCount("sec-1"))
	assert.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionEnrollmentCreate, audit.logs[0].Action)
}

func TestEnrollmentServiceEnrollStudentNotFound(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(2)

	_, err := svc.Enroll(context.Background(), adminClaims(), "ghost", "sec-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, 404, appErr.Status)
}

func TestEnrollmentServiceEnrollSectionNotFound(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(2, "s1")

	_, err := svc.Enroll(context.Background(), studentClaims("s1"), "s1", "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollmentServiceEnrollDuplicate(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(5, "s1")

	_, err := svc.Enroll(context.Background(), studentClaims("s1"), "s1", "sec-1")
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), studentClaims("s1"), "s1", "sec-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)
}

func TestEnrollmentServiceEnrollSectionFull(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(1, "s1", "s2")

	_, err := svc.Enroll(context.Background(), studentClaims("s1"), "s1", "sec-1")
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), studentClaims("s2"), "s2", "sec-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)
}

func TestEnrollmentServiceEnrollForbiddenForOtherStudent(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(2, "s1", "s2")

	_, err := svc.Enroll(context.Background(), studentClaims("s1"), "s2", "sec-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestEnrollmentServiceCancelFreesSeat(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(1, "s1", "s2")

	detail, err := svc.Enroll(context.Background(), studentClaims("s1"), "s1", "sec-1")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), studentClaims("s1"), detail.ID))
	assert.Equal(t, 0, repo.activeCount("sec-1"))

	// The freed seat is immediately available to another student.
	_, err = svc.Enroll(context.Background(), studentClaims("s2"), "s2", "sec-1")
	require.NoError(t, err)
}

func TestEnrollmentServiceCancelTwiceRejected(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(1, "s1")

	detail, err := svc.Enroll(context.Background(), studentClaims("s1"), "s1", "sec-1")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), studentClaims("s1"), detail.ID))

	err = svc.Cancel(context.Background(), studentClaims("s1"), detail.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestEnrollmentServiceCancelForbiddenForOtherStudent(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(2, "s1", "s2")

	detail, err := svc.Enroll(context.Background(), studentClaims("s1"), "s1", "sec-1")
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), studentClaims("s2"), detail.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestEnrollmentServiceCancelByAdmin(t *testing.T) {
	svc, _, audit := newEnrollmentFixture(2, "s1")

	detail, err := svc.Enroll(context.Background(), studentClaims("s1"), "s1", "sec-1")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), adminClaims(), detail.ID))
	assert.Equal(t, models.AuditActionEnrollmentCancel, audit.logs[len(audit.logs)-1].Action)
}

func TestEnrollmentServiceCancelNotFound(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(2, "s1")

	err := svc.Cancel(context.Background(), adminClaims(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollmentServiceListScopesNonAdmins(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(5, "s1", "s2")

	_, err := svc.Enroll(context.Background(), studentClaims("s1"), "s1", "sec-1")
	require.NoError(t, err)
	_, err = svc.Enroll(context.Background(), studentClaims("s2"), "s2", "sec-1")
	require.NoError(t, err)

	// A student asking for everything still only sees itself.
	mine, err := svc.List(context.Background(), studentClaims("s1"), models.EnrollmentFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "s1", mine[0].StudentID)

	all, err := svc.List(context.Background(), adminClaims(), models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEnrollmentServiceAvailableSections(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(1, "s1", "s2")
	repo.seats["sec-2"] = 3

	_, err := svc.Enroll(context.Background(), studentClaims("s1"), "s1", "sec-1")
	require.NoError(t, err)

	// sec-1 is full for s2 and already held by s1.
	forS1, err := svc.AvailableSections(context.Background(), studentClaims("s1"), "s1")
	require.NoError(t, err)
	require.Len(t, forS1, 1)
	assert.Equal(t, "sec-2", forS1[0].ID)

	forS2, err := svc.AvailableSections(context.Background(), studentClaims("s2"), "s2")
	require.NoError(t, err)
	require.Len(t, forS2, 1)
	assert.Equal(t, "sec-2", forS2[0].ID)
}

func TestEnrollmentServiceConcurrentAdmission(t *testing.T) {
	const seats = 3
	const contenders = 20

	ids := make([]string, contenders)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%d", i)
	}
	svc, repo, _ := newEnrollmentFixture(seats, ids...)

	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for _, id := range ids {
		wg.Add(1)
		go func(studentID string) {
			defer wg.Done()
			_, err := svc.Enroll(context.Background(), studentClaims(studentID), studentID, "sec-1")
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	admitted := 0
	rejected := 0
	for err := range errs {
		if err == nil {
			admitted++
			continue
		}
		rejected++
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	}

	assert.Equal(t, seats, admitted)
	assert.Equal(t, contenders-seats, rejected)
	assert.Equal(t, seats, repo.activeCount("sec-1"))
}
