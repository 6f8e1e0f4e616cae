package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sgacad/sgacad-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "section_id", "enrolled_at", "status"}).
		AddRow("enr-1", "stu-1", "sec-1", time.Now(), models.EnrollmentStatusActive)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, section_id, enrolled_at, status FROM enrollments WHERE id = $1")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByID(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Equal(t, "stu-1", enrollment.StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollAdmits(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT seats FROM sections WHERE id = $1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"seats"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status = $3 LIMIT 1")).
		WithArgs("stu-1", "sec-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2")).
		WithArgs("sec-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment, err := repo.Enroll(context.Background(), "stu-1", "sec-1")
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollSectionMissing(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT seats FROM sections WHERE id = $1 FOR UPDATE")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"seats"}))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "stu-1", "ghost")
	require.ErrorIs(t, err, ErrSectionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollDuplicateActive(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT seats FROM sections WHERE id = $1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"seats"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status = $3 LIMIT 1")).
		WithArgs("stu-1", "sec-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "stu-1", "sec-1")
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollFullSectionRollsBack(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT seats FROM sections WHERE id = $1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"seats"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status = $3 LIMIT 1")).
		WithArgs("stu-1", "sec-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2")).
		WithArgs("sec-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "stu-1", "sec-1")
	require.ErrorIs(t, err, ErrSectionFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2 WHERE id = $1")).
		WithArgs("enr-1", models.EnrollmentStatusCancelled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusCancelled))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "student_id", "section_id", "enrolled_at", "status",
		"ra", "student_name", "section_code", "day", "shift",
		"discipline_code", "discipline_name", "discipline_credits", "professor_name",
	}).AddRow("enr-1", "stu-1", "sec-1", time.Now(), models.EnrollmentStatusActive,
		"20260001", "Ana Souza", "21", 2, 1, "MAT101", "Calculus I", 4, "Bruno Lima")

	mock.ExpectQuery("SELECT .+ FROM enrollments e .+ WHERE e\\.student_id = \\$1 AND e\\.status = \\$2 ORDER BY e\\.enrolled_at DESC").
		WithArgs("stu-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	enrollments, err := repo.List(context.Background(), models.EnrollmentFilter{
		StudentID: "stu-1",
		Status:    models.EnrollmentStatusActive,
	})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, "MAT101", enrollments[0].DisciplineCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAvailableSections(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "code", "seats", "day", "shift",
		"discipline_code", "discipline_name", "discipline_credits",
		"professor_name", "enrolled_count", "available_seats",
	}).AddRow("sec-1", "21", 30, 2, 1, "MAT101", "Calculus I", 4, "Bruno Lima", 12, 18)

	mock.ExpectQuery("SELECT .+ FROM sections s .+ HAVING .+ ORDER BY d\\.name ASC, s\\.day ASC, s\\.shift ASC").
		WithArgs("stu-1").
		WillReturnRows(rows)

	sections, err := repo.AvailableSections(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, 18, sections[0].AvailableSeats)
	require.NoError(t, mock.ExpectationsWereMet())
}
