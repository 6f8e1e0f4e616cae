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

func newSectionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sectionDetailRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "code", "discipline_id", "professor_id", "seats", "day", "shift", "created_at", "updated_at",
		"discipline_code", "discipline_name", "discipline_credits",
		"professor_name", "professor_siape", "enrolled_count", "available_seats",
	}).AddRow("sec-1", "21", "dis-1", "prof-1", 30, 2, 1, now, now,
		"MAT101", "Calculus I", 4, "Bruno Lima", "1234567", 12, 18)
}

func TestSectionRepositoryListComputesSeats(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM sections s .+ GROUP BY .+ ORDER BY d\\.name ASC, s\\.day ASC, s\\.shift ASC").
		WillReturnRows(sectionDetailRows())

	sections, err := repo.List(context.Background(), models.SectionFilter{})
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, 12, sections[0].EnrolledCount)
	require.Equal(t, 18, sections[0].AvailableSeats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListOnlyAvailableAddsHaving(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM sections s .+ HAVING \\(s\\.seats - COUNT\\(e\\.id\\)\\) > 0 ORDER BY").
		WillReturnRows(sectionDetailRows())

	sections, err := repo.List(context.Background(), models.SectionFilter{OnlyAvailable: true})
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM sections s .+ WHERE s\\.id = \\$1 GROUP BY").
		WithArgs("sec-1").
		WillReturnRows(sectionDetailRows())

	detail, err := repo.FindDetailByID(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, "21", detail.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCodeExists(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM sections WHERE code = $1 LIMIT 1")).
		WithArgs("21").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.CodeExists(context.Background(), "21", "")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM sections WHERE code = $1 AND id <> $2 LIMIT 1")).
		WithArgs("21", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.CodeExists(context.Background(), "21", "sec-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCountActive(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2")).
		WithArgs("sec-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	count, err := repo.CountActive(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, 25, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCreateDerivesCode(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sections")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	section := &models.Section{DisciplineID: "dis-1", ProfessorID: "prof-1", Seats: 30, Day: 5, Shift: 3}
	require.NoError(t, repo.Create(context.Background(), section))
	require.Equal(t, "53", section.Code)
	require.NotEmpty(t, section.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryRoster(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{
		"enrollment_id", "enrolled_at", "enrollment_status",
		"student_id", "ra", "student_name", "student_email",
	}).AddRow("enr-1", time.Now(), models.EnrollmentStatusActive, "stu-1", "20260001", "Ana Souza", "ana@example.com")

	mock.ExpectQuery("SELECT .+ FROM enrollments e .+ WHERE e\\.section_id = \\$1 .*ORDER BY u\\.name ASC").
		WithArgs("sec-1").
		WillReturnRows(rows)

	roster, err := repo.Roster(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, "20260001", roster[0].RA)
	require.NoError(t, mock.ExpectationsWereMet())
}
