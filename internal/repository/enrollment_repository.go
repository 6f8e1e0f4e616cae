package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgacad/sgacad-api/internal/models"
)

// Admission outcomes surfaced by Enroll. The service layer translates these
// into the user-facing error taxonomy.
var (
	ErrSectionNotFound = errors.New("section not found")
	ErrAlreadyEnrolled = errors.New("student already has an active enrollment in section")
	ErrSectionFull     = errors.New("section has no available seats")
)

// EnrollmentRepository handles persistence of enrollments ("matrículas").
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `e.id, e.student_id, e.section_id, e.enrolled_at, e.status,
        st.ra, us.name AS student_name,
        s.code AS section_code, s.day, s.shift,
        d.code AS discipline_code, d.name AS discipline_name, d.credits AS discipline_credits,
        up.name AS professor_name`

const enrollmentDetailJoins = `FROM enrollments e
        INNER JOIN students st ON st.id = e.student_id
        INNER JOIN users us ON us.id = st.id
        INNER JOIN sections s ON s.id = e.section_id
        INNER JOIN disciplines d ON d.id = s.discipline_id
        INNER JOIN professors p ON p.id = s.professor_id
        INNER JOIN users up ON up.id = p.id`

// List returns joined enrollment views filtered by the provided criteria,
// newest first.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.DisciplineID != "" {
		conditions = append(conditions, fmt.Sprintf("s.discipline_id = $%d", len(args)+1))
		args = append(args, filter.DisciplineID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	query := fmt.Sprintf("SELECT %s %s", enrollmentDetailColumns, enrollmentDetailJoins)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.enrolled_at DESC"

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID returns an enrollment by its id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, enrolled_at, status FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns the joined view for one enrollment.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.id = $1", enrollmentDetailColumns, enrollmentDetailJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Enroll performs the admission decision and the insert atomically. The
// section row is locked for the duration of the transaction, so two
// concurrent requests against the last open seat serialize and exactly one
// succeeds. Returns ErrSectionNotFound, ErrAlreadyEnrolled or ErrSectionFull
// on admission failure; the store is left unchanged in every failure case.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var seats int
	err = tx.GetContext(ctx, &seats, `SELECT seats FROM sections WHERE id = $1 FOR UPDATE`, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSectionNotFound
		}
		return nil, fmt.Errorf("lock section: %w", err)
	}

	var exists int
	err = tx.GetContext(ctx, &exists,
		`SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status = $3 LIMIT 1`,
		studentID, sectionID, models.EnrollmentStatusActive)
	if err == nil {
		return nil, ErrAlreadyEnrolled
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("check existing enrollment: %w", err)
	}

	var active int
	err = tx.GetContext(ctx, &active,
		`SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2`,
		sectionID, models.EnrollmentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("count active enrollments: %w", err)
	}
	if active >= seats {
		return nil, ErrSectionFull
	}

	enrollment := &models.Enrollment{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		SectionID:  sectionID,
		EnrolledAt: time.Now().UTC(),
		Status:     models.EnrollmentStatusActive,
	}
	const insert = `INSERT INTO enrollments (id, student_id, section_id, enrolled_at, status)
        VALUES (:id, :student_id, :section_id, :enrolled_at, :status)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment tx: %w", err)
	}
	return enrollment, nil
}

// UpdateStatus transitions the enrollment status in place.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// ListByStudent returns the joined enrollment views for one student,
// newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return r.List(ctx, models.EnrollmentFilter{StudentID: studentID})
}

// AvailableSections returns every section with remaining seats where the
// student holds no ACTIVE enrollment, ordered by discipline name, day, shift.
// Seat arithmetic is computed live from the enrollments table on every call.
func (r *EnrollmentRepository) AvailableSections(ctx context.Context, studentID string) ([]models.AvailableSection, error) {
	const query = `SELECT s.id, s.code, s.seats, s.day, s.shift,
        d.code AS discipline_code, d.name AS discipline_name, d.credits AS discipline_credits,
        up.name AS professor_name,
        COUNT(m.id) AS enrolled_count, (s.seats - COUNT(m.id)) AS available_seats
        FROM sections s
        INNER JOIN disciplines d ON d.id = s.discipline_id
        INNER JOIN professors p ON p.id = s.professor_id
        INNER JOIN users up ON up.id = p.id
        LEFT JOIN enrollments m ON m.section_id = s.id AND m.status = 'ACTIVE'
        WHERE s.id NOT IN (
            SELECT e.section_id FROM enrollments e WHERE e.student_id = $1 AND e.status = 'ACTIVE'
        )
        GROUP BY s.id, s.code, s.seats, s.day, s.shift, d.code, d.name, d.credits, up.name
        HAVING (s.seats - COUNT(m.id)) > 0
        ORDER BY d.name ASC, s.day ASC, s.shift ASC`
	var sections []models.AvailableSection
	if err := r.db.SelectContext(ctx, &sections, query, studentID); err != nil {
		return nil, fmt.Errorf("list available sections: %w", err)
	}
	return sections, nil
}
