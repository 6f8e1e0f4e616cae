package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgacad/sgacad-api/internal/models"
)

// SectionRepository handles persistence of class sections ("turmas").
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionDetailColumns = `s.id, s.code, s.discipline_id, s.professor_id, s.seats, s.day, s.shift, s.created_at, s.updated_at,
        d.code AS discipline_code, d.name AS discipline_name, d.credits AS discipline_credits,
        u.name AS professor_name, p.siape AS professor_siape,
        COUNT(e.id) AS enrolled_count, (s.seats - COUNT(e.id)) AS available_seats`

const sectionDetailJoins = `FROM sections s
        INNER JOIN disciplines d ON d.id = s.discipline_id
        INNER JOIN professors p ON p.id = s.professor_id
        INNER JOIN users u ON u.id = p.id
        LEFT JOIN enrollments e ON e.section_id = s.id AND e.status = 'ACTIVE'`

const sectionDetailGroup = `GROUP BY s.id, s.code, s.discipline_id, s.professor_id, s.seats, s.day, s.shift, s.created_at, s.updated_at,
        d.code, d.name, d.credits, u.name, p.siape`

// List returns sections with live seat accounting, ordered by discipline
// name, day and shift.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.DisciplineID != "" {
		conditions = append(conditions, fmt.Sprintf("s.discipline_id = $%d", len(args)+1))
		args = append(args, filter.DisciplineID)
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("s.professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.Day != nil {
		conditions = append(conditions, fmt.Sprintf("s.day = $%d", len(args)+1))
		args = append(args, *filter.Day)
	}
	if filter.Shift != nil {
		conditions = append(conditions, fmt.Sprintf("s.shift = $%d", len(args)+1))
		args = append(args, *filter.Shift)
	}

	query := fmt.Sprintf("SELECT %s %s", sectionDetailColumns, sectionDetailJoins)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " " + sectionDetailGroup
	if filter.OnlyAvailable {
		query += " HAVING (s.seats - COUNT(e.id)) > 0"
	}
	query += " ORDER BY d.name ASC, s.day ASC, s.shift ASC"

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindByID returns a section by id without joins.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, code, discipline_id, professor_id, seats, day, shift, created_at, updated_at FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID returns the joined view with live seat accounting.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1 %s", sectionDetailColumns, sectionDetailJoins, sectionDetailGroup)
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CodeExists reports whether the day+shift code is taken by another section.
func (r *SectionRepository) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM sections WHERE code = $1"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check section code: %w", err)
	}
	return true, nil
}

// CountActive returns the current number of ACTIVE enrollments for the
// section. Always a live read; callers must not cache the result across
// admission decisions.
func (r *SectionRepository) CountActive(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// Create persists a new section.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	section.Code = fmt.Sprintf("%d%d", section.Day, section.Shift)

	const query = `INSERT INTO sections (id, code, discipline_id, professor_id, seats, day, shift, created_at, updated_at)
        VALUES (:id, :code, :discipline_id, :professor_id, :seats, :day, :shift, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update persists the full section row; callers resolve partial payloads
// against the current state first.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	section.Code = fmt.Sprintf("%d%d", section.Day, section.Shift)
	const query = `UPDATE sections SET code = :code, professor_id = :professor_id, seats = :seats,
        day = :day, shift = :shift, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Delete removes the section.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// Roster returns every enrollment row for the section with student display
// fields, ordered by student name.
func (r *SectionRepository) Roster(ctx context.Context, id string) ([]models.SectionRosterEntry, error) {
	const query = `SELECT e.id AS enrollment_id, e.enrolled_at, e.status AS enrollment_status,
        st.id AS student_id, st.ra, u.name AS student_name, u.email AS student_email
        FROM enrollments e
        INNER JOIN students st ON st.id = e.student_id
        INNER JOIN users u ON u.id = st.id
        WHERE e.section_id = $1
        ORDER BY u.name ASC`
	var roster []models.SectionRosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, id); err != nil {
		return nil, fmt.Errorf("load section roster: %w", err)
	}
	return roster, nil
}
