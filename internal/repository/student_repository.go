package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sgacad/sgacad-api/internal/models"
)

// StudentRepository handles persistence of student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students joined with their user display fields.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	query := `SELECT s.id, s.ra, u.name, u.email FROM students s INNER JOIN users u ON u.id = s.id`
	var args []interface{}
	if filter.Search != "" {
		query += ` WHERE (u.name ILIKE $1 OR u.email ILIKE $1 OR s.ra ILIKE $1)`
		args = append(args, "%"+filter.Search+"%")
	}
	query += " ORDER BY u.name ASC"

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID returns a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT s.id, s.ra, u.name, u.email FROM students s INNER JOIN users u ON u.id = s.id WHERE s.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// RAExists reports whether the registration number is taken by another student.
func (r *StudentRepository) RAExists(ctx context.Context, ra, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE ra = $1"
	args := []interface{}{ra}
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
		return false, fmt.Errorf("check ra: %w", err)
	}
	return true, nil
}

// Update persists mutable student fields across the students and users tables.
func (r *StudentRepository) Update(ctx context.Context, id string, req models.UpdateStudentRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if req.RA != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE students SET ra = $2 WHERE id = $1`, id, req.RA); err != nil {
			return fmt.Errorf("update student ra: %w", err)
		}
	}
	if req.Name != "" || req.Email != "" {
		const query = `UPDATE users SET name = COALESCE(NULLIF($2, ''), name),
            email = COALESCE(NULLIF($3, ''), email), updated_at = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, req.Name, req.Email, time.Now().UTC()); err != nil {
			return fmt.Errorf("update student user: %w", err)
		}
	}
	return tx.Commit()
}

// Delete removes the student row; the user record itself is kept.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// HasActiveEnrollments reports whether the student currently holds any ACTIVE
// enrollment. Deletion is refused while this is true.
func (r *StudentRepository) HasActiveEnrollments(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND status = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id, models.EnrollmentStatusActive); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student enrollments: %w", err)
	}
	return true, nil
}
