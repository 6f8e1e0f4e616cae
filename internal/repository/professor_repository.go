package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sgacad/sgacad-api/internal/models"
)

// ProfessorRepository handles persistence of professor records.
type ProfessorRepository struct {
	db *sqlx.DB
}

// NewProfessorRepository constructs the repository.
func NewProfessorRepository(db *sqlx.DB) *ProfessorRepository {
	return &ProfessorRepository{db: db}
}

// List returns professors joined with their user display fields.
func (r *ProfessorRepository) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, error) {
	query := `SELECT p.id, p.siape, u.name, u.email FROM professors p INNER JOIN users u ON u.id = p.id`
	var args []interface{}
	if filter.Search != "" {
		query += ` WHERE (u.name ILIKE $1 OR u.email ILIKE $1 OR p.siape ILIKE $1)`
		args = append(args, "%"+filter.Search+"%")
	}
	query += " ORDER BY u.name ASC"

	var professors []models.Professor
	if err := r.db.SelectContext(ctx, &professors, query, args...); err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}
	return professors, nil
}

// FindByID returns a professor by id.
func (r *ProfessorRepository) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	const query = `SELECT p.id, p.siape, u.name, u.email FROM professors p INNER JOIN users u ON u.id = p.id WHERE p.id = $1`
	var professor models.Professor
	if err := r.db.GetContext(ctx, &professor, query, id); err != nil {
		return nil, err
	}
	return &professor, nil
}

// SIAPEExists reports whether the SIAPE is taken by another professor.
func (r *ProfessorRepository) SIAPEExists(ctx context.Context, siape, excludeID string) (bool, error) {
	query := "SELECT 1 FROM professors WHERE siape = $1"
	args := []interface{}{siape}
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
		return false, fmt.Errorf("check siape: %w", err)
	}
	return true, nil
}

// Update persists mutable professor fields across professors and users tables.
func (r *ProfessorRepository) Update(ctx context.Context, id string, req models.UpdateProfessorRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin professor update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if req.SIAPE != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE professors SET siape = $2 WHERE id = $1`, id, req.SIAPE); err != nil {
			return fmt.Errorf("update professor siape: %w", err)
		}
	}
	if req.Name != "" || req.Email != "" {
		const query = `UPDATE users SET name = COALESCE(NULLIF($2, ''), name),
            email = COALESCE(NULLIF($3, ''), email), updated_at = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, req.Name, req.Email, time.Now().UTC()); err != nil {
			return fmt.Errorf("update professor user: %w", err)
		}
	}
	return tx.Commit()
}

// Delete removes the professor row; the user record itself is kept.
func (r *ProfessorRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM professors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete professor: %w", err)
	}
	return nil
}

// HasSections reports whether the professor still teaches any section.
// Deletion is refused while this is true.
func (r *ProfessorRepository) HasSections(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM sections WHERE professor_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check professor sections: %w", err)
	}
	return true, nil
}
