package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgacad/sgacad-api/internal/models"
)

// DisciplineRepository handles persistence of disciplines and their
// prerequisite graph.
type DisciplineRepository struct {
	db *sqlx.DB
}

// NewDisciplineRepository constructs the repository.
func NewDisciplineRepository(db *sqlx.DB) *DisciplineRepository {
	return &DisciplineRepository{db: db}
}

// List returns all disciplines with prerequisites loaded, ordered by code.
func (r *DisciplineRepository) List(ctx context.Context) ([]models.DisciplineDetail, error) {
	const query = `SELECT id, code, name, credits, created_at, updated_at FROM disciplines ORDER BY code ASC`
	var disciplines []models.Discipline
	if err := r.db.SelectContext(ctx, &disciplines, query); err != nil {
		return nil, fmt.Errorf("list disciplines: %w", err)
	}

	details := make([]models.DisciplineDetail, 0, len(disciplines))
	for _, d := range disciplines {
		prereqs, err := r.Prerequisites(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, models.DisciplineDetail{Discipline: d, Prerequisites: prereqs})
	}
	return details, nil
}

// FindByID returns a discipline by id without prerequisites.
func (r *DisciplineRepository) FindByID(ctx context.Context, id string) (*models.Discipline, error) {
	const query = `SELECT id, code, name, credits, created_at, updated_at FROM disciplines WHERE id = $1`
	var discipline models.Discipline
	if err := r.db.GetContext(ctx, &discipline, query, id); err != nil {
		return nil, err
	}
	return &discipline, nil
}

// Prerequisites returns the prerequisite disciplines ordered by code.
func (r *DisciplineRepository) Prerequisites(ctx context.Context, id string) ([]models.Discipline, error) {
	const query = `SELECT d.id, d.code, d.name, d.credits, d.created_at, d.updated_at
        FROM prerequisites pr
        INNER JOIN disciplines d ON d.id = pr.prerequisite_id
        WHERE pr.discipline_id = $1
        ORDER BY d.code ASC`
	var prereqs []models.Discipline
	if err := r.db.SelectContext(ctx, &prereqs, query, id); err != nil {
		return nil, fmt.Errorf("load prerequisites: %w", err)
	}
	if prereqs == nil {
		prereqs = []models.Discipline{}
	}
	return prereqs, nil
}

// CodeExists reports whether the code is taken by another discipline.
func (r *DisciplineRepository) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM disciplines WHERE code = $1"
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
		return false, fmt.Errorf("check discipline code: %w", err)
	}
	return true, nil
}

// Create inserts the discipline and links the prerequisites that exist.
// Unknown prerequisite ids are skipped silently.
func (r *DisciplineRepository) Create(ctx context.Context, discipline *models.Discipline, prerequisiteIDs []string) error {
	if discipline.ID == "" {
		discipline.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	discipline.CreatedAt = now
	discipline.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin discipline create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO disciplines (id, code, name, credits, created_at, updated_at)
        VALUES (:id, :code, :name, :credits, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, discipline); err != nil {
		return fmt.Errorf("insert discipline: %w", err)
	}

	if err := linkPrerequisites(ctx, tx, discipline.ID, prerequisiteIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// Update persists mutable fields. A non-nil prerequisite slice replaces the
// whole prerequisite set.
func (r *DisciplineRepository) Update(ctx context.Context, id string, req models.UpdateDisciplineRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin discipline update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	credits := 0
	if req.Credits != nil {
		credits = *req.Credits
	}
	const query = `UPDATE disciplines SET
        code = COALESCE(NULLIF($2, ''), code),
        name = COALESCE(NULLIF($3, ''), name),
        credits = CASE WHEN $4 > 0 THEN $4 ELSE credits END,
        updated_at = $5
        WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, req.Code, req.Name, credits, time.Now().UTC()); err != nil {
		return fmt.Errorf("update discipline: %w", err)
	}

	if req.Prerequisites != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM prerequisites WHERE discipline_id = $1`, id); err != nil {
			return fmt.Errorf("clear prerequisites: %w", err)
		}
		filtered := make([]string, 0, len(*req.Prerequisites))
		for _, prereqID := range *req.Prerequisites {
			if prereqID != id {
				filtered = append(filtered, prereqID)
			}
		}
		if err := linkPrerequisites(ctx, tx, id, filtered); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes the discipline.
func (r *DisciplineRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM disciplines WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete discipline: %w", err)
	}
	return nil
}

// InUse reports whether the discipline is referenced by a section or serves
// as a prerequisite of another discipline.
func (r *DisciplineRepository) InUse(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 WHERE EXISTS (SELECT 1 FROM sections WHERE discipline_id = $1)
        OR EXISTS (SELECT 1 FROM prerequisites WHERE prerequisite_id = $1)`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check discipline usage: %w", err)
	}
	return true, nil
}

func linkPrerequisites(ctx context.Context, tx *sqlx.Tx, disciplineID string, prerequisiteIDs []string) error {
	for _, prereqID := range prerequisiteIDs {
		var exists int
		err := tx.GetContext(ctx, &exists, `SELECT 1 FROM disciplines WHERE id = $1 LIMIT 1`, prereqID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("check prerequisite %s: %w", prereqID, err)
		}
		const link = `INSERT INTO prerequisites (discipline_id, prerequisite_id) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, link, disciplineID, prereqID); err != nil {
			return fmt.Errorf("link prerequisite %s: %w", prereqID, err)
		}
	}
	return nil
}
