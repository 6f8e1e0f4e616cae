package models

import "time"

// Discipline is a course definition with a credit weight.
type Discipline struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Credits   int       `db:"credits" json:"credits"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DisciplineDetail enriches a discipline with its prerequisite disciplines.
// Prerequisites are reference data only: they are displayed but not enforced
// at enrollment time.
type DisciplineDetail struct {
	Discipline
	Prerequisites []Discipline `json:"prerequisites"`
}

// CreateDisciplineRequest is the payload for creating a discipline.
type CreateDisciplineRequest struct {
	Code          string   `json:"code" validate:"required,min=2"`
	Name          string   `json:"name" validate:"required,min=3"`
	Credits       int      `json:"credits" validate:"required,gt=0"`
	Prerequisites []string `json:"prerequisites" validate:"omitempty,dive,uuid"`
}

// UpdateDisciplineRequest carries mutable discipline fields. A non-nil
// Prerequisites slice replaces the whole prerequisite set.
type UpdateDisciplineRequest struct {
	Code          string    `json:"code" validate:"omitempty,min=2"`
	Name          string    `json:"name" validate:"omitempty,min=3"`
	Credits       *int      `json:"credits" validate:"omitempty,gt=0"`
	Prerequisites *[]string `json:"prerequisites" validate:"omitempty,dive,uuid"`
}
