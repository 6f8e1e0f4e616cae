package models

import "time"

// Section is one scheduled offering ("turma") of a discipline by a professor,
// with a fixed seat capacity. The code is derived from day and shift and must
// be unique across sections.
type Section struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	DisciplineID string    `db:"discipline_id" json:"discipline_id"`
	ProfessorID  string    `db:"professor_id" json:"professor_id"`
	Seats        int       `db:"seats" json:"seats"`
	Day          int       `db:"day" json:"day"`
	Shift        int       `db:"shift" json:"shift"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail joins a section with catalog display fields and live seat
// accounting. EnrolledCount and AvailableSeats are always computed from the
// current ACTIVE enrollment count, never stored.
type SectionDetail struct {
	Section
	DisciplineCode    string `db:"discipline_code" json:"discipline_code"`
	DisciplineName    string `db:"discipline_name" json:"discipline_name"`
	DisciplineCredits int    `db:"discipline_credits" json:"discipline_credits"`
	ProfessorName     string `db:"professor_name" json:"professor_name"`
	ProfessorSIAPE    string `db:"professor_siape" json:"professor_siape"`
	EnrolledCount     int    `db:"enrolled_count" json:"enrolled_count"`
	AvailableSeats    int    `db:"available_seats" json:"available_seats"`
}

// SectionFilter restricts section listings.
type SectionFilter struct {
	DisciplineID  string
	ProfessorID   string
	Day           *int
	Shift         *int
	OnlyAvailable bool
}

// CreateSectionRequest is the payload for creating a section.
type CreateSectionRequest struct {
	DisciplineID string `json:"discipline_id" validate:"required,uuid"`
	ProfessorID  string `json:"professor_id" validate:"required,uuid"`
	Seats        int    `json:"seats" validate:"required,gt=0"`
	Day          int    `json:"day" validate:"required,min=1,max=7"`
	Shift        int    `json:"shift" validate:"required,min=1,max=3"`
}

// UpdateSectionRequest carries mutable section fields. Seats may never be
// reduced below the current ACTIVE enrollment count.
type UpdateSectionRequest struct {
	ProfessorID string `json:"professor_id" validate:"omitempty,uuid"`
	Seats       *int   `json:"seats" validate:"omitempty,gt=0"`
	Day         *int   `json:"day" validate:"omitempty,min=1,max=7"`
	Shift       *int   `json:"shift" validate:"omitempty,min=1,max=3"`
}

// SectionRosterEntry is one student row on a section roster.
type SectionRosterEntry struct {
	EnrollmentID     string           `db:"enrollment_id" json:"enrollment_id"`
	EnrolledAt       time.Time        `db:"enrolled_at" json:"enrolled_at"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	StudentID        string           `db:"student_id" json:"student_id"`
	RA               string           `db:"ra" json:"ra"`
	StudentName      string           `db:"student_name" json:"student_name"`
	StudentEmail     string           `db:"student_email" json:"student_email"`
}
