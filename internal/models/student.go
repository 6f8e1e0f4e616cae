package models

// Student extends a user holding the STUDENT role. It shares the user id
// and carries the unique registration number (RA).
type Student struct {
	ID    string `db:"id" json:"id"`
	RA    string `db:"ra" json:"ra"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// StudentFilter restricts student listings.
type StudentFilter struct {
	Search string
}

// UpdateStudentRequest carries the mutable student fields.
type UpdateStudentRequest struct {
	Name  string `json:"name" validate:"omitempty,min=3"`
	Email string `json:"email" validate:"omitempty,email"`
	RA    string `json:"ra" validate:"omitempty,min=1"`
}
