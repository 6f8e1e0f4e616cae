package models

// Professor extends a user holding the PROFESSOR role. It shares the user id
// and carries the unique SIAPE staff number.
type Professor struct {
	ID    string `db:"id" json:"id"`
	SIAPE string `db:"siape" json:"siape"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// ProfessorFilter restricts professor listings.
type ProfessorFilter struct {
	Search string
}

// UpdateProfessorRequest carries the mutable professor fields.
type UpdateProfessorRequest struct {
	Name  string `json:"name" validate:"omitempty,min=3"`
	Email string `json:"email" validate:"omitempty,email"`
	SIAPE string `json:"siape" validate:"omitempty,min=1"`
}
