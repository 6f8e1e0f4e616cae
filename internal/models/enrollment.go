package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment ("matrícula").
type EnrollmentStatus string

// Possible enrollment statuses. COMPLETED is a valid stored value but no
// operation currently produces it.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Enrollment is a student's claim on a seat in a section. Records are never
// deleted; cancellation transitions the status in place. Re-enrollment after
// cancellation creates a new record with a new id.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	SectionID  string           `db:"section_id" json:"section_id"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	Status     EnrollmentStatus `db:"status" json:"status"`
}

// EnrollmentDetail is the fully joined view returned to callers.
type EnrollmentDetail struct {
	Enrollment
	RA                string `db:"ra" json:"ra"`
	StudentName       string `db:"student_name" json:"student_name"`
	SectionCode       string `db:"section_code" json:"section_code"`
	DisciplineCode    string `db:"discipline_code" json:"discipline_code"`
	DisciplineName    string `db:"discipline_name" json:"discipline_name"`
	DisciplineCredits int    `db:"discipline_credits" json:"discipline_credits"`
	ProfessorName     string `db:"professor_name" json:"professor_name"`
	Day               int    `db:"day" json:"day"`
	Shift             int    `db:"shift" json:"shift"`
}

// EnrollmentFilter restricts enrollment listings.
type EnrollmentFilter struct {
	StudentID    string
	SectionID    string
	DisciplineID string
	Status       EnrollmentStatus
}

// AvailableSection is a section open for enrollment from the perspective of
// one student: remaining seats above zero and no ACTIVE enrollment held.
type AvailableSection struct {
	ID                string `db:"id" json:"id"`
	Code              string `db:"code" json:"code"`
	DisciplineCode    string `db:"discipline_code" json:"discipline_code"`
	DisciplineName    string `db:"discipline_name" json:"discipline_name"`
	DisciplineCredits int    `db:"discipline_credits" json:"discipline_credits"`
	ProfessorName     string `db:"professor_name" json:"professor_name"`
	Seats             int    `db:"seats" json:"seats"`
	Day               int    `db:"day" json:"day"`
	Shift             int    `db:"shift" json:"shift"`
	EnrolledCount     int    `db:"enrolled_count" json:"enrolled_count"`
	AvailableSeats    int    `db:"available_seats" json:"available_seats"`
}
