package subject

import (
	"time"

	"github.com/shopspring/decimal"
)

type Subject struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TeacherSubject links a teacher to a subject they offer, optionally with
// a per-subject hourly rate overriding the teacher's default.
type TeacherSubject struct {
	TeacherID  int                 `db:"teacher_id" json:"teacher_id"`
	SubjectID  int                 `db:"subject_id" json:"subject_id"`
	HourlyRate decimal.NullDecimal `db:"hourly_rate" json:"hourly_rate,omitempty"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
}

type TeacherForSubject struct {
	TeacherID   int                 `db:"teacher_id" json:"teacher_id"`
	TeacherName string              `db:"teacher_name" json:"teacher_name"`
	HourlyRate  decimal.NullDecimal `db:"hourly_rate" json:"hourly_rate,omitempty"`
}

type CreateSubjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type AssignTeacherRequest struct {
	TeacherID  int              `json:"teacher_id" binding:"required"`
	HourlyRate *decimal.Decimal `json:"hourly_rate,omitempty"`
}
