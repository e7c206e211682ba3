package subject

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateSubject(ctx context.Context, name, description string) (*Subject, error)
	GetAllSubjects(ctx context.Context) ([]Subject, error)
	GetSubjectByID(ctx context.Context, id int) (*Subject, error)
	AssignTeacher(ctx context.Context, teacherID, subjectID int, hourlyRate *decimal.Decimal) (*TeacherSubject, error)
	GetTeacherRate(ctx context.Context, teacherID, subjectID int) (decimal.NullDecimal, error)
	ListTeachersForSubject(ctx context.Context, subjectID int) ([]TeacherForSubject, error)
}
