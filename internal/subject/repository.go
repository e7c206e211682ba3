package subject

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var ErrSubjectNotFound = errors.New("subject not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateSubject(ctx context.Context, name, description string) (*Subject, error) {
	query := `
		INSERT INTO subjects (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, created_at
	`

	var s Subject
	err := r.db.GetContext(ctx, &s, query, name, description)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *repository) GetAllSubjects(ctx context.Context) ([]Subject, error) {
	query := `
		SELECT id, name, description, created_at
		FROM subjects
		ORDER BY name
	`

	var subjects []Subject
	err := r.db.SelectContext(ctx, &subjects, query)
	if err != nil {
		return nil, err
	}

	return subjects, nil
}

func (r *repository) GetSubjectByID(ctx context.Context, id int) (*Subject, error) {
	query := `
		SELECT id, name, description, created_at
		FROM subjects
		WHERE id = $1
	`

	var s Subject
	err := r.db.GetContext(ctx, &s, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *repository) AssignTeacher(ctx context.Context, teacherID, subjectID int, hourlyRate *decimal.Decimal) (*TeacherSubject, error) {
	query := `
		INSERT INTO teacher_subjects (teacher_id, subject_id, hourly_rate)
		VALUES ($1, $2, $3)
		ON CONFLICT (teacher_id, subject_id) DO UPDATE SET hourly_rate = EXCLUDED.hourly_rate
		RETURNING teacher_id, subject_id, hourly_rate, created_at
	`

	var ts TeacherSubject
	err := r.db.GetContext(ctx, &ts, query, teacherID, subjectID, hourlyRate)
	if err != nil {
		return nil, err
	}

	return &ts, nil
}

// GetTeacherRate returns the teacher's per-subject rate override, invalid
// when the teacher has no override for that subject.
func (r *repository) GetTeacherRate(ctx context.Context, teacherID, subjectID int) (decimal.NullDecimal, error) {
	query := `
		SELECT hourly_rate
		FROM teacher_subjects
		WHERE teacher_id = $1 AND subject_id = $2
	`

	var rate decimal.NullDecimal
	err := r.db.GetContext(ctx, &rate, query, teacherID, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.NullDecimal{}, nil
		}
		return decimal.NullDecimal{}, err
	}

	return rate, nil
}

func (r *repository) ListTeachersForSubject(ctx context.Context, subjectID int) ([]TeacherForSubject, error) {
	query := `
		SELECT
			ts.teacher_id,
			u.name AS teacher_name,
			COALESCE(ts.hourly_rate, u.hourly_rate) AS hourly_rate
		FROM teacher_subjects ts
		JOIN users u ON u.id = ts.teacher_id
		WHERE ts.subject_id = $1
		ORDER BY u.name
	`

	var teachers []TeacherForSubject
	err := r.db.SelectContext(ctx, &teachers, query, subjectID)
	if err != nil {
		return nil, err
	}

	return teachers, nil
}
