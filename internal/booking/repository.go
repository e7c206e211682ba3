package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrBookingNotFound                   = errors.New("booking not found")
	ErrBookingNotFoundOrAlreadyCancelled = errors.New("booking not found or already cancelled")
)

const Columns = `
	id, teacher_id, student_id, subject_id, start_time, end_time,
	status, payment_status, parent_booking_id,
	total_price, currency, commission_rate,
	teacher_attended, student_attended, actual_duration_minutes,
	funds_held_at, funds_released_at, funds_refunded_at,
	amount_released, amount_refunded,
	cancellation_reason, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, b *Booking) (*Booking, error) {
	query := `
		INSERT INTO bookings (teacher_id, student_id, subject_id, start_time, end_time,
		                      status, payment_status, parent_booking_id,
		                      total_price, currency, commission_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + Columns

	var created Booking
	err := r.db.GetContext(ctx, &created, query,
		b.TeacherID, b.StudentID, b.SubjectID, b.StartTime, b.EndTime,
		b.Status, b.PaymentStatus, b.ParentBookingID,
		b.TotalPrice, b.Currency, b.CommissionRate,
	)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `SELECT `+Columns+` FROM bookings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// FindReusablePending returns the pending booking for the same teacher,
// student and start time, if one exists. Retried creation requests reuse
// that row instead of double-booking.
func (r *repository) FindReusablePending(ctx context.Context, teacherID, studentID int, start time.Time) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `
		SELECT `+Columns+`
		FROM bookings
		WHERE teacher_id = $1 AND student_id = $2 AND start_time = $3 AND status = 'pending'
		LIMIT 1
	`, teacherID, studentID, start)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) UpdatePendingDetails(ctx context.Context, id, subjectID int, end time.Time, total, rate decimal.Decimal) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `
		UPDATE bookings
		SET subject_id = $2, end_time = $3, total_price = $4, commission_rate = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND payment_status = 'unpaid'
		RETURNING `+Columns, id, subjectID, end, total, rate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// HasOverlap reports whether the teacher has a non-cancelled booking whose
// time range overlaps [start, end). Intervals are half-open, so a booking
// ending exactly when another starts does not conflict.
func (r *repository) HasOverlap(ctx context.Context, teacherID int, start, end time.Time, excludeID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE teacher_id = $1
			  AND status <> 'cancelled'
			  AND id <> $4
			  AND start_time < $3
			  AND end_time > $2
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, teacherID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func overlapTx(ctx context.Context, tx *sqlx.Tx, teacherID int, start, end time.Time) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE teacher_id = $1
			  AND status <> 'cancelled'
			  AND start_time < $3
			  AND end_time > $2
		)
	`, teacherID, start, end)
	return exists, err
}

var ErrSeriesSlotUnavailable = errors.New("a slot in the recurring series is unavailable")

// CreateSeries persists a parent booking and its children in a single
// transaction. Any occupied slot fails the whole series; no partial series
// is ever persisted.
func (r *repository) CreateSeries(ctx context.Context, parent *Booking, children []*Booking) ([]*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	insert := func(b *Booking) (*Booking, error) {
		occupied, err := overlapTx(ctx, tx, b.TeacherID, b.StartTime, b.EndTime)
		if err != nil {
			return nil, err
		}
		if occupied {
			return nil, ErrSeriesSlotUnavailable
		}

		var created Booking
		err = tx.GetContext(ctx, &created, `
			INSERT INTO bookings (teacher_id, student_id, subject_id, start_time, end_time,
			                      status, payment_status, parent_booking_id,
			                      total_price, currency, commission_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING `+Columns,
			b.TeacherID, b.StudentID, b.SubjectID, b.StartTime, b.EndTime,
			b.Status, b.PaymentStatus, b.ParentBookingID,
			b.TotalPrice, b.Currency, b.CommissionRate,
		)
		if err != nil {
			return nil, err
		}
		return &created, nil
	}

	createdParent, err := insert(parent)
	if err != nil {
		return nil, err
	}

	series := []*Booking{createdParent}
	for _, child := range children {
		child.ParentBookingID = &createdParent.ID
		created, err := insert(child)
		if err != nil {
			return nil, err
		}
		series = append(series, created)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return series, nil
}

func (r *repository) SetStatus(ctx context.Context, id int, status Status) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	return err
}

func (r *repository) Confirm(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *repository) Cancel(ctx context.Context, id int, reason string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancellation_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('cancelled', 'completed')
	`, id, reason)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookingNotFoundOrAlreadyCancelled
	}
	return nil
}

func (r *repository) RecordAttendance(ctx context.Context, id int, teacherAttended, studentAttended bool, actualMinutes *int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET teacher_attended = $2, student_attended = $3, actual_duration_minutes = $4, updated_at = NOW()
		WHERE id = $1
	`, id, teacherAttended, studentAttended, actualMinutes)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *repository) ListByStudent(ctx context.Context, studentID int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+Columns+`
		FROM bookings
		WHERE student_id = $1
		ORDER BY start_time DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) ListByTeacher(ctx context.Context, teacherID int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+Columns+`
		FROM bookings
		WHERE teacher_id = $1
		ORDER BY start_time DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) StatsByDay(ctx context.Context, from, to time.Time) ([]DailyStat, error) {
	query := `
SELECT
  DATE(created_at)::text AS bucket,
  COUNT(*) FILTER (WHERE status <> 'cancelled') AS bookings_created,
  COUNT(*) FILTER (WHERE status = 'cancelled')  AS bookings_cancelled
FROM bookings
WHERE created_at BETWEEN $1 AND $2
GROUP BY DATE(created_at)
ORDER BY bucket;
`
	var stats []DailyStat
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}
