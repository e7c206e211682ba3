package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) (*Booking, error)
	GetByID(ctx context.Context, id int) (*Booking, error)
	FindReusablePending(ctx context.Context, teacherID, studentID int, start time.Time) (*Booking, error)
	UpdatePendingDetails(ctx context.Context, id, subjectID int, end time.Time, total, rate decimal.Decimal) (*Booking, error)
	HasOverlap(ctx context.Context, teacherID int, start, end time.Time, excludeID int) (bool, error)
	CreateSeries(ctx context.Context, parent *Booking, children []*Booking) ([]*Booking, error)
	SetStatus(ctx context.Context, id int, status Status) error
	Confirm(ctx context.Context, id int) error
	Cancel(ctx context.Context, id int, reason string) error
	RecordAttendance(ctx context.Context, id int, teacherAttended, studentAttended bool, actualMinutes *int) error
	ListByStudent(ctx context.Context, studentID int) ([]Booking, error)
	ListByTeacher(ctx context.Context, teacherID int) ([]Booking, error)
	StatsByDay(ctx context.Context, from, to time.Time) ([]DailyStat, error)
}
