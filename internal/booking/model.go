package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending          Status = "pending"
	StatusConfirmed        Status = "confirmed"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
	StatusDisputed         Status = "disputed"
	StatusRescheduling     Status = "rescheduling"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusAwaitingPayment  Status = "awaiting_payment"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentHeld     PaymentStatus = "held"
	PaymentReleased PaymentStatus = "released"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentPartial  PaymentStatus = "partial"
)

// paymentTransitions is the legal payment state machine. Transitions are
// one-way: once held funds resolve, the booking can never move again.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentUnpaid: {PaymentHeld},
	PaymentHeld:   {PaymentReleased, PaymentRefunded, PaymentPartial},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether funds for this booking have been fully resolved.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentReleased, PaymentRefunded, PaymentPartial:
		return true
	}
	return false
}

type RecurrenceType string

const (
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
)

type Booking struct {
	ID              int           `db:"id" json:"id"`
	TeacherID       int           `db:"teacher_id" json:"teacher_id"`
	StudentID       int           `db:"student_id" json:"student_id"`
	SubjectID       int           `db:"subject_id" json:"subject_id"`
	StartTime       time.Time     `db:"start_time" json:"start_time"`
	EndTime         time.Time     `db:"end_time" json:"end_time"`
	Status          Status        `db:"status" json:"status"`
	PaymentStatus   PaymentStatus `db:"payment_status" json:"payment_status"`
	ParentBookingID *int          `db:"parent_booking_id" json:"parent_booking_id,omitempty"`

	TotalPrice     decimal.Decimal `db:"total_price" json:"total_price"`
	Currency       string          `db:"currency" json:"currency"`
	CommissionRate decimal.Decimal `db:"commission_rate" json:"commission_rate"`

	TeacherAttended       *bool `db:"teacher_attended" json:"teacher_attended,omitempty"`
	StudentAttended       *bool `db:"student_attended" json:"student_attended,omitempty"`
	ActualDurationMinutes *int  `db:"actual_duration_minutes" json:"actual_duration_minutes,omitempty"`

	FundsHeldAt     *time.Time          `db:"funds_held_at" json:"funds_held_at,omitempty"`
	FundsReleasedAt *time.Time          `db:"funds_released_at" json:"funds_released_at,omitempty"`
	FundsRefundedAt *time.Time          `db:"funds_refunded_at" json:"funds_refunded_at,omitempty"`
	AmountReleased  decimal.NullDecimal `db:"amount_released" json:"amount_released,omitempty"`
	AmountRefunded  decimal.NullDecimal `db:"amount_refunded" json:"amount_refunded,omitempty"`

	CancellationReason *string   `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

func (b *Booking) ScheduledMinutes() int {
	return int(b.EndTime.Sub(b.StartTime).Minutes())
}

// CompletionPercent is the share of the scheduled session that actually
// took place, capped at 100. Unknown duration counts as zero coverage.
func (b *Booking) CompletionPercent() decimal.Decimal {
	scheduled := b.ScheduledMinutes()
	if b.ActualDurationMinutes == nil || scheduled <= 0 {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(*b.ActualDurationMinutes)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(scheduled))).
		Round(2)
	hundred := decimal.NewFromInt(100)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

type DailyStat struct {
	Bucket            string `db:"bucket" json:"bucket"`
	BookingsCreated   int    `db:"bookings_created" json:"bookings_created"`
	BookingsCancelled int    `db:"bookings_cancelled" json:"bookings_cancelled"`
}
