package escrow

import (
	"context"
	"time"

	"github.com/Iqrapath/IqraQuest-sub002/internal/booking"
	"github.com/Iqrapath/IqraQuest-sub002/internal/wallet"
	"github.com/shopspring/decimal"
)

// Resolution is the outcome of one escrow money movement.
type Resolution struct {
	Booking            *booking.Booking    `json:"booking"`
	TeacherTransaction *wallet.Transaction `json:"teacher_transaction,omitempty"`
	StudentTransaction *wallet.Transaction `json:"student_transaction,omitempty"`
	ReleaseAmount      decimal.Decimal     `json:"release_amount"`
	Commission         decimal.Decimal     `json:"commission"`
	TeacherEarnings    decimal.Decimal     `json:"teacher_earnings"`
	RefundAmount       decimal.Decimal     `json:"refund_amount"`
}

// Repository executes escrow state transitions. Every method is one
// database transaction: the booking row is locked, the payment-state
// precondition is enforced, and the wallet mutation, earning record and
// booking update commit together or not at all.
type Repository interface {
	Hold(ctx context.Context, bookingID int) (*booking.Booking, *wallet.Transaction, error)
	Release(ctx context.Context, bookingID int, custom *decimal.Decimal) (*Resolution, error)
	Refund(ctx context.Context, bookingID int, custom *decimal.Decimal, reason string) (*Resolution, error)
	Partial(ctx context.Context, bookingID int, teacherPercent decimal.Decimal, reason string) (*Resolution, error)
	ListEligibleForRelease(ctx context.Context, heldBefore time.Time) ([]int, error)
}
