package escrow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Iqrapath/IqraQuest-sub002/internal/booking"
	"github.com/Iqrapath/IqraQuest-sub002/internal/earnings"
	"github.com/Iqrapath/IqraQuest-sub002/internal/settings"
	"github.com/Iqrapath/IqraQuest-sub002/internal/wallet"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds   = fmt.Errorf("escrow hold: %w", wallet.ErrInsufficientBalance)
	ErrInvalidPaymentState = errors.New("booking payment state does not permit this operation")
	ErrBookingDisputed     = errors.New("booking is disputed; funds cannot be released")
	ErrInvalidTeacherShare = errors.New("teacher percentage must be between 0 and 100")
	ErrInvalidCustomAmount = errors.New("custom amount must be positive and not exceed the held amount")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func lockBooking(ctx context.Context, tx *sqlx.Tx, id int) (*booking.Booking, error) {
	var b booking.Booking
	err := tx.GetContext(ctx, &b,
		`SELECT `+booking.Columns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Hold debits the student's wallet for the full booking price and marks the
// funds held, in one transaction. A crash between the two cannot leave the
// student debited with no escrow record.
func (r *repository) Hold(ctx context.Context, bookingID int) (*booking.Booking, *wallet.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	b, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if !b.PaymentStatus.CanTransitionTo(booking.PaymentHeld) {
		return nil, nil, ErrInvalidPaymentState
	}

	txn, err := wallet.Apply(ctx, tx, b.StudentID, b.Currency, wallet.Entry{
		Direction:   wallet.DirectionDebit,
		Amount:      b.TotalPrice,
		Description: fmt.Sprintf("Escrow hold for booking #%d", b.ID),
		Metadata: wallet.Metadata{
			"booking_id": b.ID,
			"type":       "escrow_hold",
			"teacher_id": b.TeacherID,
		},
	})
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return nil, nil, ErrInsufficientFunds
		}
		return nil, nil, err
	}

	updated, err := updateBookingGuarded(ctx, tx, `
		UPDATE bookings
		SET payment_status = 'held', funds_held_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND payment_status = 'unpaid'
		RETURNING `+booking.Columns, b.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return updated, txn, nil
}

// Release pays the held funds, minus the commission frozen on the booking,
// to the teacher. Only one concurrent caller can observe payment_status ==
// held; everyone else fails with ErrInvalidPaymentState and moves nothing.
func (r *repository) Release(ctx context.Context, bookingID int, custom *decimal.Decimal) (*Resolution, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != booking.PaymentHeld {
		return nil, ErrInvalidPaymentState
	}
	if b.Status == booking.StatusDisputed {
		return nil, ErrBookingDisputed
	}

	amount, err := resolveAmount(b, custom)
	if err != nil {
		return nil, err
	}
	commission, teacherEarnings := settings.SplitRate(amount, b.CommissionRate)

	teacherTxn, err := wallet.Apply(ctx, tx, b.TeacherID, b.Currency, wallet.Entry{
		Direction:   wallet.DirectionCredit,
		Amount:      teacherEarnings,
		Description: fmt.Sprintf("Earnings released for booking #%d", b.ID),
		Metadata: wallet.Metadata{
			"booking_id":       b.ID,
			"type":             "escrow_release",
			"student_id":       b.StudentID,
			"commission":       commission.String(),
			"teacher_earnings": teacherEarnings.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := earnings.RecordTx(ctx, tx, &earnings.Earning{
		BookingID:     b.ID,
		TransactionID: teacherTxn.ID,
		Amount:        commission,
		Percentage:    b.CommissionRate,
	}); err != nil {
		return nil, err
	}

	updated, err := updateBookingGuarded(ctx, tx, `
		UPDATE bookings
		SET payment_status = 'released', funds_released_at = NOW(), amount_released = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'held'
		RETURNING `+booking.Columns, b.ID, teacherEarnings)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &Resolution{
		Booking:            updated,
		TeacherTransaction: teacherTxn,
		ReleaseAmount:      amount,
		Commission:         commission,
		TeacherEarnings:    teacherEarnings,
	}, nil
}

// Refund returns the held funds to the student. Permitted while the booking
// is disputed; payment state must still be held.
func (r *repository) Refund(ctx context.Context, bookingID int, custom *decimal.Decimal, reason string) (*Resolution, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != booking.PaymentHeld {
		return nil, ErrInvalidPaymentState
	}

	amount, err := resolveAmount(b, custom)
	if err != nil {
		return nil, err
	}

	studentTxn, err := wallet.Apply(ctx, tx, b.StudentID, b.Currency, wallet.Entry{
		Direction:   wallet.DirectionCredit,
		Amount:      amount,
		Description: fmt.Sprintf("Refund for booking #%d: %s", b.ID, reason),
		Metadata: wallet.Metadata{
			"booking_id": b.ID,
			"type":       "escrow_refund",
			"teacher_id": b.TeacherID,
			"reason":     reason,
		},
	})
	if err != nil {
		return nil, err
	}

	updated, err := updateBookingGuarded(ctx, tx, `
		UPDATE bookings
		SET payment_status = 'refunded', funds_refunded_at = NOW(), amount_refunded = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'held'
		RETURNING `+booking.Columns, b.ID, amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &Resolution{
		Booking:            updated,
		StudentTransaction: studentTxn,
		RefundAmount:       amount,
	}, nil
}

// Partial splits the held funds: teacherPercent of the total goes to the
// teacher (minus commission), the remainder back to the student. Either leg
// may be zero. Both legs commit in the same transaction; wallets are locked
// in ascending user-id order.
func (r *repository) Partial(ctx context.Context, bookingID int, teacherPercent decimal.Decimal, reason string) (*Resolution, error) {
	hundred := decimal.NewFromInt(100)
	if teacherPercent.IsNegative() || teacherPercent.GreaterThan(hundred) {
		return nil, ErrInvalidTeacherShare
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != booking.PaymentHeld {
		return nil, ErrInvalidPaymentState
	}

	teacherAmount := b.TotalPrice.Mul(teacherPercent).Div(hundred).Round(2)
	refundAmount := b.TotalPrice.Sub(teacherAmount)

	res := &Resolution{ReleaseAmount: teacherAmount, RefundAmount: refundAmount}

	wallets := map[int]*wallet.Wallet{}
	ids := []int{}
	if teacherAmount.IsPositive() {
		ids = append(ids, b.TeacherID)
	}
	if refundAmount.IsPositive() {
		ids = append(ids, b.StudentID)
	}
	for _, id := range ascending(ids) {
		w, err := wallet.LockTx(ctx, tx, id, b.Currency)
		if err != nil {
			return nil, err
		}
		wallets[id] = w
	}

	if teacherAmount.IsPositive() {
		commission, teacherEarnings := settings.SplitRate(teacherAmount, b.CommissionRate)
		res.Commission = commission
		res.TeacherEarnings = teacherEarnings

		teacherTxn, err := wallet.ApplyTx(ctx, tx, wallets[b.TeacherID], wallet.Entry{
			Direction:   wallet.DirectionCredit,
			Amount:      teacherEarnings,
			Description: fmt.Sprintf("Partial earnings for booking #%d: %s", b.ID, reason),
			Metadata: wallet.Metadata{
				"booking_id":       b.ID,
				"type":             "escrow_partial_release",
				"student_id":       b.StudentID,
				"commission":       commission.String(),
				"teacher_earnings": teacherEarnings.String(),
				"reason":           reason,
			},
		})
		if err != nil {
			return nil, err
		}
		res.TeacherTransaction = teacherTxn

		if err := earnings.RecordTx(ctx, tx, &earnings.Earning{
			BookingID:     b.ID,
			TransactionID: teacherTxn.ID,
			Amount:        commission,
			Percentage:    b.CommissionRate,
		}); err != nil {
			return nil, err
		}
	}

	if refundAmount.IsPositive() {
		studentTxn, err := wallet.ApplyTx(ctx, tx, wallets[b.StudentID], wallet.Entry{
			Direction:   wallet.DirectionCredit,
			Amount:      refundAmount,
			Description: fmt.Sprintf("Partial refund for booking #%d: %s", b.ID, reason),
			Metadata: wallet.Metadata{
				"booking_id": b.ID,
				"type":       "escrow_partial_refund",
				"teacher_id": b.TeacherID,
				"reason":     reason,
			},
		})
		if err != nil {
			return nil, err
		}
		res.StudentTransaction = studentTxn
	}

	updated, err := updateBookingGuarded(ctx, tx, `
		UPDATE bookings
		SET payment_status = 'partial', funds_released_at = NOW(),
		    amount_released = $2, amount_refunded = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'held'
		RETURNING `+booking.Columns, b.ID, res.TeacherEarnings, refundAmount)
	if err != nil {
		return nil, err
	}
	res.Booking = updated

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// ListEligibleForRelease returns held bookings whose session ended before
// the dispute-window cutoff. Disputed bookings are excluded until resolved;
// cancelled bookings are excluded because their held funds resolve by
// refund, never release.
func (r *repository) ListEligibleForRelease(ctx context.Context, heldBefore time.Time) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id
		FROM bookings
		WHERE payment_status = 'held'
		  AND status NOT IN ('disputed', 'cancelled')
		  AND end_time <= $1
		ORDER BY end_time
	`, heldBefore)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func updateBookingGuarded(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (*booking.Booking, error) {
	var b booking.Booking
	err := tx.GetContext(ctx, &b, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidPaymentState
		}
		return nil, err
	}
	return &b, nil
}

func resolveAmount(b *booking.Booking, custom *decimal.Decimal) (decimal.Decimal, error) {
	if custom == nil {
		return b.TotalPrice, nil
	}
	amount := custom.Round(2)
	if !amount.IsPositive() || amount.GreaterThan(b.TotalPrice) {
		return decimal.Zero, ErrInvalidCustomAmount
	}
	return amount, nil
}

func ascending(ids []int) []int {
	if len(ids) == 2 && ids[0] > ids[1] {
		return []int{ids[1], ids[0]}
	}
	return ids
}
