package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/Iqrapath/IqraQuest-sub002/internal/earnings"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type repository struct {
	db       *sqlx.DB
	currency string
}

func NewRepository(db *sqlx.DB, defaultCurrency string) Repository {
	return &repository{db: db, currency: defaultCurrency}
}

func (r *repository) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w,
		`SELECT id, user_id, balance, currency, created_at, updated_at
		 FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO wallets (user_id, currency)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, r.currency)
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, w,
		`SELECT id, user_id, balance, currency, created_at, updated_at
		 FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *repository) Balance(ctx context.Context, userID int) (decimal.Decimal, error) {
	w, err := r.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

func (r *repository) Credit(ctx context.Context, userID int, e Entry) (*Transaction, error) {
	e.Direction = DirectionCredit
	return r.apply(ctx, userID, e)
}

func (r *repository) Debit(ctx context.Context, userID int, e Entry) (*Transaction, error) {
	e.Direction = DirectionDebit
	return r.apply(ctx, userID, e)
}

func (r *repository) apply(ctx context.Context, userID int, e Entry) (*Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txn, err := Apply(ctx, tx, userID, r.currency, e)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *repository) Transactions(ctx context.Context, userID int, f HistoryFilter) ([]Transaction, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	query := `
		SELECT id, user_id, wallet_id, direction, amount, currency, status,
		       gateway, gateway_reference, description, metadata, created_at
		FROM wallet_transactions
		WHERE user_id = $1`
	args := []interface{}{userID}

	if f.Direction != "" {
		args = append(args, f.Direction)
		query += ` AND direction = $` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
	}

	args = append(args, f.Limit)
	query += `
		ORDER BY created_at DESC
		LIMIT $` + strconv.Itoa(len(args))
	args = append(args, f.Offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	var txs []Transaction
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, err
	}
	return txs, nil
}

// BookingPaymentParams carries a precomputed commission split; the
// repository's job is only to make the whole movement atomic.
type BookingPaymentParams struct {
	StudentID       int
	TeacherID       int
	BookingID       int
	Amount          decimal.Decimal
	Commission      decimal.Decimal
	TeacherEarnings decimal.Decimal
	CommissionRate  decimal.Decimal
}

type BookingPayment struct {
	StudentTransaction *Transaction    `json:"student_transaction"`
	TeacherTransaction *Transaction    `json:"teacher_transaction"`
	Amount             decimal.Decimal `json:"amount"`
	Commission         decimal.Decimal `json:"commission"`
	TeacherEarnings    decimal.Decimal `json:"teacher_earnings"`
	CommissionRate     decimal.Decimal `json:"commission_rate"`
}

// ProcessBookingPayment debits the student, credits the teacher with the
// net amount and records the platform earning, all in one transaction.
// Wallets are locked in ascending user-id order so concurrent payments in
// opposite directions cannot deadlock.
func (r *repository) ProcessBookingPayment(ctx context.Context, p BookingPaymentParams) (*BookingPayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	wallets := map[int]*Wallet{}
	for _, id := range lockOrder(p.StudentID, p.TeacherID) {
		w, err := LockTx(ctx, tx, id, r.currency)
		if err != nil {
			return nil, err
		}
		wallets[id] = w
	}

	studentTxn, err := ApplyTx(ctx, tx, wallets[p.StudentID], Entry{
		Direction:   DirectionDebit,
		Amount:      p.Amount,
		Description: fmt.Sprintf("Payment for booking #%d", p.BookingID),
		Metadata: Metadata{
			"booking_id": p.BookingID,
			"type":       "booking_payment",
			"teacher_id": p.TeacherID,
		},
	})
	if err != nil {
		return nil, err
	}

	teacherTxn, err := ApplyTx(ctx, tx, wallets[p.TeacherID], Entry{
		Direction:   DirectionCredit,
		Amount:      p.TeacherEarnings,
		Description: fmt.Sprintf("Earnings for booking #%d", p.BookingID),
		Metadata: Metadata{
			"booking_id":       p.BookingID,
			"type":             "booking_earnings",
			"student_id":       p.StudentID,
			"commission":       p.Commission.String(),
			"teacher_earnings": p.TeacherEarnings.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := earnings.RecordTx(ctx, tx, &earnings.Earning{
		BookingID:     p.BookingID,
		TransactionID: teacherTxn.ID,
		Amount:        p.Commission,
		Percentage:    p.CommissionRate,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &BookingPayment{
		StudentTransaction: studentTxn,
		TeacherTransaction: teacherTxn,
		Amount:             p.Amount,
		Commission:         p.Commission,
		TeacherEarnings:    p.TeacherEarnings,
		CommissionRate:     p.CommissionRate,
	}, nil
}

func lockOrder(a, b int) []int {
	if a == b {
		return []int{a}
	}
	if a < b {
		return []int{a, b}
	}
	return []int{b, a}
}
