package earnings

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// RecordTx appends one platform earning inside the caller's transaction so
// the commission record commits or rolls back with the money movement that
// produced it.
func RecordTx(ctx context.Context, tx *sqlx.Tx, e *Earning) error {
	return tx.QueryRowxContext(ctx,
		`INSERT INTO platform_earnings (booking_id, transaction_id, amount, percentage)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		e.BookingID, e.TransactionID, e.Amount, e.Percentage,
	).Scan(&e.ID, &e.CreatedAt)
}

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListByBooking(ctx context.Context, bookingID int) ([]Earning, error) {
	var out []Earning
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, booking_id, transaction_id, amount, percentage, created_at
		FROM platform_earnings
		WHERE booking_id = $1
		ORDER BY created_at
	`, bookingID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) TotalBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0)
		FROM platform_earnings
		WHERE created_at BETWEEN $1 AND $2
	`, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *Repository) StatsByDay(ctx context.Context, from, to time.Time) ([]DailyStat, error) {
	query := `
SELECT
  DATE(created_at)::text  AS bucket,
  COALESCE(SUM(amount),0) AS earnings,
  COUNT(*)                AS count
FROM platform_earnings
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
