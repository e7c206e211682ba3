package earnings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Earning is the immutable record of commission taken on one transaction.
// One row per release or partial-release event.
type Earning struct {
	ID            int             `db:"id" json:"id"`
	BookingID     int             `db:"booking_id" json:"booking_id"`
	TransactionID int             `db:"transaction_id" json:"transaction_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Percentage    decimal.Decimal `db:"percentage" json:"percentage"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

type DailyStat struct {
	Bucket   string          `db:"bucket" json:"bucket"`
	Earnings decimal.Decimal `db:"earnings" json:"earnings"`
	Count    int             `db:"count" json:"count"`
}
