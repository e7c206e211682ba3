package wallet

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Transactions carry no partial states; every ledger entry is final.
const StatusCompleted = "completed"

// Wallet holds one user's balance. Created lazily on first mutation,
// never deleted, and only ever written through this package.
type Wallet struct {
	ID        int             `db:"id" json:"id"`
	UserID    int             `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Currency  string          `db:"currency" json:"currency"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is an append-only ledger entry. Rows are never updated or
// deleted; creation order is the audit trail.
type Transaction struct {
	ID               int             `db:"id" json:"id"`
	UserID           int             `db:"user_id" json:"user_id"`
	WalletID         int             `db:"wallet_id" json:"wallet_id"`
	Direction        Direction       `db:"direction" json:"direction"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Currency         string          `db:"currency" json:"currency"`
	Status           string          `db:"status" json:"status"`
	Gateway          *string         `db:"gateway" json:"gateway,omitempty"`
	GatewayReference *string         `db:"gateway_reference" json:"gateway_reference,omitempty"`
	Description      string          `db:"description" json:"description"`
	Metadata         Metadata        `db:"metadata" json:"metadata"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// Metadata is the open key-value bag on a transaction (booking id, type
// tag, commission figures). Stored as JSONB.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("wallet: unsupported metadata type")
	}
	return json.Unmarshal(data, m)
}

// Entry describes one ledger mutation to apply to a wallet.
type Entry struct {
	Direction        Direction
	Amount           decimal.Decimal
	Description      string
	Metadata         Metadata
	Gateway          *string
	GatewayReference *string
}

// HistoryFilter narrows a transaction history query. Zero values mean
// "no filter"; Limit defaults to 50.
type HistoryFilter struct {
	Direction Direction
	Status    string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
