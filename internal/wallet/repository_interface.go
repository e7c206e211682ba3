package wallet

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error)
	Balance(ctx context.Context, userID int) (decimal.Decimal, error)
	Credit(ctx context.Context, userID int, e Entry) (*Transaction, error)
	Debit(ctx context.Context, userID int, e Entry) (*Transaction, error)
	Transactions(ctx context.Context, userID int, f HistoryFilter) ([]Transaction, error)
	ProcessBookingPayment(ctx context.Context, p BookingPaymentParams) (*BookingPayment, error)
}
