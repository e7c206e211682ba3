package wallet

import (
	"context"
	"errors"

	"github.com/Iqrapath/IqraQuest-sub002/internal/metrics"
	"github.com/Iqrapath/IqraQuest-sub002/internal/settings"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount must be positive")

type Service interface {
	GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error)
	Balance(ctx context.Context, userID int) (decimal.Decimal, error)
	CanDebit(ctx context.Context, userID int, amount decimal.Decimal) (bool, error)
	Credit(ctx context.Context, userID int, amount decimal.Decimal, description string, meta Metadata, gateway, gatewayRef *string) (*Transaction, error)
	Debit(ctx context.Context, userID int, amount decimal.Decimal, description string, meta Metadata, gateway *string) (*Transaction, error)
	Transactions(ctx context.Context, userID int, f HistoryFilter) ([]Transaction, error)
	ProcessBookingPayment(ctx context.Context, studentID, teacherID int, amount decimal.Decimal, bookingID int) (*BookingPayment, error)
}

type service struct {
	repo     Repository
	settings settings.Resolver
}

func NewService(repo Repository, resolver settings.Resolver) Service {
	return &service{repo: repo, settings: resolver}
}

func (s *service) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	return s.repo.GetOrCreateWallet(ctx, userID)
}

func (s *service) Balance(ctx context.Context, userID int) (decimal.Decimal, error) {
	return s.repo.Balance(ctx, userID)
}

func (s *service) CanDebit(ctx context.Context, userID int, amount decimal.Decimal) (bool, error) {
	balance, err := s.repo.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance.GreaterThanOrEqual(amount), nil
}

func (s *service) Credit(ctx context.Context, userID int, amount decimal.Decimal, description string, meta Metadata, gateway, gatewayRef *string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	txn, err := s.repo.Credit(ctx, userID, Entry{
		Amount:           amount.Round(2),
		Description:      description,
		Metadata:         meta,
		Gateway:          gateway,
		GatewayReference: gatewayRef,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordWalletTransaction(string(DirectionCredit))
	return txn, nil
}

func (s *service) Debit(ctx context.Context, userID int, amount decimal.Decimal, description string, meta Metadata, gateway *string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	txn, err := s.repo.Debit(ctx, userID, Entry{
		Amount:      amount.Round(2),
		Description: description,
		Metadata:    meta,
		Gateway:     gateway,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordWalletTransaction(string(DirectionDebit))
	return txn, nil
}

func (s *service) Transactions(ctx context.Context, userID int, f HistoryFilter) ([]Transaction, error) {
	return s.repo.Transactions(ctx, userID, f)
}

// ProcessBookingPayment moves a direct booking payment from student to
// teacher in one atomic unit, taking the platform commission per the
// current settings.
func (s *service) ProcessBookingPayment(ctx context.Context, studentID, teacherID int, amount decimal.Decimal, bookingID int) (*BookingPayment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount = amount.Round(2)

	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	commission, teacherEarnings := cfg.Split(amount)

	result, err := s.repo.ProcessBookingPayment(ctx, BookingPaymentParams{
		StudentID:       studentID,
		TeacherID:       teacherID,
		BookingID:       bookingID,
		Amount:          amount,
		Commission:      commission,
		TeacherEarnings: teacherEarnings,
		CommissionRate:  cfg.CommissionRate,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordBookingPayment()
	return result, nil
}
