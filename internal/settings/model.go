package settings

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionType string

const (
	CommissionFixedPercentage CommissionType = "fixed_percentage"
	CommissionFixedAmount     CommissionType = "fixed_amount"
)

// PaymentSetting is the platform-wide payment configuration. A single row
// administered externally; absent row means Default() applies.
type PaymentSetting struct {
	ID                   int             `db:"id" json:"id"`
	CommissionRate       decimal.Decimal `db:"commission_rate" json:"commission_rate"`
	CommissionType       CommissionType  `db:"commission_type" json:"commission_type"`
	NoShowTeacherPercent decimal.Decimal `db:"no_show_teacher_percent" json:"no_show_teacher_percent"`
	MinCompletionPercent decimal.Decimal `db:"min_completion_percent" json:"min_completion_percent"`
	DisputeWindowHours   int             `db:"dispute_window_hours" json:"dispute_window_hours"`
	NoShowWaitMinutes    int             `db:"no_show_wait_minutes" json:"no_show_wait_minutes"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// Default is the canonical configuration applied when no payment_settings
// row exists: 15% commission, 50% teacher share on student no-show, 80%
// minimum session coverage, 24h dispute window, 15min no-show wait.
func Default() PaymentSetting {
	return PaymentSetting{
		CommissionRate:       decimal.NewFromInt(15),
		CommissionType:       CommissionFixedPercentage,
		NoShowTeacherPercent: decimal.NewFromInt(50),
		MinCompletionPercent: decimal.NewFromInt(80),
		DisputeWindowHours:   24,
		NoShowWaitMinutes:    15,
	}
}

// DefaultWithPolicy is Default() with the process-level policy knobs
// applied. The repository uses it as the absent-row fallback, so env
// overrides take effect until an admin writes a payment_settings row.
func DefaultWithPolicy(disputeWindowHours, minCompletionPercent, noShowTeacherPercent, noShowWaitMinutes int) PaymentSetting {
	s := Default()
	s.DisputeWindowHours = disputeWindowHours
	s.MinCompletionPercent = decimal.NewFromInt(int64(minCompletionPercent))
	s.NoShowTeacherPercent = decimal.NewFromInt(int64(noShowTeacherPercent))
	s.NoShowWaitMinutes = noShowWaitMinutes
	return s
}

func (s PaymentSetting) DisputeWindow() time.Duration {
	return time.Duration(s.DisputeWindowHours) * time.Hour
}

// Split computes the platform commission and payee earnings for an amount.
// Percentage commissions round to 2 decimal places; fixed commissions are
// capped at the amount so the commission never exceeds the payment.
// Earnings are derived by subtraction, so commission + earnings always
// equals the amount exactly.
func (s PaymentSetting) Split(amount decimal.Decimal) (commission, earnings decimal.Decimal) {
	switch s.CommissionType {
	case CommissionFixedAmount:
		commission = s.CommissionRate.Round(2)
		if commission.GreaterThan(amount) {
			commission = amount
		}
	default:
		commission = amount.Mul(s.CommissionRate).Div(decimal.NewFromInt(100)).Round(2)
	}
	return commission, amount.Sub(commission)
}

// SplitRate is the percentage-only split used on escrow releases, where the
// rate was frozen on the booking at creation time.
func SplitRate(amount, rate decimal.Decimal) (commission, earnings decimal.Decimal) {
	commission = amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	return commission, amount.Sub(commission)
}
