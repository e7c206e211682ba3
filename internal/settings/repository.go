package settings

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Resolver supplies the current payment configuration. Injected into the
// wallet and escrow services so neither reads ambient global state.
type Resolver interface {
	Current(ctx context.Context) (PaymentSetting, error)
}

type Repository struct {
	db       *sqlx.DB
	fallback PaymentSetting
}

func NewRepository(db *sqlx.DB, fallback PaymentSetting) *Repository {
	return &Repository{db: db, fallback: fallback}
}

// Current returns the payment_settings row, or the configured fallback when
// none exists.
func (r *Repository) Current(ctx context.Context) (PaymentSetting, error) {
	var s PaymentSetting
	err := r.db.GetContext(ctx, &s, `
		SELECT id, commission_rate, commission_type, no_show_teacher_percent,
		       min_completion_percent, dispute_window_hours, no_show_wait_minutes, updated_at
		FROM payment_settings
		ORDER BY id
		LIMIT 1
	`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.fallback, nil
		}
		return PaymentSetting{}, err
	}
	return s, nil
}

// Upsert replaces the singleton configuration row.
func (r *Repository) Upsert(ctx context.Context, s PaymentSetting) (*PaymentSetting, error) {
	var out PaymentSetting
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO payment_settings (id, commission_rate, commission_type, no_show_teacher_percent,
		                              min_completion_percent, dispute_window_hours, no_show_wait_minutes, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			commission_rate = EXCLUDED.commission_rate,
			commission_type = EXCLUDED.commission_type,
			no_show_teacher_percent = EXCLUDED.no_show_teacher_percent,
			min_completion_percent = EXCLUDED.min_completion_percent,
			dispute_window_hours = EXCLUDED.dispute_window_hours,
			no_show_wait_minutes = EXCLUDED.no_show_wait_minutes,
			updated_at = NOW()
		RETURNING id, commission_rate, commission_type, no_show_teacher_percent,
		          min_completion_percent, dispute_window_hours, no_show_wait_minutes, updated_at
	`, s.CommissionRate, s.CommissionType, s.NoShowTeacherPercent,
		s.MinCompletionPercent, s.DisputeWindowHours, s.NoShowWaitMinutes).StructScan(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
