package settings

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setupSettingsMock(t *testing.T, fallback PaymentSetting) (*Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB, fallback)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

var settingColumns = []string{
	"id", "commission_rate", "commission_type", "no_show_teacher_percent",
	"min_completion_percent", "dispute_window_hours", "no_show_wait_minutes", "updated_at",
}

func TestCurrent_AbsentRowUsesPolicyFallback(t *testing.T) {
	repo, mock, close := setupSettingsMock(t, DefaultWithPolicy(48, 70, 40, 30))
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_settings")).
		WillReturnRows(sqlmock.NewRows(settingColumns))

	s, err := repo.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, 48, s.DisputeWindowHours)
	require.Equal(t, 30, s.NoShowWaitMinutes)
	require.True(t, s.MinCompletionPercent.Equal(decimal.NewFromInt(70)))
	require.True(t, s.NoShowTeacherPercent.Equal(decimal.NewFromInt(40)))
	// Commission stays at its canonical default; only policy knobs override.
	require.True(t, s.CommissionRate.Equal(decimal.NewFromInt(15)))
	require.Equal(t, CommissionFixedPercentage, s.CommissionType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrent_RowTakesPrecedenceOverFallback(t *testing.T) {
	repo, mock, close := setupSettingsMock(t, DefaultWithPolicy(48, 70, 40, 30))
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_settings")).
		WillReturnRows(sqlmock.NewRows(settingColumns).
			AddRow(1, "20", "fixed_percentage", "60", "90", 12, 10, time.Now()))

	s, err := repo.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, s.DisputeWindowHours)
	require.Equal(t, 10, s.NoShowWaitMinutes)
	require.True(t, s.CommissionRate.Equal(decimal.NewFromInt(20)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDefaultWithPolicy_MatchesDefaultElsewhere(t *testing.T) {
	s := DefaultWithPolicy(24, 80, 50, 15)
	d := Default()

	require.Equal(t, d.DisputeWindowHours, s.DisputeWindowHours)
	require.Equal(t, d.NoShowWaitMinutes, s.NoShowWaitMinutes)
	require.True(t, s.MinCompletionPercent.Equal(d.MinCompletionPercent))
	require.True(t, s.NoShowTeacherPercent.Equal(d.NoShowTeacherPercent))
	require.True(t, s.CommissionRate.Equal(d.CommissionRate))
}
