package escrow

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Iqrapath/IqraQuest-sub002/internal/booking"
	"github.com/Iqrapath/IqraQuest-sub002/internal/wallet"
)

func setupEscrowMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

var bookingColumns = []string{
	"id", "teacher_id", "student_id", "subject_id", "start_time", "end_time",
	"status", "payment_status", "parent_booking_id",
	"total_price", "currency", "commission_rate",
	"teacher_attended", "student_attended", "actual_duration_minutes",
	"funds_held_at", "funds_released_at", "funds_refunded_at",
	"amount_released", "amount_refunded",
	"cancellation_reason", "created_at", "updated_at",
}

func bookingRows(id int, status, payment, price string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingColumns).AddRow(
		id, 3, 9, 2, now.Add(-2*time.Hour), now.Add(-time.Hour),
		status, payment, nil,
		price, "NGN", "15",
		nil, nil, nil,
		nil, nil, nil,
		nil, nil,
		nil, now, now,
	)
}

func escrowWalletRows(id, userID int, balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "balance", "currency", "created_at", "updated_at"}).
		AddRow(id, userID, balance, "NGN", time.Now(), time.Now())
}

func escrowTxnRows(id, userID, walletID int, direction, amount string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "wallet_id", "direction", "amount", "currency", "status",
		"gateway", "gateway_reference", "description", "metadata", "created_at",
	}).AddRow(id, userID, walletID, direction, amount, "NGN", "completed", nil, nil, "test", []byte(`{}`), time.Now())
}

func TestHold_RejectsAlreadyHeldBooking(t *testing.T) {
	repo, mock, close := setupEscrowMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(bookingRows(7, "confirmed", "held", "200"))
	mock.ExpectRollback()

	_, _, err := repo.Hold(context.Background(), 7)
	require.ErrorIs(t, err, ErrInvalidPaymentState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_BlockedWhileDisputed(t *testing.T) {
	repo, mock, close := setupEscrowMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(bookingRows(7, "disputed", "held", "200"))
	mock.ExpectRollback()

	_, err := repo.Release(context.Background(), 7, nil)
	require.ErrorIs(t, err, ErrBookingDisputed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefund_AllowedWhileDisputed(t *testing.T) {
	repo, mock, close := setupEscrowMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(bookingRows(7, "disputed", "held", "200"))

	// Student's wallet is credited the full held amount.
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets")).
		WithArgs(9).
		WillReturnRows(escrowWalletRows(2, 9, "50"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(decimal.NewFromInt(250), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WillReturnRows(escrowTxnRows(11, 9, 2, "credit", "200"))

	mock.ExpectQuery(regexp.QuoteMeta("payment_status = 'refunded'")).
		WithArgs(7, decimal.NewFromInt(200).Round(2)).
		WillReturnRows(bookingRows(7, "disputed", "refunded", "200"))

	mock.ExpectCommit()

	res, err := repo.Refund(context.Background(), 7, nil, "Dispute resolved for student")
	require.NoError(t, err)
	require.NotNil(t, res.StudentTransaction)
	require.True(t, res.RefundAmount.Equal(decimal.NewFromInt(200)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_AlreadyResolvedBooking(t *testing.T) {
	repo, mock, close := setupEscrowMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(bookingRows(7, "completed", "released", "200"))
	mock.ExpectRollback()

	_, err := repo.Release(context.Background(), 7, nil)
	require.ErrorIs(t, err, ErrInvalidPaymentState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAmount(t *testing.T) {
	b := &booking.Booking{TotalPrice: decimal.NewFromInt(200)}

	amount, err := resolveAmount(b, nil)
	require.NoError(t, err)
	require.True(t, amount.Equal(decimal.NewFromInt(200)))

	custom := decimal.NewFromInt(150)
	amount, err = resolveAmount(b, &custom)
	require.NoError(t, err)
	require.True(t, amount.Equal(custom))

	tooMuch := decimal.NewFromInt(201)
	_, err = resolveAmount(b, &tooMuch)
	require.ErrorIs(t, err, ErrInvalidCustomAmount)

	zero := decimal.Zero
	_, err = resolveAmount(b, &zero)
	require.ErrorIs(t, err, ErrInvalidCustomAmount)
}

func TestHold_DebitsStudentAndMarksHeld(t *testing.T) {
	repo, mock, close := setupEscrowMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(bookingRows(7, "pending", "unpaid", "200"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets")).
		WithArgs(9).
		WillReturnRows(escrowWalletRows(2, 9, "500"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(decimal.NewFromInt(300), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WillReturnRows(escrowTxnRows(11, 9, 2, "debit", "200"))

	mock.ExpectQuery(regexp.QuoteMeta("payment_status = 'held'")).
		WithArgs(7).
		WillReturnRows(bookingRows(7, "pending", "held", "200"))

	mock.ExpectCommit()

	b, txn, err := repo.Hold(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, booking.PaymentHeld, b.PaymentStatus)
	require.Equal(t, "debit", string(txn.Direction))
	require.True(t, txn.Amount.Equal(decimal.NewFromInt(200)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHold_InsufficientBalanceRollsBack(t *testing.T) {
	repo, mock, close := setupEscrowMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(bookingRows(7, "pending", "unpaid", "200"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets")).
		WithArgs(9).
		WillReturnRows(escrowWalletRows(2, 9, "50"))
	mock.ExpectRollback()

	_, _, err := repo.Hold(context.Background(), 7)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_PaysTeacherNetOfCommission(t *testing.T) {
	repo, mock, close := setupEscrowMock(t)
	defer close()

	// 200 held at a 15% rate: 30 commission, 170 to the teacher.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(bookingRows(7, "completed", "held", "200"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets")).
		WithArgs(3).
		WillReturnRows(escrowWalletRows(1, 3, "0"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(decimal.NewFromInt(170), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WillReturnRows(escrowTxnRows(12, 3, 1, "credit", "170"))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO platform_earnings")).
		WithArgs(7, 12, decimal.NewFromInt(30), decimal.NewFromInt(15)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	mock.ExpectQuery(regexp.QuoteMeta("payment_status = 'released'")).
		WithArgs(7, decimal.NewFromInt(170)).
		WillReturnRows(bookingRows(7, "completed", "released", "200"))

	mock.ExpectCommit()

	res, err := repo.Release(context.Background(), 7, nil)
	require.NoError(t, err)
	require.NotNil(t, res.TeacherTransaction)
	require.True(t, res.Commission.Equal(decimal.NewFromInt(30)))
	require.True(t, res.TeacherEarnings.Equal(decimal.NewFromInt(170)))
	require.True(t, res.Commission.Add(res.TeacherEarnings).Equal(res.ReleaseAmount))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPartial_SplitsHeldFundsBetweenParties(t *testing.T) {
	repo, mock, close := setupEscrowMock(t)
	defer close()

	// 100 held, 50% to the teacher: 50 gross, 7.50 commission, 42.50
	// earnings, 50 back to the student.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(bookingRows(7, "completed", "held", "100"))

	// Teacher wallet first: ids lock in ascending order (3 before 9).
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets")).
		WithArgs(3).
		WillReturnRows(escrowWalletRows(1, 3, "0"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets")).
		WithArgs(9).
		WillReturnRows(escrowWalletRows(2, 9, "20"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(decimal.RequireFromString("42.5"), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WillReturnRows(escrowTxnRows(21, 3, 1, "credit", "42.5"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO platform_earnings")).
		WithArgs(7, 21, decimal.RequireFromString("7.5"), decimal.NewFromInt(15)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(decimal.NewFromInt(70), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WillReturnRows(escrowTxnRows(22, 9, 2, "credit", "50"))

	mock.ExpectQuery(regexp.QuoteMeta("payment_status = 'partial'")).
		WithArgs(7, decimal.RequireFromString("42.5"), decimal.NewFromInt(50)).
		WillReturnRows(bookingRows(7, "completed", "partial", "100"))

	mock.ExpectCommit()

	res, err := repo.Partial(context.Background(), 7, decimal.NewFromInt(50), "Session ended early")
	require.NoError(t, err)
	require.NotNil(t, res.TeacherTransaction)
	require.NotNil(t, res.StudentTransaction)
	require.True(t, res.Commission.Equal(decimal.RequireFromString("7.5")))
	require.True(t, res.TeacherEarnings.Equal(decimal.RequireFromString("42.5")))
	require.True(t, res.RefundAmount.Equal(decimal.NewFromInt(50)))
	total := res.TeacherEarnings.Add(res.Commission).Add(res.RefundAmount)
	require.True(t, total.Equal(decimal.NewFromInt(100)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPartial_FullTeacherShareSkipsRefundLeg(t *testing.T) {
	repo, mock, close := setupEscrowMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(bookingRows(7, "completed", "held", "100"))

	// Only the teacher's wallet is touched when the refund leg is zero.
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets")).
		WithArgs(3).
		WillReturnRows(escrowWalletRows(1, 3, "0"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(decimal.NewFromInt(85), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WillReturnRows(escrowTxnRows(21, 3, 1, "credit", "85"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO platform_earnings")).
		WithArgs(7, 21, decimal.NewFromInt(15), decimal.NewFromInt(15)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	mock.ExpectQuery(regexp.QuoteMeta("payment_status = 'partial'")).
		WithArgs(7, decimal.NewFromInt(85), decimal.NewFromInt(0)).
		WillReturnRows(bookingRows(7, "completed", "partial", "100"))

	mock.ExpectCommit()

	res, err := repo.Partial(context.Background(), 7, decimal.NewFromInt(100), "Dispute resolved for teacher")
	require.NoError(t, err)
	require.NotNil(t, res.TeacherTransaction)
	require.Nil(t, res.StudentTransaction)
	require.True(t, res.RefundAmount.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListEligibleForRelease_SkipsDisputedAndCancelled(t *testing.T) {
	repo, mock, close := setupEscrowMock(t)
	defer close()

	cutoff := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("status NOT IN ('disputed', 'cancelled')")).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4).AddRow(7))

	ids, err := repo.ListEligibleForRelease(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, []int{4, 7}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAscending(t *testing.T) {
	require.Equal(t, []int{3, 9}, ascending([]int{9, 3}))
	require.Equal(t, []int{3, 9}, ascending([]int{3, 9}))
	require.Equal(t, []int{5}, ascending([]int{5}))
}
