package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Iqrapath/IqraQuest-sub002/internal/logger"
	"github.com/Iqrapath/IqraQuest-sub002/internal/user"
	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type MockUserRepo struct{ mock.Mock }

func (m *MockUserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*user.User, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) SetHourlyRate(ctx context.Context, teacherID int, rate decimal.Decimal) error {
	return m.Called(ctx, teacherID, rate).Error(0)
}

func newTestService(users user.Repository) (*Service, redismock.ClientMock) {
	client, rmock := redismock.NewClientMock()
	svc := &Service{
		redis:    client,
		users:    users,
		from:     "noreply@iqraquest.com",
		fromName: "IqraQuest",
	}
	return svc, rmock
}

func TestNotify_QueuesRenderedJob(t *testing.T) {
	users := new(MockUserRepo)
	svc, rmock := newTestService(users)

	users.On("FindByID", mock.Anything, 3).Return(&user.User{
		ID:    3,
		Name:  "Aisha",
		Email: "aisha@example.com",
	}, nil)

	rmock.Regexp().ExpectLPush(queueKey, `"to":"aisha@example.com".*"event":"funds_released"`).SetVal(1)

	err := svc.Notify(context.Background(), 3, "funds_released", map[string]interface{}{
		"booking_id": 42,
		"amount":     "180",
		"currency":   "NGN",
	})
	require.NoError(t, err)
	require.NoError(t, rmock.ExpectationsWereMet())
}

func TestNotify_UserLookupFailure(t *testing.T) {
	users := new(MockUserRepo)
	svc, rmock := newTestService(users)

	users.On("FindByID", mock.Anything, 99).Return(nil, errors.New("user not found"))

	err := svc.Notify(context.Background(), 99, "funds_released", nil)
	assert.Error(t, err)
	assert.NoError(t, rmock.ExpectationsWereMet(), "nothing should be queued")
}

func TestNotify_QueueUnavailable(t *testing.T) {
	users := new(MockUserRepo)
	svc, rmock := newTestService(users)

	users.On("FindByID", mock.Anything, 3).Return(&user.User{
		ID: 3, Name: "Aisha", Email: "aisha@example.com",
	}, nil)
	rmock.Regexp().ExpectLPush(queueKey, `.*`).SetErr(errors.New("connection refused"))

	err := svc.Notify(context.Background(), 3, "funds_refunded", nil)
	assert.Error(t, err)
}

func TestQueueLength(t *testing.T) {
	svc, rmock := newTestService(new(MockUserRepo))

	rmock.ExpectLLen(queueKey).SetVal(4)

	assert.Equal(t, int64(4), svc.QueueLength(context.Background()))
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestRender_FundsReleased(t *testing.T) {
	subject, body := render("Yusuf", "funds_released", map[string]interface{}{
		"booking_id": 42,
		"amount":     "180.00",
		"currency":   "NGN",
	})

	assert.Equal(t, "Payment Received", subject)
	assert.True(t, strings.Contains(body, "Hi Yusuf"))
	assert.True(t, strings.Contains(body, "booking #42"))
	assert.True(t, strings.Contains(body, "180.00 NGN"))
}

func TestRender_FundsRefundedIncludesReason(t *testing.T) {
	_, body := render("Aisha", "funds_refunded", map[string]interface{}{
		"booking_id": 7,
		"amount":     "200",
		"currency":   "NGN",
		"reason":     "Teacher did not attend",
	})

	assert.True(t, strings.Contains(body, "Reason: Teacher did not attend"))
}

func TestRender_OfferReceived(t *testing.T) {
	subject, body := render("Aisha", "offer_received", map[string]interface{}{
		"booking_id": 7,
		"price":      "100",
		"currency":   "NGN",
	})

	assert.Equal(t, "New Session Offer", subject)
	assert.True(t, strings.Contains(body, "Price: 100 NGN"))
}

func TestRender_UnknownEventFallsBack(t *testing.T) {
	subject, body := render("Aisha", "something_new", nil)

	assert.Equal(t, "IqraQuest Notification", subject)
	assert.True(t, strings.Contains(body, "something_new"))
}
