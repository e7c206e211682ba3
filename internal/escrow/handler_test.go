package escrow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Iqrapath/IqraQuest-sub002/internal/booking"
)

type MockService struct{ mock.Mock }

func (m *MockService) HoldFunds(ctx context.Context, bookingID int) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockService) ReleaseFunds(ctx context.Context, bookingID int, custom *decimal.Decimal) (*Resolution, error) {
	args := m.Called(ctx, bookingID, custom)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Resolution), args.Error(1)
}

func (m *MockService) RefundFunds(ctx context.Context, bookingID int, custom *decimal.Decimal, reason string) (*Resolution, error) {
	args := m.Called(ctx, bookingID, custom, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Resolution), args.Error(1)
}

func (m *MockService) ProcessPartialPayment(ctx context.Context, bookingID int, teacherPercent decimal.Decimal, reason string) (*Resolution, error) {
	args := m.Called(ctx, bookingID, teacherPercent, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Resolution), args.Error(1)
}

func (m *MockService) HandleSessionCompletion(ctx context.Context, bookingID int) (*Resolution, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Resolution), args.Error(1)
}

func (m *MockService) HandleTeacherNoShow(ctx context.Context, bookingID int) (*Resolution, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Resolution), args.Error(1)
}

func (m *MockService) HandleStudentNoShow(ctx context.Context, bookingID int) (*Resolution, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Resolution), args.Error(1)
}

func (m *MockService) ProcessEligibleReleases(ctx context.Context) (*SweepReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SweepReport), args.Error(1)
}

func (m *MockService) RefundHeldFunds(ctx context.Context, bookingID int, reason string) error {
	return m.Called(ctx, bookingID, reason).Error(0)
}

func escrowRouter(svc Service) *gin.Engine {
	router := gin.New()
	h := NewHandler(svc)
	router.POST("/escrow/:bookingID/hold", h.Hold)
	router.POST("/escrow/:bookingID/release", h.Release)
	router.POST("/escrow/:bookingID/refund", h.Refund)
	router.POST("/escrow/:bookingID/partial", h.Partial)
	router.POST("/escrow/sweep", h.Sweep)
	return router
}

func doEscrowPost(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest("POST", path, nil)
	} else {
		req = httptest.NewRequest("POST", path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHoldHandler_InvalidBookingID(t *testing.T) {
	svc := new(MockService)
	router := escrowRouter(svc)

	w := doEscrowPost(router, "/escrow/abc/hold", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "HoldFunds")
}

func TestHoldHandler_InsufficientFunds(t *testing.T) {
	svc := new(MockService)
	router := escrowRouter(svc)

	svc.On("HoldFunds", mock.Anything, 7).Return(nil, ErrInsufficientFunds)

	w := doEscrowPost(router, "/escrow/7/hold", "")
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient wallet balance")
}

func TestHoldHandler_Success(t *testing.T) {
	svc := new(MockService)
	router := escrowRouter(svc)

	b := heldBooking(7, 60)
	svc.On("HoldFunds", mock.Anything, 7).Return(b, nil)

	w := doEscrowPost(router, "/escrow/7/hold", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"payment_status":"held"`)
}

func TestReleaseHandler_NotFound(t *testing.T) {
	svc := new(MockService)
	router := escrowRouter(svc)

	svc.On("ReleaseFunds", mock.Anything, 99, (*decimal.Decimal)(nil)).
		Return(nil, booking.ErrBookingNotFound)

	w := doEscrowPost(router, "/escrow/99/release", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReleaseHandler_DisputedConflict(t *testing.T) {
	svc := new(MockService)
	router := escrowRouter(svc)

	svc.On("ReleaseFunds", mock.Anything, 7, (*decimal.Decimal)(nil)).
		Return(nil, ErrBookingDisputed)

	w := doEscrowPost(router, "/escrow/7/release", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "disputed")
}

func TestReleaseHandler_CustomAmount(t *testing.T) {
	svc := new(MockService)
	router := escrowRouter(svc)

	svc.On("ReleaseFunds", mock.Anything, 7, mock.MatchedBy(func(custom *decimal.Decimal) bool {
		return custom != nil && custom.Equal(decimal.NewFromInt(150))
	})).Return(&Resolution{
		Booking:         heldBooking(7, 60),
		ReleaseAmount:   decimal.NewFromInt(150),
		Commission:      decimal.NewFromInt(15),
		TeacherEarnings: decimal.NewFromInt(135),
	}, nil)

	w := doEscrowPost(router, "/escrow/7/release", `{"amount": "150"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestRefundHandler_MissingReason(t *testing.T) {
	svc := new(MockService)
	router := escrowRouter(svc)

	w := doEscrowPost(router, "/escrow/7/refund", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Reason")
	svc.AssertNotCalled(t, "RefundFunds")
}

func TestRefundHandler_AlreadyResolvedConflict(t *testing.T) {
	svc := new(MockService)
	router := escrowRouter(svc)

	svc.On("RefundFunds", mock.Anything, 7, (*decimal.Decimal)(nil), "Student cancelled").
		Return(nil, ErrInvalidPaymentState)

	w := doEscrowPost(router, "/escrow/7/refund", `{"reason": "Student cancelled"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPartialHandler_InvalidTeacherShare(t *testing.T) {
	svc := new(MockService)
	router := escrowRouter(svc)

	svc.On("ProcessPartialPayment", mock.Anything, 7, mock.Anything, "bad split").
		Return(nil, ErrInvalidTeacherShare)

	w := doEscrowPost(router, "/escrow/7/partial", `{"teacher_percent": "150", "reason": "bad split"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "between 0 and 100")
}

func TestSweepHandler_ReturnsReport(t *testing.T) {
	svc := new(MockService)
	router := escrowRouter(svc)

	svc.On("ProcessEligibleReleases", mock.Anything).
		Return(&SweepReport{Released: 3, Failed: 1, Errors: []string{"booking 9: disputed"}}, nil)

	w := doEscrowPost(router, "/escrow/sweep", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"released":3`)
}
