package escrow

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Iqrapath/IqraQuest-sub002/internal/api"
	"github.com/Iqrapath/IqraQuest-sub002/internal/booking"
	"github.com/Iqrapath/IqraQuest-sub002/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type ReleaseRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason" binding:"required"`
}

type PartialRequest struct {
	TeacherPercent decimal.Decimal `json:"teacher_percent" binding:"required"`
	Reason         string          `json:"reason" binding:"required"`
}

func bookingIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return 0, false
	}
	return id, true
}

func respondResolutionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	case errors.Is(err, ErrInvalidPaymentState):
		c.JSON(http.StatusConflict, gin.H{"error": "Booking payment state does not permit this operation"})
	case errors.Is(err, ErrBookingDisputed):
		c.JSON(http.StatusConflict, gin.H{"error": "Booking is disputed; funds cannot be released"})
	case errors.Is(err, ErrInvalidTeacherShare), errors.Is(err, ErrInvalidCustomAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient wallet balance"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Escrow operation failed"})
	}
}

// Hold godoc
// @Summary      Hold funds
// @Description  Moves the booking's price from the student's wallet into escrow.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  booking.Booking
// @Failure      402        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /admin/escrow/{bookingID}/hold [post]
func (h *Handler) Hold(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	b, err := h.svc.HoldFunds(c.Request.Context(), id)
	if err != nil {
		respondResolutionError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Release godoc
// @Summary      Release held funds to the teacher
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int             true   "Booking ID"
// @Param        request    body      ReleaseRequest  false  "Optional custom amount"
// @Success      200        {object}  Resolution
// @Failure      409        {object}  gin.H
// @Router       /admin/escrow/{bookingID}/release [post]
func (h *Handler) Release(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req ReleaseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BindError(c, err)
			return
		}
	}

	res, err := h.svc.ReleaseFunds(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondResolutionError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Refund godoc
// @Summary      Refund held funds to the student
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int            true  "Booking ID"
// @Param        request    body      RefundRequest  true  "Refund details"
// @Success      200        {object}  Resolution
// @Failure      409        {object}  gin.H
// @Router       /admin/escrow/{bookingID}/refund [post]
func (h *Handler) Refund(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	res, err := h.svc.RefundFunds(c.Request.Context(), id, req.Amount, req.Reason)
	if err != nil {
		respondResolutionError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Partial godoc
// @Summary      Split held funds between teacher and student
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int             true  "Booking ID"
// @Param        request    body      PartialRequest  true  "Split details"
// @Success      200        {object}  Resolution
// @Failure      400        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /admin/escrow/{bookingID}/partial [post]
func (h *Handler) Partial(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req PartialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	res, err := h.svc.ProcessPartialPayment(c.Request.Context(), id, req.TeacherPercent, req.Reason)
	if err != nil {
		respondResolutionError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// SessionCompleted godoc
// @Summary      Resolve a finished session from its attendance record
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /admin/escrow/{bookingID}/session-completed [post]
func (h *Handler) SessionCompleted(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	res, err := h.svc.HandleSessionCompletion(c.Request.Context(), id)
	if err != nil {
		respondResolutionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolution": res})
}

// TeacherNoShow godoc
// @Summary      Resolve a teacher no-show
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Resolution
// @Router       /admin/escrow/{bookingID}/teacher-no-show [post]
func (h *Handler) TeacherNoShow(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	res, err := h.svc.HandleTeacherNoShow(c.Request.Context(), id)
	if err != nil {
		respondResolutionError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// StudentNoShow godoc
// @Summary      Resolve a student no-show
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Resolution
// @Router       /admin/escrow/{bookingID}/student-no-show [post]
func (h *Handler) StudentNoShow(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	res, err := h.svc.HandleStudentNoShow(c.Request.Context(), id)
	if err != nil {
		respondResolutionError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Sweep godoc
// @Summary      Run the release sweep now
// @Description  Releases every held booking past its dispute window.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  SweepReport
// @Router       /admin/escrow/sweep [post]
func (h *Handler) Sweep(c *gin.Context) {
	report, err := h.svc.ProcessEligibleReleases(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Release sweep failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}
