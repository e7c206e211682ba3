package booking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Iqrapath/IqraQuest-sub002/internal/api"
	"github.com/Iqrapath/IqraQuest-sub002/internal/auth"
	"github.com/Iqrapath/IqraQuest-sub002/internal/wallet"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type CreateBookingRequest struct {
	TeacherID      int       `json:"teacher_id" binding:"required"`
	SubjectID      int       `json:"subject_id" binding:"required"`
	StartTime      time.Time `json:"start_time" binding:"required"`
	EndTime        time.Time `json:"end_time" binding:"required"`
	ProcessPayment bool      `json:"process_payment"`
}

type CreateOfferRequest struct {
	StudentID int       `json:"student_id" binding:"required"`
	SubjectID int       `json:"subject_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

type CreateRecurringRequest struct {
	TeacherID   int       `json:"teacher_id" binding:"required"`
	SubjectID   int       `json:"subject_id" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Recurrence  string    `json:"recurrence" binding:"required,oneof=weekly monthly"`
	Occurrences int       `json:"occurrences" binding:"required,min=1,max=52"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type AttendanceRequest struct {
	TeacherAttended bool `json:"teacher_attended"`
	StudentAttended bool `json:"student_attended"`
	ActualMinutes   *int `json:"actual_minutes" binding:"omitempty,min=0"`
}

// CreateBooking godoc
// @Summary      Create booking
// @Description  Books a tutoring session, optionally charging the student's wallet into escrow.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateBookingRequest  true  "Booking details"
// @Success      201      {object}  Booking
// @Failure      400      {object}  gin.H
// @Failure      402      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	studentID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	b, err := h.svc.CreateBooking(c.Request.Context(), CreateBookingInput{
		TeacherID: req.TeacherID,
		StudentID: studentID,
		SubjectID: req.SubjectID,
		Start:     req.StartTime,
		End:       req.EndTime,
	}, req.ProcessPayment)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTimeRange):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrSlotUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "Time slot is unavailable"})
		case errors.Is(err, ErrNotATeacher), errors.Is(err, ErrTeacherRateUnset):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, wallet.ErrInsufficientBalance):
			// The unpaid booking survives so a retry after top-up reuses it.
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient wallet balance", "booking": b})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		}
		return
	}

	c.JSON(http.StatusCreated, b)
}

// CreateOffer godoc
// @Summary      Create teacher offer
// @Description  Teacher proposes a session to a student; no payment is taken.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateOfferRequest  true  "Offer details"
// @Success      201      {object}  Booking
// @Failure      400      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /offers [post]
func (h *Handler) CreateOffer(c *gin.Context) {
	teacherID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	b, err := h.svc.CreateTeacherOffer(c.Request.Context(), CreateBookingInput{
		TeacherID: teacherID,
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		Start:     req.StartTime,
		End:       req.EndTime,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTimeRange), errors.Is(err, ErrTeacherRateUnset):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrSlotUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "Time slot is unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create offer"})
		}
		return
	}

	c.JSON(http.StatusCreated, b)
}

// CreateRecurring godoc
// @Summary      Create recurring series
// @Description  Books a weekly or monthly series of sessions atomically.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRecurringRequest  true  "Series details"
// @Success      201      {array}   Booking
// @Failure      400      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /bookings/recurring [post]
func (h *Handler) CreateRecurring(c *gin.Context) {
	studentID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	series, err := h.svc.CreateRecurringSeries(c.Request.Context(), CreateBookingInput{
		TeacherID: req.TeacherID,
		StudentID: studentID,
		SubjectID: req.SubjectID,
		Start:     req.StartTime,
		End:       req.EndTime,
	}, RecurrenceType(req.Recurrence), req.Occurrences)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTimeRange), errors.Is(err, ErrInvalidOccurrences), errors.Is(err, ErrTeacherRateUnset):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrSlotUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "One or more slots in the series are unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create series"})
		}
		return
	}

	c.JSON(http.StatusCreated, series)
}

// CheckAvailability godoc
// @Summary      Check slot availability
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        teacher_id  query     int     true  "Teacher ID"
// @Param        start       query     string  true  "Start time (RFC3339)"
// @Param        end         query     string  true  "End time (RFC3339)"
// @Success      200         {object}  gin.H
// @Failure      400         {object}  gin.H
// @Router       /availability [get]
func (h *Handler) CheckAvailability(c *gin.Context) {
	teacherID, err := strconv.Atoi(c.Query("teacher_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid teacher_id"})
		return
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start time"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end time"})
		return
	}

	available, err := h.svc.IsSlotAvailable(c.Request.Context(), teacherID, start, end, 0)
	if err != nil {
		if errors.Is(err, ErrInvalidTimeRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check availability"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": available})
}

// ConfirmBooking godoc
// @Summary      Confirm booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Router       /bookings/{bookingID}/confirm [post]
func (h *Handler) ConfirmBooking(c *gin.Context) {
	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	if err := h.svc.ConfirmBooking(c.Request.Context(), bookingID); err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found or not pending"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm booking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking confirmed"})
}

// CancelBooking godoc
// @Summary      Cancel booking
// @Description  Cancels a booking; held funds are refunded to the student first.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                   true  "Booking ID"
// @Param        request    body      CancelBookingRequest  true  "Cancellation reason"
// @Success      200        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	if err := h.svc.CancelBooking(c.Request.Context(), userID, bookingID, req.Reason); err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrBookingNotFoundOrAlreadyCancelled):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found or already finished"})
		case errors.Is(err, ErrNotBookingParty):
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a party to this booking"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel booking"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled"})
}

// DisputeBooking godoc
// @Summary      Dispute booking
// @Description  Flags a held booking so funds stay in escrow until an admin resolves it.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /bookings/{bookingID}/dispute [post]
func (h *Handler) DisputeBooking(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	if err := h.svc.DisputeBooking(c.Request.Context(), userID, bookingID); err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, ErrNotBookingParty):
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a party to this booking"})
		case errors.Is(err, ErrNotDisputable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dispute booking"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking disputed"})
}

// RecordAttendance godoc
// @Summary      Record session attendance
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                true  "Booking ID"
// @Param        request    body      AttendanceRequest  true  "Attendance"
// @Success      200        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Router       /admin/bookings/{bookingID}/attendance [post]
func (h *Handler) RecordAttendance(c *gin.Context) {
	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	if err := h.svc.RecordAttendance(c.Request.Context(), bookingID, req.TeacherAttended, req.StudentAttended, req.ActualMinutes); err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record attendance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attendance recorded"})
}

// MyBookings godoc
// @Summary      List my bookings
// @Description  Lists the caller's bookings as a student or a teacher.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        role  query     string  false  "student or teacher"  default(student)
// @Success      200   {array}   Booking
// @Router       /bookings [get]
func (h *Handler) MyBookings(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var (
		bookings []Booking
		err      error
	)
	if c.DefaultQuery("role", "student") == "teacher" {
		bookings, err = h.svc.ListByTeacher(c.Request.Context(), userID)
	} else {
		bookings, err = h.svc.ListByStudent(c.Request.Context(), userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// GetBooking godoc
// @Summary      Get booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      404        {object}  gin.H
// @Router       /bookings/{bookingID} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	b, err := h.svc.GetByID(c.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load booking"})
		return
	}

	if b.StudentID != userID && b.TeacherID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a party to this booking"})
		return
	}

	c.JSON(http.StatusOK, b)
}

// BookingStats godoc
// @Summary      Booking statistics by day
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  true  "From date (RFC3339)"
// @Param        to    query     string  true  "To date (RFC3339)"
// @Success      200   {array}   DailyStat
// @Router       /admin/stats/bookings [get]
func (h *Handler) BookingStats(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from time"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to time"})
		return
	}

	stats, err := h.svc.StatsByDay(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
