package earnings

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ByBooking godoc
// @Summary      Platform earnings for a booking
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {array}   Earning
// @Router       /admin/earnings/bookings/{bookingID} [get]
func (h *Handler) ByBooking(c *gin.Context) {
	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	list, err := h.repo.ListByBooking(c.Request.Context(), bookingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load earnings"})
		return
	}

	c.JSON(http.StatusOK, list)
}

// Summary godoc
// @Summary      Platform earnings summary
// @Description  Total commission taken and per-day breakdown over a period.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  true  "From date (RFC3339)"
// @Param        to    query     string  true  "To date (RFC3339)"
// @Success      200   {object}  gin.H
// @Router       /admin/earnings [get]
func (h *Handler) Summary(c *gin.Context) {
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

	total, err := h.repo.TotalBetween(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load earnings"})
		return
	}

	byDay, err := h.repo.StatsByDay(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load earnings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"by_day": byDay,
	})
}
