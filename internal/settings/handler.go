package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type UpdateSettingsRequest struct {
	CommissionRate       decimal.Decimal `json:"commission_rate" binding:"required"`
	CommissionType       string          `json:"commission_type" binding:"required,oneof=fixed_percentage fixed_amount"`
	NoShowTeacherPercent decimal.Decimal `json:"no_show_teacher_percent"`
	MinCompletionPercent decimal.Decimal `json:"min_completion_percent"`
	DisputeWindowHours   int             `json:"dispute_window_hours" binding:"min=0"`
	NoShowWaitMinutes    int             `json:"no_show_wait_minutes" binding:"min=0"`
}

// @Summary      Current payment settings
// @Tags         admin
// @Produce      json
// @Success      200 {object} PaymentSetting
// @Router       /admin/settings [get]
// @Security     BearerAuth
func (h *Handler) Get(c *gin.Context) {
	s, err := h.repo.Current(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payment settings"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary      Update payment settings
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body UpdateSettingsRequest true "Settings"
// @Success      200 {object} PaymentSetting
// @Router       /admin/settings [put]
// @Security     BearerAuth
func (h *Handler) Update(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.CommissionRate.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "commission_rate must not be negative"})
		return
	}

	s, err := h.repo.Upsert(c.Request.Context(), PaymentSetting{
		CommissionRate:       req.CommissionRate,
		CommissionType:       CommissionType(req.CommissionType),
		NoShowTeacherPercent: req.NoShowTeacherPercent,
		MinCompletionPercent: req.MinCompletionPercent,
		DisputeWindowHours:   req.DisputeWindowHours,
		NoShowWaitMinutes:    req.NoShowWaitMinutes,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update payment settings"})
		return
	}

	c.JSON(http.StatusOK, s)
}
