package wallet

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Iqrapath/IqraQuest-sub002/internal/api"
	"github.com/Iqrapath/IqraQuest-sub002/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type TopUpRequest struct {
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Gateway          string          `json:"gateway" binding:"required"`
	GatewayReference string          `json:"gateway_reference" binding:"required"`
}

type WithdrawRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Gateway string          `json:"gateway" binding:"required"`
}

// GetWallet godoc
// @Summary      Get wallet
// @Description  Returns the caller's wallet, creating it on first access.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Wallet
// @Failure      500  {object}  gin.H
// @Router       /wallet [get]
func (h *Handler) GetWallet(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	w, err := h.svc.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, w)
}

// TopUp godoc
// @Summary      Top up wallet
// @Description  Credits the caller's wallet with funds confirmed by a payment gateway.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      TopUpRequest  true  "Top-up details"
// @Success      201      {object}  Transaction
// @Failure      400      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /wallet/topup [post]
func (h *Handler) TopUp(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	txn, err := h.svc.Credit(c.Request.Context(), userID, req.Amount, "Wallet top-up",
		Metadata{"type": "topup"}, &req.Gateway, &req.GatewayReference)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to top up wallet"})
		return
	}

	c.JSON(http.StatusCreated, txn)
}

// Withdraw godoc
// @Summary      Withdraw from wallet
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      WithdrawRequest  true  "Withdrawal details"
// @Success      201      {object}  Transaction
// @Failure      400      {object}  gin.H
// @Failure      402      {object}  gin.H
// @Router       /wallet/withdraw [post]
func (h *Handler) Withdraw(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	txn, err := h.svc.Debit(c.Request.Context(), userID, req.Amount, "Wallet withdrawal",
		Metadata{"type": "withdrawal"}, &req.Gateway)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrInsufficientBalance):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient wallet balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to withdraw"})
		}
		return
	}

	c.JSON(http.StatusCreated, txn)
}

// Transactions godoc
// @Summary      Transaction history
// @Description  Lists the caller's wallet transactions, newest first.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        direction  query     string  false  "credit or debit"
// @Param        from       query     string  false  "From time (RFC3339)"
// @Param        to         query     string  false  "To time (RFC3339)"
// @Param        limit      query     int     false  "Page size"    default(50)
// @Param        offset     query     int     false  "Page offset"  default(0)
// @Success      200        {array}   Transaction
// @Failure      400        {object}  gin.H
// @Router       /wallet/transactions [get]
func (h *Handler) Transactions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var f HistoryFilter
	if d := c.Query("direction"); d != "" {
		if d != string(DirectionCredit) && d != string(DirectionDebit) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be credit or debit"})
			return
		}
		f.Direction = Direction(d)
	}
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from time"})
			return
		}
		f.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to time"})
			return
		}
		f.To = &t
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	txns, err := h.svc.Transactions(c.Request.Context(), userID, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txns)
}
