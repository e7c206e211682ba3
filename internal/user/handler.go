package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Iqrapath/IqraQuest-sub002/internal/api"
	"github.com/Iqrapath/IqraQuest-sub002/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	service   Service
	repo      Repository
	jwtSecret string
}

func NewHandler(service Service, repo Repository, jwtSecret string) *Handler {
	return &Handler{
		service:   service,
		repo:      repo,
		jwtSecret: jwtSecret,
	}
}

// @Summary      Register new user
// @Description  Creates a student, teacher or guardian account and returns access & refresh tokens.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201 {object} LoginResponse
// @Failure      400 {object} gin.H
// @Failure      409 {object} gin.H
// @Router       /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	user, accessToken, refreshToken, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} LoginResponse
// @Failure      401 {object} gin.H
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	user, accessToken, refreshToken, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest true "Refresh token"
// @Success      200 {object} gin.H
// @Failure      401 {object} gin.H
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	accessToken, user, err := h.service.RefreshToken(c.Request.Context(), req.RefreshToken, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"user":         user,
	})
}

// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Success      200 {object} User
// @Router       /me [get]
// @Security     BearerAuth
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

type SetHourlyRateRequest struct {
	HourlyRate decimal.Decimal `json:"hourly_rate" binding:"required"`
}

// @Summary      Set a teacher's hourly rate
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        teacherID path int true "Teacher ID"
// @Param        request body SetHourlyRateRequest true "Hourly rate"
// @Success      200 {object} gin.H
// @Router       /admin/teachers/{teacherID}/rate [put]
// @Security     BearerAuth
func (h *Handler) SetHourlyRate(c *gin.Context) {
	teacherID, err := strconv.Atoi(c.Param("teacherID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid teacher id"})
		return
	}

	var req SetHourlyRateRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.HourlyRate.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hourly_rate must be positive"})
		return
	}

	if err := h.repo.SetHourlyRate(c.Request.Context(), teacherID, req.HourlyRate); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Teacher not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update hourly rate"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "hourly rate updated"})
}
