package user

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleStudent  = "student"
	RoleTeacher  = "teacher"
	RoleGuardian = "guardian"
	RoleAdmin    = "admin"
)

type User struct {
	ID           int                 `db:"id" json:"id"`
	Name         string              `db:"name" json:"name"`
	Email        string              `db:"email" json:"email"`
	PasswordHash string              `db:"password_hash" json:"-"`
	Role         string              `db:"role" json:"role"`
	HourlyRate   decimal.NullDecimal `db:"hourly_rate" json:"hourly_rate,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=student teacher guardian"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}
