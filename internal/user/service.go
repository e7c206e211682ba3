package user

import (
	"context"
	"errors"

	"github.com/Iqrapath/IqraQuest-sub002/internal/auth"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("role must be student, teacher or guardian")
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	GetByID(ctx context.Context, userID int) (*User, error)
	RefreshToken(ctx context.Context, refreshToken, jwtSecret string) (string, *User, error)
}

type service struct {
	repo      Repository
	jwtSecret string
}

func NewService(repo Repository, jwtSecret string) Service {
	return &service{
		repo:      repo,
		jwtSecret: jwtSecret,
	}
}

// issueTokens signs an access/refresh pair for the given account.
func (s *service) issueTokens(u *User) (string, string, error) {
	return auth.GenerateTokens(u.ID, u.Email, u.Role, s.jwtSecret, s.jwtSecret)
}

func registrableRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleGuardian:
		return true
	}
	return false
}

// Register creates a student, teacher or guardian account. Admin accounts
// are provisioned out of band, never through the public endpoint.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	if !registrableRole(req.Role) {
		return nil, "", "", ErrInvalidRole
	}

	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, "", "", err
	}
	if exists {
		return nil, "", "", ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", err
	}

	u, err := s.repo.Create(ctx, req.Name, req.Email, passwordHash, req.Role)
	if err != nil {
		return nil, "", "", err
	}

	accessToken, refreshToken, err := s.issueTokens(u)
	if err != nil {
		return nil, "", "", err
	}
	return u, accessToken, refreshToken, nil
}

// Login verifies credentials. Unknown email and wrong password produce the
// same error so the endpoint cannot be used to probe for accounts.
func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	u, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.issueTokens(u)
	if err != nil {
		return nil, "", "", err
	}
	return u, accessToken, refreshToken, nil
}

func (s *service) GetByID(ctx context.Context, userID int) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// RefreshToken exchanges a refresh token for a new access token. The user
// row is re-read so a role change or deletion takes effect immediately.
func (s *service) RefreshToken(ctx context.Context, refreshToken, jwtSecret string) (string, *User, error) {
	_, claims, err := auth.RefreshAccessToken(refreshToken, jwtSecret, jwtSecret)
	if err != nil {
		return "", nil, err
	}

	u, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, ErrUserNotFound
	}

	newAccessToken, err := auth.GenerateAccessToken(u.ID, u.Email, u.Role, jwtSecret)
	if err != nil {
		return "", nil, err
	}
	return newAccessToken, u, nil
}
