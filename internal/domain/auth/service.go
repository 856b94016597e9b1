package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/pkg/logger"
)

// Service handles login and user registration.
type Service struct {
	repo Repository
	jwt  *JWTService
}

func NewService(repo Repository, jwt *JWTService) *Service {
	return &Service{repo: repo, jwt: jwt}
}

// LoginResult is the successful login payload.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// Login verifies credentials and issues an access token. Wrong email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !user.Active {
		return nil, apperror.NewUnauthorized("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.repo.Save(ctx, user); err != nil {
		logger.Warn(ctx, "record last login failed", "user", user.ID, "error", err)
	}

	logger.Info(ctx, "user logged in", "user", user.ID, "admin", user.AdminID)
	user.PasswordHash = ""
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Register creates a tenant user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, user *User, password string) error {
	if user.Email == "" || password == "" {
		return apperror.NewValidation("email and password are required")
	}
	if user.Role != RoleAdmin && user.Role != RoleCashier {
		return apperror.NewValidation("unknown role").WithDetail("role", user.Role)
	}
	if existing, err := s.repo.GetByEmail(ctx, user.Email); err == nil && existing != nil {
		return apperror.NewDuplicate("user", "email", user.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperror.NewInternal(err)
	}
	user.PasswordHash = string(hash)
	user.Active = true
	user.CreatedAt = time.Now().UTC()
	return s.repo.Save(ctx, user)
}
