package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	maxPasswordLength = 72
)

type AuthService struct {
	userRepo ports.UserRepository
	tokens   ports.TokenIssuer
	logger   ports.LoggerPort
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthService(
	userRepo ports.UserRepository,
	tokens ports.TokenIssuer,
	logger ports.LoggerPort,
	validate *validator.Validate,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
		validate: validate,
		now:      time.Now,
	}
}

// SignUp registers a rider account.
func (s *AuthService) SignUp(ctx context.Context, fullName, email, password string) (*domain.User, error) {
	const op = "AuthService.SignUp"

	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))

	if fullName == "" {
		return nil, domain.ValidationError(op, "full name is required")
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, domain.ValidationError(op, "invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, domain.ValidationError(op, "password must be at least 6 characters long")
	}
	if len(password) > maxPasswordLength {
		return nil, domain.ValidationError(op, "password must be at most 72 bytes long")
	}

	_, err := retryRead(ctx, op, func() (*domain.User, error) {
		return s.userRepo.GetUserByEmail(ctx, email)
	})
	switch {
	case err == nil:
		return nil, domain.ValidationError(op, "email already in use")
	case !errors.Is(err, domain.ErrNotFound):
		s.logger.Error("Failed to look up user by email", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.UpstreamError(op, err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:                uuid.New(),
		DisplayName:       fullName,
		Email:             email,
		PasswordHash:      string(hash),
		Role:              domain.Rider,
		Verified:          false,
		EmergencyContacts: []domain.EmergencyContact{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	created, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		err = upstream(op, err)
		s.logger.Error("Failed to create user", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	s.logger.Info("User signed up", map[string]interface{}{
		"user_id": created.ID.String(),
	})
	return created, nil
}

// SignIn checks credentials and returns a signed access token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	const op = "AuthService.SignIn"

	email = strings.ToLower(strings.TrimSpace(email))
	invalid := domain.PermissionError(op, "invalid email or password")

	user, err := retryRead(ctx, op, func() (*domain.User, error) {
		return s.userRepo.GetUserByEmail(ctx, email)
	})
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("Sign in with unknown email", nil)
		return "", nil, invalid
	}
	if err != nil {
		s.logger.Error("Failed to look up user by email", map[string]interface{}{
			"error": err.Error(),
		})
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Sign in with wrong password", map[string]interface{}{
			"user_id": user.ID.String(),
		})
		return "", nil, invalid
	}

	token, err := s.tokens.IssueToken(user)
	if err != nil {
		s.logger.Error("Failed to issue token", map[string]interface{}{
			"error":   err.Error(),
			"user_id": user.ID.String(),
		})
		return "", nil, domain.UpstreamError(op, err)
	}

	s.logger.Info("User signed in", map[string]interface{}{
		"user_id": user.ID.String(),
	})
	return token, user, nil
}
