package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
)

const defaultTokenDuration = 24 * time.Hour

// accessClaims is the body of an access token. "id" identifies the token
// itself, "user_id" the account.
type accessClaims struct {
	TokenID string `json:"id"`
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type JWTTokenService struct {
	secretKey []byte
	duration  time.Duration
	logger    ports.LoggerPort
}

func NewJWTTokenService(secretKey string, duration time.Duration, logger ports.LoggerPort) *JWTTokenService {
	if duration <= 0 {
		duration = defaultTokenDuration
	}
	return &JWTTokenService{
		secretKey: []byte(secretKey),
		duration:  duration,
		logger:    logger,
	}
}

// IssueToken signs an HS256 access token for user.
func (j *JWTTokenService) IssueToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := accessClaims{
		TokenID: uuid.NewString(),
		UserID:  user.ID.String(),
		Role:    string(user.Role),
		Name:    user.DisplayName,
		Email:   user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.duration)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken accepts only unexpired HS256 tokens signed with our key.
func (j *JWTTokenService) VerifyToken(token string) (*domain.TokenPayload, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		j.logger.Warn("Failed to parse jwt", map[string]interface{}{
			"error":  err.Error(),
			"method": "VerifyToken",
		})
		return nil, err
	}

	id, err := uuid.Parse(claims.TokenID)
	if err != nil {
		return nil, errors.New("invalid token id")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errors.New("invalid user_id claim")
	}
	role := domain.UserRole(claims.Role)
	if !role.Valid() {
		j.logger.Warn("Invalid role in token", map[string]interface{}{
			"role":   claims.Role,
			"method": "VerifyToken",
		})
		return nil, errors.New("invalid role value")
	}

	return &domain.TokenPayload{
		ID:     id,
		UserID: userID,
		Role:   role,
		Name:   claims.Name,
		Email:  claims.Email,
	}, nil
}
