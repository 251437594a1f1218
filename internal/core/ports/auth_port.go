package ports

import "github.com/sm8ta/safaride_ride_microservice/internal/core/domain"

type TokenService interface {
	VerifyToken(token string) (*domain.TokenPayload, error)
}

type TokenIssuer interface {
	IssueToken(user *domain.User) (string, error)
}
