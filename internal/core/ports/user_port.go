package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateEmergencyInfo(ctx context.Context, userID uuid.UUID, contacts []domain.EmergencyContact, medical domain.MedicalInfo) (*domain.User, error)
	CountUsers(ctx context.Context, role domain.UserRole) (int, error)
}
