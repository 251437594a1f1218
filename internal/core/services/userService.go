package services

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
)

type UserService struct {
	userRepo ports.UserRepository
	logger   ports.LoggerPort
	validate *validator.Validate
}

func NewUserService(userRepo ports.UserRepository, logger ports.LoggerPort, validate *validator.Validate) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
		validate: validate,
	}
}

func (s *UserService) GetProfile(ctx context.Context, id domain.Identity) (*domain.User, error) {
	return actor(ctx, s.userRepo, "UserService.GetProfile", id)
}

// UpdateEmergencyContacts replaces the caller's emergency contacts and medical info.
func (s *UserService) UpdateEmergencyContacts(
	ctx context.Context,
	id domain.Identity,
	contacts []domain.EmergencyContact,
	medical domain.MedicalInfo,
) (*domain.User, error) {
	const op = "UserService.UpdateEmergencyContacts"

	user, err := actor(ctx, s.userRepo, op, id)
	if err != nil {
		return nil, err
	}

	if len(contacts) > domain.MaxEmergencyContacts {
		return nil, domain.ValidationError(op, "at most %d emergency contacts are allowed", domain.MaxEmergencyContacts)
	}
	cleaned := make([]domain.EmergencyContact, 0, len(contacts))
	for i, c := range contacts {
		c.Name = strings.TrimSpace(c.Name)
		c.Phone = strings.TrimSpace(c.Phone)
		c.Relationship = strings.TrimSpace(c.Relationship)
		if err := s.validate.Struct(c); err != nil {
			verr := validationError(op, err)
			return nil, domain.ValidationError(op, "contact %d: %s", i+1, domain.MessageOf(verr))
		}
		cleaned = append(cleaned, c)
	}

	medical.BloodType = strings.TrimSpace(medical.BloodType)
	medical.Allergies = strings.TrimSpace(medical.Allergies)
	medical.Conditions = strings.TrimSpace(medical.Conditions)
	if err := s.validate.Struct(medical); err != nil {
		return nil, validationError(op, err)
	}

	updated, err := s.userRepo.UpdateEmergencyInfo(ctx, user.ID, cleaned, medical)
	if err != nil {
		err = upstream(op, err)
		s.logger.Error("Failed to save emergency contacts", map[string]interface{}{
			"error":   err.Error(),
			"user_id": user.ID.String(),
		})
		return nil, err
	}

	s.logger.Info("Emergency contacts updated", map[string]interface{}{
		"user_id":        user.ID.String(),
		"contacts_count": len(cleaned),
	})
	return updated, nil
}
