package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
)

type SOSService struct {
	sosRepo  ports.SOSRepository
	rideRepo ports.RideRepository
	userRepo ports.UserRepository
	logger   ports.LoggerPort
	validate *validator.Validate
	metrics  ports.MetricsPort
	notifier *Notifier
	now      func() time.Time
}

func NewSOSService(
	sosRepo ports.SOSRepository,
	rideRepo ports.RideRepository,
	userRepo ports.UserRepository,
	logger ports.LoggerPort,
	validate *validator.Validate,
	metrics ports.MetricsPort,
	notifier *Notifier,
) *SOSService {
	return &SOSService{
		sosRepo:  sosRepo,
		rideRepo: rideRepo,
		userRepo: userRepo,
		logger:   logger,
		validate: validate,
		metrics:  metrics,
		notifier: notifier,
		now:      time.Now,
	}
}

// Trigger raises an emergency alert on a ride the caller belongs to.
func (s *SOSService) Trigger(
	ctx context.Context,
	id domain.Identity,
	rideID uuid.UUID,
	message string,
	location *domain.Coordinates,
) (*domain.SOSAlert, error) {
	const op = "SOSService.Trigger"
	fields := map[string]interface{}{"ride_id": rideID.String(), "user_id": id.UserID.String()}

	user, err := actor(ctx, s.userRepo, op, id)
	if err != nil {
		return nil, err
	}

	ride, err := retryRead(ctx, op, func() (*domain.Ride, error) {
		return s.rideRepo.GetRideByID(ctx, rideID)
	})
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Error("Failed to load ride for SOS", fields)
		return nil, err
	}
	if !ride.IsMember(user.ID) {
		s.logger.Warn("SOS from non-member rejected", fields)
		return nil, domain.PermissionError(op, "only ride members can raise an SOS")
	}
	if !ride.Status.Joinable() {
		return nil, domain.StateError(op, "ride is %s", ride.Status)
	}

	alert := &domain.SOSAlert{
		ID:          uuid.New(),
		RideID:      ride.ID,
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Message:     strings.TrimSpace(message),
		Location:    location,
		Contacts:    append([]domain.EmergencyContact{}, user.EmergencyContacts...),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.validate.Struct(alert); err != nil {
		return nil, validationError(op, err)
	}

	created, err := s.sosRepo.CreateAlert(ctx, alert)
	if err != nil {
		err = upstream(op, err)
		fields["error"] = err.Error()
		s.logger.Error("Failed to save SOS alert", fields)
		return nil, err
	}

	s.metrics.RecordSOS()
	s.logger.Warn("SOS triggered", map[string]interface{}{
		"alert_id": created.ID.String(),
		"ride_id":  created.RideID.String(),
		"user_id":  created.UserID.String(),
		"contacts": len(created.Contacts),
	})
	s.notifier.Publish(ctx, domain.NewEvent(domain.EventSOSTriggered, ride.ID, user.ID, created, created.CreatedAt))

	return created, nil
}

func (s *SOSService) ListAlerts(ctx context.Context, id domain.Identity, rideID uuid.UUID) ([]*domain.SOSAlert, error) {
	const op = "SOSService.ListAlerts"

	if err := s.checkWatcher(ctx, op, id, rideID); err != nil {
		return nil, err
	}
	return retryRead(ctx, op, func() ([]*domain.SOSAlert, error) {
		return s.sosRepo.ListAlertsByRide(ctx, rideID)
	})
}

// CanWatch reports whether the caller may subscribe to a ride's live alerts.
func (s *SOSService) CanWatch(ctx context.Context, id domain.Identity, rideID uuid.UUID) error {
	return s.checkWatcher(ctx, "SOSService.CanWatch", id, rideID)
}

// checkWatcher admits ride members and admins.
func (s *SOSService) checkWatcher(ctx context.Context, op string, id domain.Identity, rideID uuid.UUID) error {
	user, err := actor(ctx, s.userRepo, op, id)
	if err != nil {
		return err
	}
	ride, err := retryRead(ctx, op, func() (*domain.Ride, error) {
		return s.rideRepo.GetRideByID(ctx, rideID)
	})
	if err != nil {
		return err
	}
	if !ride.IsMember(user.ID) && user.Role != domain.Admin {
		return domain.PermissionError(op, "only ride members can view alerts")
	}
	return nil
}
