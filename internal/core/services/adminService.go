package services

import (
	"context"

	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
)

type AdminService struct {
	userRepo         ports.UserRepository
	rideRepo         ports.RideRepository
	verificationRepo ports.VerificationRepository
	logger           ports.LoggerPort
}

func NewAdminService(
	userRepo ports.UserRepository,
	rideRepo ports.RideRepository,
	verificationRepo ports.VerificationRepository,
	logger ports.LoggerPort,
) *AdminService {
	return &AdminService{
		userRepo:         userRepo,
		rideRepo:         rideRepo,
		verificationRepo: verificationRepo,
		logger:           logger,
	}
}

func (s *AdminService) Dashboard(ctx context.Context, id domain.Identity) (*domain.DashboardStats, error) {
	const op = "AdminService.Dashboard"

	admin, err := actor(ctx, s.userRepo, op, id)
	if err == nil {
		err = domain.Authorize(admin, domain.ActionViewDashboard, nil)
	}
	if err != nil {
		return nil, err
	}

	stats := &domain.DashboardStats{}
	if stats.TotalUsers, err = retryRead(ctx, op, func() (int, error) {
		return s.userRepo.CountUsers(ctx, "")
	}); err != nil {
		return nil, s.logFailure(err)
	}
	if stats.VerifiedOrganizers, err = retryRead(ctx, op, func() (int, error) {
		return s.userRepo.CountUsers(ctx, domain.Organizer)
	}); err != nil {
		return nil, s.logFailure(err)
	}
	if stats.TotalRides, err = retryRead(ctx, op, func() (int, error) {
		return s.rideRepo.CountRides(ctx)
	}); err != nil {
		return nil, s.logFailure(err)
	}
	pending, err := retryRead(ctx, op, func() ([]*domain.VerificationRequest, error) {
		return s.verificationRepo.ListRequests(ctx, domain.VerificationPending)
	})
	if err != nil {
		return nil, s.logFailure(err)
	}
	stats.PendingRequests = len(pending)

	return stats, nil
}

func (s *AdminService) logFailure(err error) error {
	s.logger.Error("Failed to build dashboard", map[string]interface{}{
		"error": err.Error(),
	})
	return err
}
