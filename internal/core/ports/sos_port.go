package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

type SOSRepository interface {
	CreateAlert(ctx context.Context, alert *domain.SOSAlert) (*domain.SOSAlert, error)
	ListAlertsByRide(ctx context.Context, rideID uuid.UUID) ([]*domain.SOSAlert, error)
}

// AlertBroadcaster pushes live messages to clients watching a ride.
type AlertBroadcaster interface {
	Broadcast(rideID uuid.UUID, event domain.Event) int
}
