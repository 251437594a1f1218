package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

// RideRepository is the ride document store. Every mutating method is atomic
// at the store level and returns typed domain errors (NotFound, State,
// Capacity, AlreadyJoined, NotParticipant) or an Upstream error.
type RideRepository interface {
	CreateRide(ctx context.Context, ride *domain.Ride) (*domain.Ride, error)
	GetRideByID(ctx context.Context, rideID uuid.UUID) (*domain.Ride, error)
	ListRides(ctx context.Context, filter domain.RideFilter) ([]*domain.Ride, error)
	CountRides(ctx context.Context) (int, error)
	// AddParticipant appends p only if the ride is joinable, p.UserID is not
	// on the roster and a seat is free.
	AddParticipant(ctx context.Context, rideID uuid.UUID, p domain.Participant) (*domain.Ride, error)
	// RemoveParticipant drops userID from a joinable ride, stamping UpdatedAt with at.
	RemoveParticipant(ctx context.Context, rideID, userID uuid.UUID, at time.Time) (*domain.Ride, error)
	// TransitionStatus moves the ride from one status to another only if it
	// is currently in from, stamping the matching timestamp with at.
	TransitionStatus(ctx context.Context, rideID uuid.UUID, from, to domain.RideStatus, at time.Time) (*domain.Ride, error)
	DeleteRide(ctx context.Context, rideID uuid.UUID, audit domain.RideAudit) error
}

type RouteProvider interface {
	Route(ctx context.Context, from, to domain.Coordinates) (*domain.Route, error)
}
