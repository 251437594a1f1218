package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventRideCreated           EventType = "ride.created"
	EventRideJoined            EventType = "ride.joined"
	EventRideLeft              EventType = "ride.left"
	EventRideStarted           EventType = "ride.started"
	EventRideCompleted         EventType = "ride.completed"
	EventRideCancelled         EventType = "ride.cancelled"
	EventRideDeleted           EventType = "ride.deleted"
	EventVerificationSubmitted EventType = "verification.submitted"
	EventVerificationApproved  EventType = "verification.approved"
	EventVerificationRejected  EventType = "verification.rejected"
	EventSOSTriggered          EventType = "sos.triggered"
)

// Event is published after a write has been committed.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       EventType   `json:"type"`
	RideID     uuid.UUID   `json:"ride_id,omitempty"`
	ActorID    uuid.UUID   `json:"actor_id"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func NewEvent(t EventType, rideID, actorID uuid.UUID, payload interface{}, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		RideID:     rideID,
		ActorID:    actorID,
		Payload:    payload,
		OccurredAt: at,
	}
}
