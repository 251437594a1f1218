package domain

import (
	"time"

	"github.com/google/uuid"
)

const DefaultMaxParticipants = 10

// swagger:model domain.Ride
type Ride struct {
	ID                 uuid.UUID     `json:"id"`
	Title              string        `json:"title" validate:"required,max=200"`
	MeetingPoint       string        `json:"meeting_point" validate:"required,max=500"`
	MeetingPointCoords *Coordinates  `json:"meeting_point_coords,omitempty" validate:"omitempty"`
	Destination        string        `json:"destination" validate:"required,max=500"`
	DestinationCoords  *Coordinates  `json:"destination_coords,omitempty" validate:"omitempty"`
	Date               string        `json:"date" validate:"required"`
	Time               string        `json:"time" validate:"required"`
	Duration           string        `json:"duration" validate:"required"`
	RideType           string        `json:"ride_type" validate:"ridetype"`
	Description        string        `json:"description,omitempty" validate:"max=2000"`
	OrganizerID        uuid.UUID     `json:"organizer_id"`
	OrganizerName      string        `json:"organizer_name"`
	OrganizerEmail     string        `json:"organizer_email"`
	Participants       []Participant `json:"participants"`
	MaxParticipants    int           `json:"max_participants" validate:"min=1,max=1000"`
	Status             RideStatus    `json:"status"`
	Version            int64         `json:"version"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	StartedAt          *time.Time    `json:"started_at,omitempty"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
}

type RideStatus string

const (
	RideUpcoming  RideStatus = "upcoming"
	RideOngoing   RideStatus = "ongoing"
	RideCompleted RideStatus = "completed"
	RideCancelled RideStatus = "cancelled"
)

// Joinable reports whether riders may still join or leave.
func (s RideStatus) Joinable() bool {
	return s == RideUpcoming || s == RideOngoing
}

// Terminal statuses have no outgoing transition.
func (s RideStatus) Terminal() bool {
	return s == RideCompleted || s == RideCancelled
}

// NextStatus returns the status reached from s through action, or false
// when the state machine has no such edge.
func NextStatus(s RideStatus, action Action) (RideStatus, bool) {
	switch {
	case s == RideUpcoming && action == ActionStartRide:
		return RideOngoing, true
	case s == RideOngoing && action == ActionCompleteRide:
		return RideCompleted, true
	case s == RideUpcoming && action == ActionCancelRide:
		return RideCancelled, true
	}
	return "", false
}

var RideTypes = []string{
	"Short Ride",
	"Long Ride",
	"Mountain Ride",
	"City Tour",
	"Highway Cruise",
	"Off-Road Adventure",
}

const DefaultRideType = "Short Ride"

func IsRideType(v string) bool {
	for _, t := range RideTypes {
		if t == v {
			return true
		}
	}
	return false
}

type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// HasParticipant reports whether userID is on the roster.
func (r *Ride) HasParticipant(userID uuid.UUID) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// IsMember is true for the organizer and every participant.
func (r *Ride) IsMember(userID uuid.UUID) bool {
	return r.OrganizerID == userID || r.HasParticipant(userID)
}

func (r *Ride) SeatsLeft() int {
	left := r.MaxParticipants - len(r.Participants)
	if left < 0 {
		return 0
	}
	return left
}

// RideFilter selects rides for listing. Zero values mean "any".
type RideFilter struct {
	Statuses      []RideStatus
	RideType      string
	ParticipantID uuid.UUID
	MemberID      uuid.UUID
	After         *RideCursor
	Newest        bool
	Limit         int
}

// RideCursor is a keyset position in (created_at, id) order.
type RideCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func CursorOf(r *Ride) *RideCursor {
	return &RideCursor{CreatedAt: r.CreatedAt, ID: r.ID}
}

// RideAudit records an administrative removal of a ride.
type RideAudit struct {
	RideID    uuid.UUID `json:"ride_id"`
	Action    string    `json:"action"`
	ActorID   uuid.UUID `json:"actor_id"`
	Reason    string    `json:"reason"`
	Snapshot  []byte    `json:"snapshot"`
	CreatedAt time.Time `json:"created_at"`
}

type Route struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}
