package domain

import (
	"time"

	"github.com/google/uuid"
)

type SOSAlert struct {
	ID          uuid.UUID          `json:"id"`
	RideID      uuid.UUID          `json:"ride_id"`
	UserID      uuid.UUID          `json:"user_id"`
	DisplayName string             `json:"display_name"`
	Message     string             `json:"message,omitempty" validate:"max=500"`
	Location    *Coordinates       `json:"location,omitempty" validate:"omitempty"`
	Contacts    []EmergencyContact `json:"contacts"`
	CreatedAt   time.Time          `json:"created_at"`
}
