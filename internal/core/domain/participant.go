package domain

import (
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ParticipantFrom builds a roster entry for the given identity.
func ParticipantFrom(id Identity, at time.Time) Participant {
	name := id.DisplayName
	if name == "" {
		name = "Anonymous"
	}
	return Participant{
		UserID:      id.UserID,
		DisplayName: name,
		Email:       id.Email,
		JoinedAt:    at,
	}
}
