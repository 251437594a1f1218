package domain

import (
	"github.com/google/uuid"
)

type TokenPayload struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Role   UserRole
	Name   string
	Email  string
}

// Identity is the authenticated caller passed explicitly into every service call.
type Identity struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
}

func (p *TokenPayload) Identity() Identity {
	return Identity{
		UserID:      p.UserID,
		DisplayName: p.Name,
		Email:       p.Email,
	}
}
