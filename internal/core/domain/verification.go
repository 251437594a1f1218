package domain

import (
	"time"

	"github.com/google/uuid"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// swagger:model domain.VerificationRequest
type VerificationRequest struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"user_id"`
	Name            string             `json:"name" validate:"required,max=100"`
	Email           string             `json:"email" validate:"required,email"`
	Phone           string             `json:"phone" validate:"required,max=30"`
	Experience      string             `json:"experience" validate:"required,max=100"`
	LicenseNumber   string             `json:"license_number" validate:"required,max=50"`
	MotorcycleModel string             `json:"motorcycle_model" validate:"required,max=100"`
	Reason          string             `json:"reason,omitempty" validate:"max=2000"`
	DocumentRef     string             `json:"document_ref,omitempty" validate:"max=1024"`
	Status          VerificationStatus `json:"status"`
	ReviewedBy      *uuid.UUID         `json:"reviewed_by,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	ApprovedAt      *time.Time         `json:"approved_at,omitempty"`
	RejectedAt      *time.Time         `json:"rejected_at,omitempty"`
}

// Decision is the outcome an admin applies to a pending request.
type Decision struct {
	Status     VerificationStatus
	ReviewerID uuid.UUID
	At         time.Time
}

const MaxDocumentSize = 5 << 20
