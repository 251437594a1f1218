package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	Rider     UserRole = "rider"
	Organizer UserRole = "organizer"
	Admin     UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == Rider || r == Organizer || r == Admin
}

type User struct {
	ID                uuid.UUID          `json:"uid"`
	DisplayName       string             `json:"display_name"`
	Email             string             `json:"email"`
	PasswordHash      string             `json:"-"`
	Role              UserRole           `json:"role"`
	Verified          bool               `json:"verified"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts"`
	MedicalInfo       MedicalInfo        `json:"medical_info"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

const MaxEmergencyContacts = 10

type EmergencyContact struct {
	Name         string `json:"name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,max=30"`
	Relationship string `json:"relationship" validate:"required,oneof=Father Mother Spouse Sibling Friend Relative Other"`
}

type MedicalInfo struct {
	BloodType  string `json:"blood_type" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies  string `json:"allergies" validate:"max=500"`
	Conditions string `json:"conditions" validate:"max=500"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalUsers         int `json:"total_users"`
	TotalRides         int `json:"total_rides"`
	PendingRequests    int `json:"pending_requests"`
	VerifiedOrganizers int `json:"verified_organizers"`
}
