package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	user, err := env.auth.SignUp(ctx, " Amina Wanjiru ", "Amina@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Amina Wanjiru", user.DisplayName)
	assert.Equal(t, "amina@example.com", user.Email)
	assert.Equal(t, domain.Rider, user.Role)
	assert.False(t, user.Verified)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	token, signedIn, err := env.auth.SignIn(ctx, "AMINA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "token-"+user.ID.String(), token)
	assert.Equal(t, user.ID, signedIn.ID)

	_, _, err = env.auth.SignIn(ctx, "amina@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrPermission)
	assert.Equal(t, "invalid email or password", domain.MessageOf(err))

	_, _, err = env.auth.SignIn(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, domain.ErrPermission)
	assert.Equal(t, "invalid email or password", domain.MessageOf(err))
}

func TestSignUp_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.auth.SignUp(ctx, "Amina", "amina@example.com", "secret123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		fullName string
		email    string
		password string
		want     string
	}{
		{"missing name", " ", "x@example.com", "secret123", "full name is required"},
		{"bad email", "X", "x-at-example", "secret123", "invalid email address"},
		{"short password", "X", "x@example.com", "12345", "password must be at least 6 characters long"},
		{"long password", "X", "x@example.com", strings.Repeat("a", 80), "password must be at most 72 bytes long"},
		{"duplicate email", "Other", "AMINA@example.com", "secret123", "email already in use"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.SignUp(ctx, tt.fullName, tt.email, tt.password)
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, tt.want, domain.MessageOf(err))
		})
	}
}

func TestUpdateEmergencyContacts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	rider := env.rider(t, "Rita")

	_, err := env.users.UpdateEmergencyContacts(ctx, rider, []domain.EmergencyContact{
		{Name: "Mum", Phone: "+254711111111", Relationship: "Mother"},
		{Name: "Boss", Phone: "+254722222222", Relationship: "Boss"},
	}, domain.MedicalInfo{})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, domain.MessageOf(err), "contact 2:")
	assert.Contains(t, domain.MessageOf(err), "relationship must be one of")

	_, err = env.users.UpdateEmergencyContacts(ctx, rider, nil, domain.MedicalInfo{BloodType: "C+"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	many := make([]domain.EmergencyContact, domain.MaxEmergencyContacts+1)
	for i := range many {
		many[i] = domain.EmergencyContact{Name: fmt.Sprintf("c%d", i), Phone: "1", Relationship: "Friend"}
	}
	_, err = env.users.UpdateEmergencyContacts(ctx, rider, many, domain.MedicalInfo{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	user, err := env.users.UpdateEmergencyContacts(ctx, rider, []domain.EmergencyContact{
		{Name: " Mum ", Phone: "+254711111111", Relationship: "Mother"},
	}, domain.MedicalInfo{BloodType: "O+", Allergies: "penicillin"})
	require.NoError(t, err)
	require.Len(t, user.EmergencyContacts, 1)
	assert.Equal(t, "Mum", user.EmergencyContacts[0].Name)
	assert.Equal(t, "O+", user.MedicalInfo.BloodType)

	profile, err := env.users.GetProfile(ctx, rider)
	require.NoError(t, err)
	assert.Equal(t, user.EmergencyContacts, profile.EmergencyContacts)
}

func TestSOS(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ride := env.createRide(t, 5)
	member, outsider := env.rider(t, "Member"), env.rider(t, "Outsider")

	_, err := env.rides.JoinRide(ctx, member, ride.ID)
	require.NoError(t, err)
	_, err = env.users.UpdateEmergencyContacts(ctx, member, []domain.EmergencyContact{
		{Name: "Mum", Phone: "+254711111111", Relationship: "Mother"},
	}, domain.MedicalInfo{})
	require.NoError(t, err)

	_, err = env.sos.Trigger(ctx, outsider, ride.ID, "help", nil)
	require.ErrorIs(t, err, domain.ErrPermission)
	assert.Equal(t, "only ride members can raise an SOS", domain.MessageOf(err))
	assert.ErrorIs(t, env.sos.CanWatch(ctx, outsider, ride.ID), domain.ErrPermission)

	alert, err := env.sos.Trigger(ctx, member, ride.ID, " flat tyre ", &domain.Coordinates{Lat: -0.5, Lng: 36.4})
	require.NoError(t, err)
	assert.Equal(t, "flat tyre", alert.Message)
	require.Len(t, alert.Contacts, 1)
	assert.Equal(t, "Mum", alert.Contacts[0].Name)
	assert.Equal(t, 1, env.metrics.sos)
	assert.Contains(t, env.events.types(), domain.EventSOSTriggered)

	_, err = env.sos.Trigger(ctx, env.organizer, ride.ID, "", nil)
	require.NoError(t, err, "the organizer is a member too")

	alerts, err := env.sos.ListAlerts(ctx, env.adminID, ride.ID)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
	assert.NoError(t, env.sos.CanWatch(ctx, member, ride.ID))

	_, err = env.rides.CancelRide(ctx, env.organizer, ride.ID)
	require.NoError(t, err)
	_, err = env.sos.Trigger(ctx, member, ride.ID, "", nil)
	assert.ErrorIs(t, err, domain.ErrState)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a, b := env.rider(t, "A"), env.rider(t, "B")
	env.createRide(t, 5)
	env.createRide(t, 5)

	_, err := env.verification.SubmitRequest(ctx, a, newApplication())
	require.NoError(t, err)
	req, err := env.verification.SubmitRequest(ctx, b, newApplication())
	require.NoError(t, err)
	_, err = env.verification.Approve(ctx, env.adminID, req.ID)
	require.NoError(t, err)

	_, err = env.admin.Dashboard(ctx, a)
	assert.ErrorIs(t, err, domain.ErrPermission)

	stats, err := env.admin.Dashboard(ctx, env.adminID)
	require.NoError(t, err)
	assert.Equal(t, &domain.DashboardStats{
		TotalUsers:         4,
		TotalRides:         2,
		PendingRequests:    1,
		VerifiedOrganizers: 2,
	}, stats)
}
