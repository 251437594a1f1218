package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApplication() *domain.VerificationRequest {
	return &domain.VerificationRequest{
		Name:            " Rita Rider ",
		Email:           "Rita@Example.com",
		Phone:           "+254700000000",
		Experience:      "5 years",
		LicenseNumber:   "DL-123456",
		MotorcycleModel: "Honda Africa Twin",
		Reason:          "I lead a weekend club",
	}
}

func TestSubmitRequest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	rider := env.rider(t, "Rita")

	req, err := env.verification.SubmitRequest(ctx, rider, newApplication())
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationPending, req.Status)
	assert.Equal(t, rider.UserID, req.UserID)
	assert.Equal(t, "Rita Rider", req.Name)
	assert.Equal(t, "rita@example.com", req.Email)
	assert.Contains(t, env.events.types(), domain.EventVerificationSubmitted)

	_, err = env.verification.SubmitRequest(ctx, rider, newApplication())
	assert.ErrorIs(t, err, domain.ErrState, "one pending request per user")

	_, err = env.verification.SubmitRequest(ctx, env.organizer, newApplication())
	assert.ErrorIs(t, err, domain.ErrState)
	assert.Equal(t, "user is already organizer", domain.MessageOf(err))
}

func TestSubmitRequest_Validation(t *testing.T) {
	env := newTestEnv(t)
	app := newApplication()
	app.LicenseNumber = ""
	app.Email = "not-an-email"

	_, err := env.verification.SubmitRequest(context.Background(), env.rider(t, "Rita"), app)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, domain.MessageOf(err), "license_number is required")
	assert.Contains(t, domain.MessageOf(err), "email must be a valid email")
}

func TestApproveRequest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	rider := env.rider(t, "Rita")

	req, err := env.verification.SubmitRequest(ctx, rider, newApplication())
	require.NoError(t, err)

	_, err = env.verification.Approve(ctx, rider, req.ID)
	assert.ErrorIs(t, err, domain.ErrPermission)
	_, err = env.verification.ListPending(ctx, env.organizer)
	assert.ErrorIs(t, err, domain.ErrPermission)

	pending, err := env.verification.ListPending(ctx, env.adminID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	_, err = env.rides.CreateRide(ctx, rider, newRide(5))
	assert.ErrorIs(t, err, domain.ErrPermission, "not an organizer yet")

	approved, err := env.verification.Approve(ctx, env.adminID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, env.adminID.UserID, *approved.ReviewedBy)
	assert.NotNil(t, approved.ApprovedAt)
	assert.Nil(t, approved.RejectedAt)

	user, err := env.store.GetUserByID(ctx, rider.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.Organizer, user.Role)
	assert.True(t, user.Verified)

	_, err = env.rides.CreateRide(ctx, rider, newRide(5))
	assert.NoError(t, err, "promotion takes effect without a new token")

	_, err = env.verification.Approve(ctx, env.adminID, req.ID)
	assert.ErrorIs(t, err, domain.ErrState)
	_, err = env.verification.Reject(ctx, env.adminID, req.ID)
	assert.ErrorIs(t, err, domain.ErrState)
	assert.Equal(t, "request already approved", domain.MessageOf(err))

	pending, err = env.verification.ListPending(ctx, env.adminID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRejectRequest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	rider := env.rider(t, "Rita")

	req, err := env.verification.SubmitRequest(ctx, rider, newApplication())
	require.NoError(t, err)

	rejected, err := env.verification.Reject(ctx, env.adminID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationRejected, rejected.Status)
	assert.NotNil(t, rejected.RejectedAt)

	user, err := env.store.GetUserByID(ctx, rider.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.Rider, user.Role)
	assert.False(t, user.Verified)

	_, err = env.verification.SubmitRequest(ctx, rider, newApplication())
	assert.NoError(t, err, "a rejected rider may apply again")

	_, err = env.verification.Approve(ctx, env.adminID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUploadDocument(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	rider := env.rider(t, "Rita")
	body := []byte("%PDF-1.4 fake")

	_, err := env.verification.UploadDocument(ctx, rider, "license.gif", "image/gif", int64(len(body)), bytes.NewReader(body))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.verification.UploadDocument(ctx, rider, "license.pdf", "application/pdf", domain.MaxDocumentSize+1, bytes.NewReader(body))
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "file size must be less than 5MB", domain.MessageOf(err))

	_, err = env.verification.UploadDocument(ctx, domain.Identity{}, "license.pdf", "application/pdf", int64(len(body)), bytes.NewReader(body))
	assert.ErrorIs(t, err, domain.ErrPermission)

	ref, err := env.verification.UploadDocument(ctx, rider, "../my license.pdf", "application/pdf", int64(len(body)), bytes.NewReader(body))
	require.NoError(t, err)
	key := strings.TrimPrefix(ref, "mem://")
	assert.True(t, strings.HasPrefix(key, "verification-documents/"+rider.UserID.String()+"/"))
	assert.True(t, strings.HasSuffix(key, "-my license.pdf"))

	data, contentType, ok := env.blobs.Get(key)
	require.True(t, ok)
	assert.Equal(t, body, data)
	assert.Equal(t, "application/pdf", contentType)
}
