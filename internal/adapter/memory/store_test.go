package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC)

func seedRide(t *testing.T, s *Store, maxParticipants int, createdAt time.Time) *domain.Ride {
	t.Helper()
	r, err := s.CreateRide(context.Background(), &domain.Ride{
		ID:              uuid.New(),
		Title:           "Sunday run",
		OrganizerID:     uuid.New(),
		MaxParticipants: maxParticipants,
		Status:          domain.RideUpcoming,
		RideType:        domain.DefaultRideType,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	})
	require.NoError(t, err)
	return r
}

func seedUser(t *testing.T, s *Store) uuid.UUID {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &domain.User{
		ID:    uuid.New(),
		Email: uuid.NewString() + "@example.com",
		Role:  domain.Rider,
	})
	require.NoError(t, err)
	return u.ID
}

func TestStore_CopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	r := seedRide(t, s, 3, base)

	_, err := s.AddParticipant(ctx, r.ID, domain.Participant{UserID: seedUser(t, s), JoinedAt: base})
	require.NoError(t, err)

	got, err := s.GetRideByID(ctx, r.ID)
	require.NoError(t, err)
	got.Participants[0].DisplayName = "mutated"
	got.Title = "mutated"

	again, err := s.GetRideByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunday run", again.Title)
	assert.Empty(t, again.Participants[0].DisplayName)
	assert.Equal(t, int64(1), again.Version)
}

func TestStore_AddParticipantErrorOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	r := seedRide(t, s, 1, base)
	first, second := seedUser(t, s), seedUser(t, s)

	_, err := s.AddParticipant(ctx, uuid.New(), domain.Participant{UserID: first})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.AddParticipant(ctx, r.ID, domain.Participant{UserID: uuid.New()})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "user not found", domain.MessageOf(err))
	ride, err := s.GetRideByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, ride.Participants)

	_, err = s.AddParticipant(ctx, r.ID, domain.Participant{UserID: first})
	require.NoError(t, err)

	_, err = s.AddParticipant(ctx, r.ID, domain.Participant{UserID: first})
	assert.ErrorIs(t, err, domain.ErrAlreadyJoined, "duplicate wins over a full ride")

	_, err = s.AddParticipant(ctx, r.ID, domain.Participant{UserID: second})
	assert.ErrorIs(t, err, domain.ErrCapacity)

	_, err = s.TransitionStatus(ctx, r.ID, domain.RideUpcoming, domain.RideCancelled, base)
	require.NoError(t, err)
	_, err = s.AddParticipant(ctx, r.ID, domain.Participant{UserID: first})
	assert.ErrorIs(t, err, domain.ErrState, "state wins over duplicate")
}

func TestStore_RemoveParticipant(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	r := seedRide(t, s, 3, base)
	a, b := seedUser(t, s), seedUser(t, s)
	for _, id := range []uuid.UUID{a, b} {
		_, err := s.AddParticipant(ctx, r.ID, domain.Participant{UserID: id})
		require.NoError(t, err)
	}

	leftAt := base.Add(30 * time.Minute)
	got, err := s.RemoveParticipant(ctx, r.ID, a, leftAt)
	require.NoError(t, err)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, b, got.Participants[0].UserID)
	assert.Equal(t, leftAt, got.UpdatedAt)

	_, err = s.RemoveParticipant(ctx, r.ID, a, leftAt)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	_, err = s.TransitionStatus(ctx, r.ID, domain.RideUpcoming, domain.RideOngoing, base)
	require.NoError(t, err)
	_, err = s.TransitionStatus(ctx, r.ID, domain.RideOngoing, domain.RideCompleted, base)
	require.NoError(t, err)
	_, err = s.RemoveParticipant(ctx, r.ID, b, leftAt)
	assert.ErrorIs(t, err, domain.ErrState)
}

func TestStore_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	r := seedRide(t, s, 3, base)
	at := base.Add(time.Hour)

	got, err := s.TransitionStatus(ctx, r.ID, domain.RideUpcoming, domain.RideOngoing, at)
	require.NoError(t, err)
	require.NotNil(t, got.StartedAt)
	assert.Equal(t, at, *got.StartedAt)

	_, err = s.TransitionStatus(ctx, r.ID, domain.RideUpcoming, domain.RideOngoing, at)
	require.ErrorIs(t, err, domain.ErrState)
	assert.Equal(t, "ride is ongoing", domain.MessageOf(err))
}

func TestStore_ListRidesKeyset(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	var rides []*domain.Ride
	for i := 0; i < 5; i++ {
		rides = append(rides, seedRide(t, s, 3, base.Add(time.Duration(i)*time.Minute)))
	}
	_, err := s.TransitionStatus(ctx, rides[2].ID, domain.RideUpcoming, domain.RideCancelled, base)
	require.NoError(t, err)

	filter := domain.RideFilter{Statuses: []domain.RideStatus{domain.RideUpcoming}, Limit: 2}
	page, err := s.ListRides(ctx, filter)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, rides[0].ID, page[0].ID)
	assert.Equal(t, rides[1].ID, page[1].ID)

	filter.After = domain.CursorOf(page[1])
	page, err = s.ListRides(ctx, filter)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, rides[3].ID, page[0].ID, "cancelled ride skipped")
	assert.Equal(t, rides[4].ID, page[1].ID)

	newest, err := s.ListRides(ctx, domain.RideFilter{Newest: true, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, rides[4].ID, newest[0].ID)
}

func TestStore_DeleteRideAudit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	r := seedRide(t, s, 3, base)
	admin := uuid.New()

	require.NoError(t, s.DeleteRide(ctx, r.ID, domain.RideAudit{RideID: r.ID, Action: "delete", ActorID: admin, Snapshot: []byte(`{}`)}))
	_, err := s.GetRideByID(ctx, r.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRide(ctx, r.ID, domain.RideAudit{}), domain.ErrNotFound)

	audits := s.Audits()
	require.Len(t, audits, 1)
	assert.Equal(t, admin, audits[0].ActorID)
}

func TestStore_DecideRequest(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user, err := s.CreateUser(ctx, &domain.User{ID: uuid.New(), Email: "Rider@Example.com", Role: domain.Rider})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, &domain.User{ID: uuid.New(), Email: "rider@example.com"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	req, err := s.CreateRequest(ctx, &domain.VerificationRequest{ID: uuid.New(), UserID: user.ID, Status: domain.VerificationPending, CreatedAt: base})
	require.NoError(t, err)
	pending, err := s.HasPendingRequest(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, pending)

	reviewer := uuid.New()
	got, err := s.DecideRequest(ctx, req.ID, domain.Decision{Status: domain.VerificationApproved, ReviewerID: reviewer, At: base})
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationApproved, got.Status)
	assert.Equal(t, reviewer, *got.ReviewedBy)

	promoted, err := s.GetUserByEmail(ctx, "RIDER@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.Organizer, promoted.Role)
	assert.True(t, promoted.Verified)

	_, err = s.DecideRequest(ctx, req.ID, domain.Decision{Status: domain.VerificationRejected, ReviewerID: reviewer, At: base})
	assert.ErrorIs(t, err, domain.ErrState)

	organizers, err := s.CountUsers(ctx, domain.Organizer)
	require.NoError(t, err)
	assert.Equal(t, 1, organizers)
}

func TestBlobStore(t *testing.T) {
	b := NewBlobStore()
	ref, err := b.Upload(context.Background(), "docs/a.pdf", "application/pdf", strings.NewReader("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "mem://docs/a.pdf", ref)

	data, ct, ok := b.Get("docs/a.pdf")
	require.True(t, ok)
	assert.Equal(t, "pdf", string(data))
	assert.Equal(t, "application/pdf", ct)

	_, _, ok = b.Get("missing")
	assert.False(t, ok)
}
