package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRide(t *testing.T) {
	ctx := context.Background()

	t.Run("rider cannot create", func(t *testing.T) {
		env := newTestEnv(t)
		rider := env.rider(t, "Rita Rider")

		_, err := env.rides.CreateRide(ctx, rider, newRide(5))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrPermission)
		assert.Contains(t, domain.MessageOf(err), "verified organizers")
	})

	t.Run("defaults and empty roster", func(t *testing.T) {
		env := newTestEnv(t)
		in := newRide(0)
		in.RideType = ""

		ride, err := env.rides.CreateRide(ctx, env.organizer, in)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultMaxParticipants, ride.MaxParticipants)
		assert.Equal(t, domain.DefaultRideType, ride.RideType)
		assert.Equal(t, domain.RideUpcoming, ride.Status)
		assert.Equal(t, env.organizer.UserID, ride.OrganizerID)
		assert.Empty(t, ride.Participants)
		assert.False(t, ride.HasParticipant(env.organizer.UserID))
		assert.Equal(t, []domain.EventType{domain.EventRideCreated}, env.events.types())
	})

	t.Run("missing title", func(t *testing.T) {
		env := newTestEnv(t)
		in := newRide(5)
		in.Title = "   "

		_, err := env.rides.CreateRide(ctx, env.organizer, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, domain.MessageOf(err), "title")
	})

	t.Run("unknown ride type", func(t *testing.T) {
		env := newTestEnv(t)
		in := newRide(5)
		in.RideType = "Drag Race"

		_, err := env.rides.CreateRide(ctx, env.organizer, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown caller", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.rides.CreateRide(ctx, domain.Identity{UserID: uuid.New()}, newRide(5))
		assert.ErrorIs(t, err, domain.ErrPermission)
	})
}

func TestJoinRide_Capacity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ride := env.createRide(t, 2)
	a, b, c := env.rider(t, "A"), env.rider(t, "B"), env.rider(t, "C")

	_, err := env.rides.JoinRide(ctx, a, ride.ID)
	require.NoError(t, err)
	got, err := env.rides.JoinRide(ctx, b, ride.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 2)

	_, err = env.rides.JoinRide(ctx, c, ride.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCapacity)
	assert.Equal(t, "ride is full (2/2)", domain.MessageOf(err))

	stored, err := env.rides.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Participants, 2)
	assert.False(t, stored.HasParticipant(c.UserID))
}

func TestJoinRide_AlreadyJoined(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ride := env.createRide(t, 5)
	a := env.rider(t, "A")

	_, err := env.rides.JoinRide(ctx, a, ride.ID)
	require.NoError(t, err)
	_, err = env.rides.JoinRide(ctx, a, ride.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyJoined)

	stored, err := env.rides.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Participants, 1)
}

func TestJoinRide_UnknownRide(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.rides.JoinRide(context.Background(), env.rider(t, "A"), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJoinRide_ConcurrentLastSeat(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ride := env.createRide(t, 1)

	const riders = 20
	ids := make([]domain.Identity, riders)
	for i := range ids {
		ids[i] = env.rider(t, fmt.Sprintf("rider-%d", i))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		joined  int
		full    int
		unknown []error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.Identity) {
			defer wg.Done()
			_, err := env.rides.JoinRide(ctx, id, ride.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case errors.Is(err, domain.ErrCapacity):
				full++
			default:
				unknown = append(unknown, err)
			}
		}(id)
	}
	wg.Wait()

	assert.Empty(t, unknown)
	assert.Equal(t, 1, joined)
	assert.Equal(t, riders-1, full)

	stored, err := env.rides.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Participants, 1)
}

func TestLeaveRide(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ride := env.createRide(t, 1)
	a, b := env.rider(t, "A"), env.rider(t, "B")

	_, err := env.rides.JoinRide(ctx, a, ride.ID)
	require.NoError(t, err)

	_, err = env.rides.LeaveRide(ctx, b, ride.ID)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	leftAt := time.Date(2026, 11, 1, 9, 30, 0, 0, time.UTC)
	env.rides.now = func() time.Time { return leftAt }
	left, err := env.rides.LeaveRide(ctx, a, ride.ID)
	require.NoError(t, err)
	assert.Empty(t, left.Participants)
	assert.Equal(t, leftAt, left.UpdatedAt)

	_, err = env.rides.JoinRide(ctx, b, ride.ID)
	require.NoError(t, err, "the freed seat can be taken")

	_, err = env.rides.JoinRide(ctx, a, ride.ID)
	assert.ErrorIs(t, err, domain.ErrCapacity)
}

func TestRideLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ride := env.createRide(t, 5)
	a := env.rider(t, "A")
	_, err := env.rides.JoinRide(ctx, a, ride.ID)
	require.NoError(t, err)

	_, err = env.rides.StartRide(ctx, a, ride.ID)
	assert.ErrorIs(t, err, domain.ErrPermission, "participants cannot start a ride")

	_, err = env.rides.CompleteRide(ctx, env.organizer, ride.ID)
	assert.ErrorIs(t, err, domain.ErrState, "upcoming rides cannot complete")

	started, err := env.rides.StartRide(ctx, env.organizer, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideOngoing, started.Status)
	assert.NotNil(t, started.StartedAt)

	_, err = env.rides.StartRide(ctx, env.organizer, ride.ID)
	assert.ErrorIs(t, err, domain.ErrState)

	_, err = env.rides.CancelRide(ctx, env.organizer, ride.ID)
	assert.ErrorIs(t, err, domain.ErrState, "ongoing rides cannot be cancelled")

	done, err := env.rides.CompleteRide(ctx, env.organizer, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.Greater(t, done.Version, started.Version)

	_, err = env.rides.JoinRide(ctx, env.rider(t, "late"), ride.ID)
	assert.ErrorIs(t, err, domain.ErrState)
	_, err = env.rides.LeaveRide(ctx, a, ride.ID)
	assert.ErrorIs(t, err, domain.ErrState)

	assert.Equal(t, []domain.EventType{
		domain.EventRideCreated,
		domain.EventRideJoined,
		domain.EventRideStarted,
		domain.EventRideCompleted,
	}, env.events.types())
}

func TestCancelRide_KeepsRecord(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ride := env.createRide(t, 5)

	_, err := env.rides.CancelRide(ctx, env.adminID, ride.ID)
	assert.ErrorIs(t, err, domain.ErrPermission, "only the organizer cancels")

	cancelled, err := env.rides.CancelRide(ctx, env.organizer, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideCancelled, cancelled.Status)

	stored, err := env.rides.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideCancelled, stored.Status)
	assert.NotNil(t, stored.CancelledAt)

	_, err = env.rides.StartRide(ctx, env.organizer, ride.ID)
	assert.ErrorIs(t, err, domain.ErrState)

	rides, err := env.rides.ListJoinable(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, rides)
}

func TestDeleteRide(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ride := env.createRide(t, 5)

	err := env.rides.DeleteRide(ctx, env.organizer, ride.ID, "duplicate")
	assert.ErrorIs(t, err, domain.ErrPermission)

	err = env.rides.DeleteRide(ctx, env.adminID, ride.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, env.rides.DeleteRide(ctx, env.adminID, ride.ID, "duplicate listing"))

	_, err = env.rides.GetRide(ctx, ride.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	audits := env.store.Audits()
	require.Len(t, audits, 1)
	assert.Equal(t, ride.ID, audits[0].RideID)
	assert.Equal(t, env.adminID.UserID, audits[0].ActorID)
	assert.Equal(t, "duplicate listing", audits[0].Reason)
	assert.Contains(t, string(audits[0].Snapshot), ride.Title)
}

func TestJoinable_Pages(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.rides.SetPageSize(2)

	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	env.rides.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	var created []uuid.UUID
	for i := 0; i < 5; i++ {
		in := newRide(5)
		if i == 4 {
			in.RideType = "City Tour"
		}
		r, err := env.rides.CreateRide(ctx, env.organizer, in)
		require.NoError(t, err)
		created = append(created, r.ID)
	}
	_, err := env.rides.CancelRide(ctx, env.organizer, created[1])
	require.NoError(t, err)

	all, err := env.rides.ListJoinable(ctx, "All Rides")
	require.NoError(t, err)
	var got []uuid.UUID
	for _, r := range all {
		got = append(got, r.ID)
	}
	assert.Equal(t, []uuid.UUID{created[0], created[2], created[3], created[4]}, got)

	tours, err := env.rides.ListJoinable(ctx, "City Tour")
	require.NoError(t, err)
	require.Len(t, tours, 1)
	assert.Equal(t, created[4], tours[0].ID)

	_, err = env.rides.ListJoinable(ctx, "Drag Race")
	assert.ErrorIs(t, err, domain.ErrValidation)

	n := 0
	for range env.rides.Joinable(ctx, "") {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestMyRides(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.rider(t, "A")

	for i := 0; i < 4; i++ {
		r := env.createRide(t, 5)
		if i%2 == 0 {
			_, err := env.rides.JoinRide(ctx, a, r.ID)
			require.NoError(t, err)
		}
	}

	mine, err := env.rides.MyRides(ctx, env.organizer, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 3, "default limit")

	mine, err = env.rides.MyRides(ctx, env.organizer, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 4)
	for i := 1; i < len(mine); i++ {
		assert.False(t, mine[i].CreatedAt.After(mine[i-1].CreatedAt), "newest first")
	}

	joined, err := env.rides.MyRides(ctx, a, 10)
	require.NoError(t, err)
	assert.Len(t, joined, 2)
}

func TestSideEffectFailureDoesNotFailJoin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ride := env.createRide(t, 5)
	env.events.err = errors.New("broker down")

	_, err := env.rides.JoinRide(ctx, env.rider(t, "A"), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.metrics.sideEffects)
	assert.True(t, env.logger.has("warn", "Failed to publish event"))

	env.alerts.mu.Lock()
	defer env.alerts.mu.Unlock()
	sent := env.alerts.sent[ride.ID]
	require.Len(t, sent, 2, "live subscribers still hear about it")
	assert.Equal(t, domain.EventRideCreated, sent[0].Type)
	assert.Equal(t, domain.EventRideJoined, sent[1].Type)
}

func TestEstimateRoute(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.rides.EstimateRoute(context.Background(), domain.Coordinates{Lat: 95}, domain.Coordinates{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.rides.EstimateRoute(context.Background(), domain.Coordinates{Lat: -1.28, Lng: 36.82}, domain.Coordinates{Lat: -0.72, Lng: 36.43})
	assert.ErrorIs(t, err, domain.ErrUpstream, "no provider configured")
}
