package services

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
)

const (
	rideCacheTTL    = 15 * time.Minute
	joinablePage    = 50
	defaultMyRides  = 3
	maxMyRidesLimit = 100
)

type RideService struct {
	rideRepo ports.RideRepository
	userRepo ports.UserRepository
	routes   ports.RouteProvider
	logger   ports.LoggerPort
	validate *validator.Validate
	cache    ports.CachePort
	metrics  ports.MetricsPort
	notifier *Notifier
	now      func() time.Time
	pageSize int
}

func NewRideService(
	rideRepo ports.RideRepository,
	userRepo ports.UserRepository,
	routes ports.RouteProvider,
	logger ports.LoggerPort,
	validate *validator.Validate,
	cache ports.CachePort,
	metrics ports.MetricsPort,
	notifier *Notifier,
) *RideService {
	return &RideService{
		rideRepo: rideRepo,
		userRepo: userRepo,
		routes:   routes,
		logger:   logger,
		validate: validate,
		cache:    cache,
		metrics:  metrics,
		notifier: notifier,
		now:      time.Now,
		pageSize: joinablePage,
	}
}

// SetPageSize changes how many rides Joinable fetches per store round trip.
func (s *RideService) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

// actor loads the caller's user record; the role always comes from the store.
func actor(ctx context.Context, users ports.UserRepository, op string, id domain.Identity) (*domain.User, error) {
	if id.UserID == uuid.Nil {
		return nil, domain.PermissionError(op, "authentication required")
	}
	user, err := retryRead(ctx, op, func() (*domain.User, error) {
		return users.GetUserByID(ctx, id.UserID)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.PermissionError(op, "unknown user")
	}
	return user, err
}

func (s *RideService) fail(op string, err error, fields map[string]interface{}) error {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["error"] = err.Error()
	fields["op"] = op
	switch domain.KindOf(err) {
	case domain.KindUpstream, "":
		s.logger.Error("Ride operation failed", fields)
	default:
		s.logger.Warn("Ride operation rejected", fields)
	}
	outcome := string(domain.KindOf(err))
	if outcome == "" {
		outcome = "internal"
	}
	s.metrics.RecordRideOperation(op, outcome)
	return err
}

func normalizeRide(r *domain.Ride) {
	r.Title = strings.TrimSpace(r.Title)
	r.MeetingPoint = strings.TrimSpace(r.MeetingPoint)
	r.Destination = strings.TrimSpace(r.Destination)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Duration = strings.TrimSpace(r.Duration)
	r.RideType = strings.TrimSpace(r.RideType)
	r.Description = strings.TrimSpace(r.Description)
	if r.RideType == "" {
		r.RideType = domain.DefaultRideType
	}
	if r.MaxParticipants == 0 {
		r.MaxParticipants = domain.DefaultMaxParticipants
	}
}

func (s *RideService) CreateRide(ctx context.Context, id domain.Identity, ride *domain.Ride) (*domain.Ride, error) {
	const op = "RideService.CreateRide"

	organizer, err := actor(ctx, s.userRepo, op, id)
	if err != nil {
		return nil, s.fail(op, err, map[string]interface{}{"user_id": id.UserID.String()})
	}
	if err := domain.Authorize(organizer, domain.ActionCreateRide, nil); err != nil {
		return nil, s.fail(op, err, map[string]interface{}{
			"user_id": id.UserID.String(),
			"role":    string(organizer.Role),
		})
	}

	normalizeRide(ride)
	if err := s.validate.Struct(ride); err != nil {
		return nil, s.fail(op, validationError(op, err), map[string]interface{}{"user_id": id.UserID.String()})
	}

	now := s.now().UTC()
	ride.ID = uuid.New()
	ride.OrganizerID = organizer.ID
	ride.OrganizerName = id.DisplayName
	if ride.OrganizerName == "" {
		ride.OrganizerName = organizer.DisplayName
	}
	ride.OrganizerEmail = organizer.Email
	ride.Participants = []domain.Participant{}
	ride.Status = domain.RideUpcoming
	ride.Version = 1
	ride.CreatedAt = now
	ride.UpdatedAt = now
	ride.StartedAt, ride.CompletedAt, ride.CancelledAt = nil, nil, nil

	created, err := s.rideRepo.CreateRide(ctx, ride)
	if err != nil {
		return nil, s.fail(op, upstream(op, err), map[string]interface{}{"user_id": id.UserID.String()})
	}

	s.logger.Info("Ride created successfully", map[string]interface{}{
		"ride_id":      created.ID.String(),
		"organizer_id": created.OrganizerID.String(),
	})
	s.metrics.RecordRideOperation(op, "ok")
	s.notifier.Publish(ctx, domain.NewEvent(domain.EventRideCreated, created.ID, organizer.ID, created, now))

	return created, nil
}

func (s *RideService) GetRide(ctx context.Context, rideID uuid.UUID) (*domain.Ride, error) {
	const op = "RideService.GetRide"

	cacheKey := rideCacheKey(rideID)
	if s.cache != nil {
		cachedData, err := s.cache.Get(cacheKey)
		if err == nil {
			var cachedRide domain.Ride
			if err := json.Unmarshal(cachedData, &cachedRide); err == nil {
				s.logger.Debug("Ride found in cache", map[string]interface{}{
					"ride_id": rideID.String(),
				})
				return &cachedRide, nil
			}
		} else if !errors.Is(err, ports.ErrCacheMiss) {
			s.logger.Warn("Ride cache read failed", map[string]interface{}{
				"error":   err.Error(),
				"ride_id": rideID.String(),
			})
		}
	}

	ride, err := retryRead(ctx, op, func() (*domain.Ride, error) {
		return s.rideRepo.GetRideByID(ctx, rideID)
	})
	if err != nil {
		return nil, s.fail(op, err, map[string]interface{}{"ride_id": rideID.String()})
	}

	if s.cache != nil {
		rideData, err := json.Marshal(ride)
		if err != nil {
			s.logger.Warn("Failed to marshal ride for cache", map[string]interface{}{
				"error":   err.Error(),
				"ride_id": rideID.String(),
			})
		} else if err := s.cache.Set(cacheKey, rideData, rideCacheTTL); err != nil {
			s.logger.Warn("Failed to cache ride", map[string]interface{}{
				"error":   err.Error(),
				"ride_id": rideID.String(),
			})
		}
	}

	return ride, nil
}

func (s *RideService) JoinRide(ctx context.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error) {
	const op = "RideService.JoinRide"
	fields := map[string]interface{}{"ride_id": rideID.String(), "user_id": id.UserID.String()}

	if id.UserID == uuid.Nil {
		return nil, s.fail(op, domain.PermissionError(op, "authentication required"), fields)
	}

	now := s.now().UTC()
	ride, err := s.rideRepo.AddParticipant(ctx, rideID, domain.ParticipantFrom(id, now))
	if err != nil {
		return nil, s.fail(op, upstream(op, err), fields)
	}

	s.logger.Info("Rider joined ride", map[string]interface{}{
		"ride_id":      rideID.String(),
		"user_id":      id.UserID.String(),
		"participants": len(ride.Participants),
		"max":          ride.MaxParticipants,
	})
	s.metrics.RecordRideOperation(op, "ok")
	s.notifier.RideChanged(ctx, domain.NewEvent(domain.EventRideJoined, rideID, id.UserID, domain.ParticipantFrom(id, now), now))

	return ride, nil
}

func (s *RideService) LeaveRide(ctx context.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error) {
	const op = "RideService.LeaveRide"
	fields := map[string]interface{}{"ride_id": rideID.String(), "user_id": id.UserID.String()}

	if id.UserID == uuid.Nil {
		return nil, s.fail(op, domain.PermissionError(op, "authentication required"), fields)
	}

	now := s.now().UTC()
	ride, err := s.rideRepo.RemoveParticipant(ctx, rideID, id.UserID, now)
	if err != nil {
		return nil, s.fail(op, upstream(op, err), fields)
	}

	s.logger.Info("Rider left ride", map[string]interface{}{
		"ride_id":      rideID.String(),
		"user_id":      id.UserID.String(),
		"participants": len(ride.Participants),
	})
	s.metrics.RecordRideOperation(op, "ok")
	s.notifier.RideChanged(ctx, domain.NewEvent(domain.EventRideLeft, rideID, id.UserID, nil, now))

	return ride, nil
}

func (s *RideService) StartRide(ctx context.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error) {
	return s.transition(ctx, "RideService.StartRide", id, rideID, domain.ActionStartRide, domain.EventRideStarted)
}

func (s *RideService) CompleteRide(ctx context.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error) {
	return s.transition(ctx, "RideService.CompleteRide", id, rideID, domain.ActionCompleteRide, domain.EventRideCompleted)
}

// CancelRide keeps the ride record with status cancelled.
func (s *RideService) CancelRide(ctx context.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error) {
	return s.transition(ctx, "RideService.CancelRide", id, rideID, domain.ActionCancelRide, domain.EventRideCancelled)
}

func (s *RideService) transition(
	ctx context.Context,
	op string,
	id domain.Identity,
	rideID uuid.UUID,
	action domain.Action,
	eventType domain.EventType,
) (*domain.Ride, error) {
	fields := map[string]interface{}{"ride_id": rideID.String(), "user_id": id.UserID.String()}

	caller, err := actor(ctx, s.userRepo, op, id)
	if err != nil {
		return nil, s.fail(op, err, fields)
	}

	ride, err := retryRead(ctx, op, func() (*domain.Ride, error) {
		return s.rideRepo.GetRideByID(ctx, rideID)
	})
	if err != nil {
		return nil, s.fail(op, err, fields)
	}

	if err := domain.Authorize(caller, action, ride); err != nil {
		fields["organizer_id"] = ride.OrganizerID.String()
		return nil, s.fail(op, err, fields)
	}

	next, ok := domain.NextStatus(ride.Status, action)
	if !ok {
		fields["status"] = string(ride.Status)
		return nil, s.fail(op, domain.StateError(op, "ride is %s", ride.Status), fields)
	}

	now := s.now().UTC()
	updated, err := s.rideRepo.TransitionStatus(ctx, rideID, ride.Status, next, now)
	if err != nil {
		return nil, s.fail(op, upstream(op, err), fields)
	}

	s.logger.Info("Ride status changed", map[string]interface{}{
		"ride_id": rideID.String(),
		"from":    string(ride.Status),
		"to":      string(updated.Status),
	})
	s.metrics.RecordRideOperation(op, "ok")
	s.notifier.RideChanged(ctx, domain.NewEvent(eventType, rideID, caller.ID, map[string]interface{}{
		"from": ride.Status,
		"to":   updated.Status,
	}, now))

	return updated, nil
}

// DeleteRide is the audited administrative removal of a ride.
func (s *RideService) DeleteRide(ctx context.Context, id domain.Identity, rideID uuid.UUID, reason string) error {
	const op = "RideService.DeleteRide"
	fields := map[string]interface{}{"ride_id": rideID.String(), "user_id": id.UserID.String()}

	admin, err := actor(ctx, s.userRepo, op, id)
	if err != nil {
		return s.fail(op, err, fields)
	}

	ride, err := retryRead(ctx, op, func() (*domain.Ride, error) {
		return s.rideRepo.GetRideByID(ctx, rideID)
	})
	if err != nil {
		return s.fail(op, err, fields)
	}

	if err := domain.Authorize(admin, domain.ActionDeleteRide, ride); err != nil {
		return s.fail(op, err, fields)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return s.fail(op, domain.ValidationError(op, "reason is required"), fields)
	}

	snapshot, err := json.Marshal(ride)
	if err != nil {
		return s.fail(op, domain.UpstreamError(op, err), fields)
	}

	now := s.now().UTC()
	audit := domain.RideAudit{
		RideID:    rideID,
		Action:    "deleted",
		ActorID:   admin.ID,
		Reason:    reason,
		Snapshot:  snapshot,
		CreatedAt: now,
	}
	if err := s.rideRepo.DeleteRide(ctx, rideID, audit); err != nil {
		return s.fail(op, upstream(op, err), fields)
	}

	s.logger.Warn("Ride deleted by admin", map[string]interface{}{
		"ride_id":  rideID.String(),
		"admin_id": admin.ID.String(),
		"reason":   reason,
	})
	s.metrics.RecordRideOperation(op, "ok")
	s.notifier.RideChanged(ctx, domain.NewEvent(domain.EventRideDeleted, rideID, admin.ID, map[string]interface{}{
		"reason": reason,
	}, now))

	return nil
}

// Joinable yields upcoming and ongoing rides, optionally of one ride type.
// The sequence is lazy (pages are fetched as the caller ranges) and every
// range over it starts again from the first ride.
func (s *RideService) Joinable(ctx context.Context, rideType string) iter.Seq2[*domain.Ride, error] {
	const op = "RideService.Joinable"

	rideType = strings.TrimSpace(rideType)
	if rideType == "All Rides" {
		rideType = ""
	}

	return func(yield func(*domain.Ride, error) bool) {
		if rideType != "" && !domain.IsRideType(rideType) {
			yield(nil, domain.ValidationError(op, "unknown ride type %q", rideType))
			return
		}

		filter := domain.RideFilter{
			Statuses: []domain.RideStatus{domain.RideUpcoming, domain.RideOngoing},
			RideType: rideType,
			Limit:    s.pageSize,
		}
		for {
			page, err := retryRead(ctx, op, func() ([]*domain.Ride, error) {
				return s.rideRepo.ListRides(ctx, filter)
			})
			if err != nil {
				yield(nil, s.fail(op, err, map[string]interface{}{"ride_type": rideType}))
				return
			}
			for _, r := range page {
				if !yield(r, nil) {
					return
				}
			}
			if len(page) < filter.Limit {
				return
			}
			filter.After = domain.CursorOf(page[len(page)-1])
		}
	}
}

func (s *RideService) ListJoinable(ctx context.Context, rideType string) ([]*domain.Ride, error) {
	rides := []*domain.Ride{}
	for ride, err := range s.Joinable(ctx, rideType) {
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, nil
}

// MyRides returns the caller's rides as organizer or participant, newest first.
func (s *RideService) MyRides(ctx context.Context, id domain.Identity, limit int) ([]*domain.Ride, error) {
	const op = "RideService.MyRides"

	if id.UserID == uuid.Nil {
		return nil, s.fail(op, domain.PermissionError(op, "authentication required"), nil)
	}
	if limit <= 0 {
		limit = defaultMyRides
	}
	if limit > maxMyRidesLimit {
		limit = maxMyRidesLimit
	}

	rides, err := retryRead(ctx, op, func() ([]*domain.Ride, error) {
		return s.rideRepo.ListRides(ctx, domain.RideFilter{
			MemberID: id.UserID,
			Newest:   true,
			Limit:    limit,
		})
	})
	if err != nil {
		return nil, s.fail(op, err, map[string]interface{}{"user_id": id.UserID.String()})
	}

	s.logger.Debug("Retrieved rides for user", map[string]interface{}{
		"user_id":     id.UserID.String(),
		"rides_count": len(rides),
	})
	return rides, nil
}

// EstimateRoute asks the mapping provider for a driving route.
func (s *RideService) EstimateRoute(ctx context.Context, from, to domain.Coordinates) (*domain.Route, error) {
	const op = "RideService.EstimateRoute"

	if err := s.validate.Struct(from); err != nil {
		return nil, validationError(op, err)
	}
	if err := s.validate.Struct(to); err != nil {
		return nil, validationError(op, err)
	}
	if s.routes == nil {
		return nil, s.fail(op, domain.UpstreamError(op, errors.New("route provider not configured")), nil)
	}

	route, err := retryRead(ctx, op, func() (*domain.Route, error) {
		return s.routes.Route(ctx, from, to)
	})
	if err != nil {
		return nil, s.fail(op, err, map[string]interface{}{
			"from": from,
			"to":   to,
		})
	}
	return route, nil
}
