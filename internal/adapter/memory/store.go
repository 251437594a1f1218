package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

// Store keeps rides, users, verification requests and SOS alerts in process.
// One mutex guards everything so every repository call is a single atomic
// step, and values are copied in and out so callers never share state.
type Store struct {
	mu       sync.Mutex
	rides    map[uuid.UUID]*domain.Ride
	users    map[uuid.UUID]*domain.User
	requests map[uuid.UUID]*domain.VerificationRequest
	alerts   map[uuid.UUID][]*domain.SOSAlert
	audits   []domain.RideAudit
}

func NewStore() *Store {
	return &Store{
		rides:    make(map[uuid.UUID]*domain.Ride),
		users:    make(map[uuid.UUID]*domain.User),
		requests: make(map[uuid.UUID]*domain.VerificationRequest),
		alerts:   make(map[uuid.UUID][]*domain.SOSAlert),
	}
}

// ---- rides ----

func (s *Store) CreateRide(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rides[ride.ID]; ok {
		return nil, domain.ValidationError("memory.CreateRide", "ride already exists")
	}
	s.rides[ride.ID] = cloneRide(ride)
	return cloneRide(ride), nil
}

func (s *Store) GetRideByID(ctx context.Context, rideID uuid.UUID) (*domain.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[rideID]
	if !ok {
		return nil, domain.NotFoundError("memory.GetRideByID", "ride")
	}
	return cloneRide(r), nil
}

func (s *Store) ListRides(ctx context.Context, f domain.RideFilter) ([]*domain.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Ride, 0)
	for _, r := range s.rides {
		if matches(r, f) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Newest {
			return before(out[j].CreatedAt, out[j].ID, out[i].CreatedAt, out[i].ID)
		}
		return before(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	for i, r := range out {
		out[i] = cloneRide(r)
	}
	return out, nil
}

func matches(r *domain.Ride, f domain.RideFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if r.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.RideType != "" && r.RideType != f.RideType {
		return false
	}
	if f.ParticipantID != uuid.Nil && !r.HasParticipant(f.ParticipantID) {
		return false
	}
	if f.MemberID != uuid.Nil && !r.IsMember(f.MemberID) {
		return false
	}
	if f.After != nil {
		if f.Newest {
			return before(r.CreatedAt, r.ID, f.After.CreatedAt, f.After.ID)
		}
		return before(f.After.CreatedAt, f.After.ID, r.CreatedAt, r.ID)
	}
	return true
}

// before orders by (created_at, id), the same keyset the SQL store uses.
func before(at1 time.Time, id1 uuid.UUID, at2 time.Time, id2 uuid.UUID) bool {
	if !at1.Equal(at2) {
		return at1.Before(at2)
	}
	return strings.Compare(id1.String(), id2.String()) < 0
}

func (s *Store) CountRides(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rides), nil
}

func (s *Store) AddParticipant(ctx context.Context, rideID uuid.UUID, p domain.Participant) (*domain.Ride, error) {
	const op = "memory.AddParticipant"
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[rideID]
	switch {
	case !ok:
		return nil, domain.NotFoundError(op, "ride")
	case !r.Status.Joinable():
		return nil, domain.StateError(op, "ride is %s", r.Status)
	case r.HasParticipant(p.UserID):
		return nil, domain.AlreadyJoinedError(op)
	case len(r.Participants) >= r.MaxParticipants:
		return nil, domain.CapacityError(op, r.MaxParticipants)
	}
	if _, ok := s.users[p.UserID]; !ok {
		return nil, domain.NotFoundError(op, "user")
	}

	r.Participants = append(r.Participants, p)
	r.Version++
	r.UpdatedAt = p.JoinedAt
	return cloneRide(r), nil
}

func (s *Store) RemoveParticipant(ctx context.Context, rideID, userID uuid.UUID, at time.Time) (*domain.Ride, error) {
	const op = "memory.RemoveParticipant"
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[rideID]
	if !ok {
		return nil, domain.NotFoundError(op, "ride")
	}
	if !r.Status.Joinable() {
		return nil, domain.StateError(op, "ride is %s", r.Status)
	}
	idx := -1
	for i, p := range r.Participants {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.NotParticipantError(op)
	}

	r.Participants = append(r.Participants[:idx:idx], r.Participants[idx+1:]...)
	r.Version++
	r.UpdatedAt = at
	return cloneRide(r), nil
}

func (s *Store) TransitionStatus(ctx context.Context, rideID uuid.UUID, from, to domain.RideStatus, at time.Time) (*domain.Ride, error) {
	const op = "memory.TransitionStatus"
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[rideID]
	if !ok {
		return nil, domain.NotFoundError(op, "ride")
	}
	if r.Status != from {
		return nil, domain.StateError(op, "ride is %s", r.Status)
	}

	r.Status = to
	stamp := at
	switch to {
	case domain.RideOngoing:
		r.StartedAt = &stamp
	case domain.RideCompleted:
		r.CompletedAt = &stamp
	case domain.RideCancelled:
		r.CancelledAt = &stamp
	}
	r.Version++
	r.UpdatedAt = at
	return cloneRide(r), nil
}

func (s *Store) DeleteRide(ctx context.Context, rideID uuid.UUID, audit domain.RideAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rides[rideID]; !ok {
		return domain.NotFoundError("memory.DeleteRide", "ride")
	}
	delete(s.rides, rideID)
	delete(s.alerts, rideID)
	audit.Snapshot = append([]byte(nil), audit.Snapshot...)
	s.audits = append(s.audits, audit)
	return nil
}

// Audits returns the recorded administrative deletions.
func (s *Store) Audits() []domain.RideAudit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RideAudit(nil), s.audits...)
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	const op = "memory.CreateUser"
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return nil, domain.ValidationError(op, "user already exists")
	}
	email := strings.ToLower(user.Email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return nil, domain.ValidationError(op, "email already in use")
		}
	}
	s.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (s *Store) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, domain.NotFoundError("memory.GetUserByID", "user")
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.NotFoundError("memory.GetUserByEmail", "user")
}

func (s *Store) UpdateEmergencyInfo(ctx context.Context, userID uuid.UUID, contacts []domain.EmergencyContact, medical domain.MedicalInfo) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, domain.NotFoundError("memory.UpdateEmergencyInfo", "user")
	}
	u.EmergencyContacts = append([]domain.EmergencyContact{}, contacts...)
	u.MedicalInfo = medical
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (s *Store) CountUsers(ctx context.Context, role domain.UserRole) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if role == "" {
		return len(s.users), nil
	}
	n := 0
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// ---- verification ----

func (s *Store) CreateRequest(ctx context.Context, req *domain.VerificationRequest) (*domain.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.UserID]; !ok {
		return nil, domain.NotFoundError("memory.CreateRequest", "user")
	}
	s.requests[req.ID] = cloneRequest(req)
	return cloneRequest(req), nil
}

func (s *Store) GetRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, domain.NotFoundError("memory.GetRequestByID", "verification request")
	}
	return cloneRequest(r), nil
}

func (s *Store) ListRequests(ctx context.Context, status domain.VerificationStatus) ([]*domain.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.VerificationRequest, 0)
	for _, r := range s.requests {
		if status == "" || r.Status == status {
			out = append(out, cloneRequest(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) HasPendingRequest(ctx context.Context, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.requests {
		if r.UserID == userID && r.Status == domain.VerificationPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DecideRequest(ctx context.Context, requestID uuid.UUID, d domain.Decision) (*domain.VerificationRequest, error) {
	const op = "memory.DecideRequest"
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, domain.NotFoundError(op, "verification request")
	}
	if r.Status != domain.VerificationPending {
		return nil, domain.StateError(op, "request already %s", r.Status)
	}
	u, ok := s.users[r.UserID]
	if !ok {
		return nil, domain.NotFoundError(op, "user")
	}

	at := d.At
	reviewer := d.ReviewerID
	r.Status = d.Status
	r.ReviewedBy = &reviewer
	switch d.Status {
	case domain.VerificationApproved:
		r.ApprovedAt = &at
		if u.Role == domain.Rider {
			u.Role = domain.Organizer
		}
		u.Verified = true
		u.UpdatedAt = at
	case domain.VerificationRejected:
		r.RejectedAt = &at
	}
	return cloneRequest(r), nil
}

// ---- sos ----

func (s *Store) CreateAlert(ctx context.Context, alert *domain.SOSAlert) (*domain.SOSAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rides[alert.RideID]; !ok {
		return nil, domain.NotFoundError("memory.CreateAlert", "ride")
	}
	s.alerts[alert.RideID] = append(s.alerts[alert.RideID], cloneAlert(alert))
	return cloneAlert(alert), nil
}

func (s *Store) ListAlertsByRide(ctx context.Context, rideID uuid.UUID) ([]*domain.SOSAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.SOSAlert, 0, len(s.alerts[rideID]))
	for _, a := range s.alerts[rideID] {
		out = append(out, cloneAlert(a))
	}
	return out, nil
}

// ---- copies ----

func cloneRide(r *domain.Ride) *domain.Ride {
	c := *r
	c.Participants = append([]domain.Participant{}, r.Participants...)
	c.MeetingPointCoords = cloneCoords(r.MeetingPointCoords)
	c.DestinationCoords = cloneCoords(r.DestinationCoords)
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.EmergencyContacts = append([]domain.EmergencyContact{}, u.EmergencyContacts...)
	return &c
}

func cloneRequest(r *domain.VerificationRequest) *domain.VerificationRequest {
	c := *r
	if r.ReviewedBy != nil {
		id := *r.ReviewedBy
		c.ReviewedBy = &id
	}
	c.ApprovedAt = cloneTime(r.ApprovedAt)
	c.RejectedAt = cloneTime(r.RejectedAt)
	return &c
}

func cloneAlert(a *domain.SOSAlert) *domain.SOSAlert {
	c := *a
	c.Location = cloneCoords(a.Location)
	c.Contacts = append([]domain.EmergencyContact{}, a.Contacts...)
	return &c
}

func cloneCoords(c *domain.Coordinates) *domain.Coordinates {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
