package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/memory"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/stretchr/testify/require"
)

type nopMetrics struct {
	mu          sync.Mutex
	outcomes    map[string]int
	sideEffects int
	sos         int
}

func (m *nopMetrics) RecordMetrics(c *gin.Context, start time.Time) {}

func (m *nopMetrics) RecordRideOperation(op, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[op+":"+outcome]++
}

func (m *nopMetrics) RecordSideEffectFailure(kind string) {
	m.mu.Lock()
	m.sideEffects++
	m.mu.Unlock()
}

func (m *nopMetrics) RecordSOS() {
	m.mu.Lock()
	m.sos++
	m.mu.Unlock()
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, fields map[string]interface{}) { l.add("debug", msg, fields) }
func (l *captureLogger) Info(msg string, fields map[string]interface{})  { l.add("info", msg, fields) }
func (l *captureLogger) Warn(msg string, fields map[string]interface{})  { l.add("warn", msg, fields) }
func (l *captureLogger) Error(msg string, fields map[string]interface{}) { l.add("error", msg, fields) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingAlerts struct {
	mu   sync.Mutex
	sent map[uuid.UUID][]domain.Event
}

func (a *recordingAlerts) Broadcast(rideID uuid.UUID, event domain.Event) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sent == nil {
		a.sent = map[uuid.UUID][]domain.Event{}
	}
	a.sent[rideID] = append(a.sent[rideID], event)
	return 1
}

type fakeIssuer struct{}

func (fakeIssuer) IssueToken(user *domain.User) (string, error) {
	return "token-" + user.ID.String(), nil
}

type testEnv struct {
	store   *memory.Store
	blobs   *memory.BlobStore
	logger  *captureLogger
	metrics *nopMetrics
	events  *recordingPublisher
	alerts  *recordingAlerts

	rides        *RideService
	verification *VerificationService
	auth         *AuthService
	users        *UserService
	sos          *SOSService
	admin        *AdminService

	organizer domain.Identity
	adminID   domain.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:   memory.NewStore(),
		blobs:   memory.NewBlobStore(),
		logger:  &captureLogger{},
		metrics: &nopMetrics{},
		events:  &recordingPublisher{},
		alerts:  &recordingAlerts{},
	}
	validate := NewValidator()
	notifier := NewNotifier(nil, env.events, env.alerts, env.metrics, env.logger)

	env.rides = NewRideService(env.store, env.store, nil, env.logger, validate, nil, env.metrics, notifier)
	env.verification = NewVerificationService(env.store, env.store, env.blobs, env.logger, validate, notifier)
	env.auth = NewAuthService(env.store, fakeIssuer{}, env.logger, validate)
	env.users = NewUserService(env.store, env.logger, validate)
	env.sos = NewSOSService(env.store, env.store, env.store, env.logger, validate, env.metrics, notifier)
	env.admin = NewAdminService(env.store, env.store, env.store, env.logger)

	env.organizer = env.addUser(t, "Grace Organizer", domain.Organizer)
	env.adminID = env.addUser(t, "Ada Admin", domain.Admin)
	return env
}

// addUser stores a user directly with the given role.
func (env *testEnv) addUser(t *testing.T, name string, role domain.UserRole) domain.Identity {
	t.Helper()
	id := uuid.New()
	email := id.String() + "@example.com"
	_, err := env.store.CreateUser(context.Background(), &domain.User{
		ID:                id,
		DisplayName:       name,
		Email:             email,
		Role:              role,
		Verified:          role != domain.Rider,
		EmergencyContacts: []domain.EmergencyContact{},
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	})
	require.NoError(t, err)
	return domain.Identity{UserID: id, DisplayName: name, Email: email}
}

func (env *testEnv) rider(t *testing.T, name string) domain.Identity {
	return env.addUser(t, name, domain.Rider)
}

func (env *testEnv) createRide(t *testing.T, max int) *domain.Ride {
	t.Helper()
	ride, err := env.rides.CreateRide(context.Background(), env.organizer, newRide(max))
	require.NoError(t, err)
	return ride
}

func newRide(max int) *domain.Ride {
	return &domain.Ride{
		Title:           "Sunday coffee run",
		MeetingPoint:    "Shell station, Ring Road",
		Destination:     "Lake Naivasha",
		Date:            "2026-11-01",
		Time:            "07:30",
		Duration:        "4h",
		RideType:        "Long Ride",
		MaxParticipants: max,
	}
}
