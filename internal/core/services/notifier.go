package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
)

// Notifier runs the side effects that follow a committed write: cache
// invalidation, event publishing and live broadcast. Failures never undo the
// write; they are logged and counted.
type Notifier struct {
	cache   ports.CachePort
	events  ports.EventPublisher
	alerts  ports.AlertBroadcaster
	metrics ports.MetricsPort
	logger  ports.LoggerPort
}

func NewNotifier(
	cache ports.CachePort,
	events ports.EventPublisher,
	alerts ports.AlertBroadcaster,
	metrics ports.MetricsPort,
	logger ports.LoggerPort,
) *Notifier {
	return &Notifier{
		cache:   cache,
		events:  events,
		alerts:  alerts,
		metrics: metrics,
		logger:  logger,
	}
}

func rideCacheKey(rideID uuid.UUID) string {
	return fmt.Sprintf("ride:%s", rideID.String())
}

func (n *Notifier) InvalidateRide(rideID uuid.UUID) {
	if n.cache == nil {
		return
	}
	if err := n.cache.Delete(rideCacheKey(rideID)); err != nil {
		n.metrics.RecordSideEffectFailure("cache_invalidate")
		n.logger.Warn("Failed to invalidate ride cache", map[string]interface{}{
			"error":   err.Error(),
			"ride_id": rideID.String(),
		})
	}
}

func (n *Notifier) Publish(ctx context.Context, event domain.Event) {
	if n.alerts != nil && event.RideID != uuid.Nil {
		n.alerts.Broadcast(event.RideID, event)
	}
	if n.events == nil {
		return
	}
	if err := n.events.Publish(ctx, event); err != nil {
		n.metrics.RecordSideEffectFailure("event_publish")
		n.logger.Warn("Failed to publish event", map[string]interface{}{
			"error":    err.Error(),
			"event":    string(event.Type),
			"event_id": event.ID.String(),
			"ride_id":  event.RideID.String(),
		})
	}
}

// RideChanged invalidates the cached ride and announces the event.
func (n *Notifier) RideChanged(ctx context.Context, event domain.Event) {
	n.InvalidateRide(event.RideID)
	n.Publish(ctx, event)
}
