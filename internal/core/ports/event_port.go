package ports

import (
	"context"

	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}
