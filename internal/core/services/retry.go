package services

import (
	"context"
	"time"

	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

var (
	readAttempts = 3
	readBackoff  = 50 * time.Millisecond
)

// retryRead retries an idempotent read while it fails with an upstream error.
// Domain outcomes (not found, permission, ...) are returned immediately.
func retryRead[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	delay := readBackoff
	var (
		res T
		err error
	)
	for i := 0; i < readAttempts; i++ {
		res, err = fn()
		err = upstream(op, err)
		if err == nil || domain.KindOf(err) != domain.KindUpstream {
			return res, err
		}
		if i == readAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return res, domain.UpstreamError(op, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return res, err
}

// upstream wraps errors that carry no domain kind as upstream failures.
func upstream(op string, err error) error {
	if err == nil || domain.KindOf(err) != "" {
		return err
	}
	return domain.UpstreamError(op, err)
}
