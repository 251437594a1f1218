package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFastRetry(t *testing.T) {
	t.Helper()
	prev := readBackoff
	readBackoff = time.Millisecond
	t.Cleanup(func() { readBackoff = prev })
}

func TestRetryRead(t *testing.T) {
	withFastRetry(t)
	ctx := context.Background()

	t.Run("recovers from transient failure", func(t *testing.T) {
		calls := 0
		got, err := retryRead(ctx, "op", func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("connection reset")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up as upstream", func(t *testing.T) {
		calls := 0
		_, err := retryRead(ctx, "op", func() (int, error) {
			calls++
			return 0, errors.New("connection reset")
		})
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.Equal(t, readAttempts, calls)
	})

	t.Run("domain errors are final", func(t *testing.T) {
		calls := 0
		_, err := retryRead(ctx, "op", func() (int, error) {
			calls++
			return 0, domain.NotFoundError("op", "ride")
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		readBackoff = time.Hour
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		_, err := retryRead(cctx, "op", func() (int, error) {
			calls++
			return 0, errors.New("timeout")
		})
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
