package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, Backoff(base, 0))
	assert.Equal(t, 200*time.Millisecond, Backoff(base, 1))
	assert.Equal(t, 400*time.Millisecond, Backoff(base, 2))
	assert.Equal(t, 800*time.Millisecond, Backoff(base, 3))
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds first attempt", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			return nil
		}, nil, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("flaky")
			}
			return nil
		}, nil, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausts budget", func(t *testing.T) {
		calls := 0
		failure := errors.New("down")
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			return failure
		}, nil, 3, time.Millisecond)
		require.ErrorIs(t, err, failure)
		// maxRetries+1 total attempts
		assert.Equal(t, 4, calls)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		calls := 0
		fatal := errors.New("fatal")
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			return fatal
		}, func(err error) bool { return false }, 3, time.Millisecond)
		require.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, calls)
	})

	t.Run("respects cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			cancel()
			return errors.New("down")
		}, nil, 3, time.Hour)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("rejects a negative retry budget", func(t *testing.T) {
		err := RetryWithBackoff(context.Background(), func() error { return nil }, nil, -1, time.Millisecond)
		require.ErrorIs(t, err, ErrInvalidMaxRetries)
	})

	t.Run("zero retries means a single attempt", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			return errors.New("down")
		}, nil, 0, time.Millisecond)
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
