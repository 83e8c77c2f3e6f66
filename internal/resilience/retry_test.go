package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("deadlock detected")
	errPermanent = errors.New("row not found")
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func transientOnly(err error) bool { return errors.Is(err, errTransient) }

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	r := NewRetrier(fastPolicy(), transientOnly)

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	r := NewRetrier(fastPolicy(), transientOnly)

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errPermanent
	})

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	r := NewRetrier(fastPolicy(), transientOnly)

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})

	// The original cause comes back verbatim, not wrapped.
	assert.Equal(t, errTransient, err)
	assert.Equal(t, 4, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	r := NewRetrier(RetryPolicy{
		MaxRetries:    5,
		BaseDelay:     time.Hour,
		MaxDelay:      time.Hour,
		BackoffFactor: 2,
	}, transientOnly)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestRetryNilRetryableNeverRetries(t *testing.T) {
	r := NewRetrier(fastPolicy(), nil)

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestRetryThroughBreaker(t *testing.T) {
	breaker := NewBreaker(BreakerConfig{
		Name:             "mail",
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
		CallTimeout:      time.Second,
	})
	r := &Retrier{
		Policy: fastPolicy(),
		Retryable: func(err error) bool {
			return !errors.Is(err, ErrCircuitOpen)
		},
		Breaker: breaker,
	}

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})

	// Two real calls trip the breaker; the next attempt fails fast and is
	// not retryable, so the loop ends there.
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls)
	assert.Equal(t, BreakerOpen, breaker.State())
}

func TestRetryDelayBackoff(t *testing.T) {
	p := RetryPolicy{
		MaxRetries:    5,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 400*time.Millisecond, p.delay(3))
	assert.Equal(t, 800*time.Millisecond, p.delay(4))
}

func TestRetryDelayCappedAtMax(t *testing.T) {
	p := RetryPolicy{
		MaxRetries:    10,
		BaseDelay:     time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, 4*time.Second, p.delay(3))
	assert.Equal(t, 5*time.Second, p.delay(4))
	assert.Equal(t, 5*time.Second, p.delay(10))
}
