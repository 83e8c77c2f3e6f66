package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("dependency down")

func failingOp(context.Context) error { return errDown }
func okOp(context.Context) error      { return nil }

func newTestBreaker(threshold int, recovery time.Duration) (*Breaker, *time.Time) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(BreakerConfig{
		Name:             "test",
		FailureThreshold: threshold,
		RecoveryTimeout:  recovery,
		CallTimeout:      time.Second,
	})
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestBreakerTripsAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
		assert.Equal(t, BreakerClosed, b.State())
	}

	assert.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreakerFailsFastWhileOpen(t *testing.T) {
	b, _ := newTestBreaker(1, 30*time.Second)
	ctx := context.Background()

	require.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
	require.Equal(t, BreakerOpen, b.State())

	invoked := false
	err := b.Execute(ctx, func(context.Context) error {
		invoked = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, invoked)
}

func TestBreakerProbeClosesOnSuccess(t *testing.T) {
	b, clock := newTestBreaker(1, 30*time.Second)
	ctx := context.Background()

	require.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
	require.Equal(t, BreakerOpen, b.State())

	*clock = clock.Add(31 * time.Second)

	require.NoError(t, b.Execute(ctx, okOp))
	assert.Equal(t, BreakerClosed, b.State())

	// Fully recovered: the failure count starts over.
	require.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(1, 30*time.Second)
	ctx := context.Background()

	require.ErrorIs(t, b.Execute(ctx, failingOp), errDown)

	*clock = clock.Add(31 * time.Second)
	require.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
	assert.Equal(t, BreakerOpen, b.State())

	// Still within the new recovery window.
	*clock = clock.Add(29 * time.Second)
	assert.ErrorIs(t, b.Execute(ctx, okOp), ErrCircuitOpen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)
	ctx := context.Background()

	require.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
	require.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
	require.NoError(t, b.Execute(ctx, okOp))

	// Two more failures do not reach the threshold again.
	require.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
	require.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerCallTimeoutCountsAsFailure(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:             "slow",
		FailureThreshold: 1,
		RecoveryTimeout:  30 * time.Second,
		CallTimeout:      10 * time.Millisecond,
	})

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreakerStateChangeCallback(t *testing.T) {
	states := make(chan BreakerState, 4)
	b := NewBreaker(BreakerConfig{
		Name:             "watched",
		FailureThreshold: 1,
		RecoveryTimeout:  time.Millisecond,
		CallTimeout:      time.Second,
		OnStateChange: func(name string, state BreakerState) {
			assert.Equal(t, "watched", name)
			states <- state
		},
	})
	ctx := context.Background()

	require.ErrorIs(t, b.Execute(ctx, failingOp), errDown)
	assert.Equal(t, BreakerOpen, waitState(t, states))

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Execute(ctx, okOp))
	assert.Equal(t, BreakerHalfOpen, waitState(t, states))
	assert.Equal(t, BreakerClosed, waitState(t, states))
}

func waitState(t *testing.T, ch chan BreakerState) BreakerState {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state change")
		return BreakerClosed
	}
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half_open", BreakerHalfOpen.String())
}
