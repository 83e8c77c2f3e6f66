package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without invoking the wrapped operation while
// the breaker is open. Callers should treat it as temporary unavailability
// of the dependency, not as a verdict on the request itself.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	}
	return "unknown"
}

type BreakerConfig struct {
	Name             string
	FailureThreshold int
	RecoveryTimeout  time.Duration
	CallTimeout      time.Duration
	// OnStateChange is invoked (outside the breaker lock) whenever the
	// state transitions. Used to feed the breaker-state gauge.
	OnStateChange func(name string, state BreakerState)
}

// Breaker guards one logical external dependency. Every call races a
// per-call timeout; a timed-out call counts as a failure.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	nextAttempt time.Time
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Breaker{cfg: cfg, now: time.Now, state: BreakerClosed}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs op through the breaker. While open it fails immediately
// with ErrCircuitOpen. After the recovery timeout one probe call is let
// through; its outcome decides between closed and another open window.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	b.mu.Lock()
	if b.state == BreakerOpen {
		if b.now().Before(b.nextAttempt) {
			b.mu.Unlock()
			return fmt.Errorf("%s: %w", b.cfg.Name, ErrCircuitOpen)
		}
		b.setState(BreakerHalfOpen)
	}
	b.mu.Unlock()

	err := b.call(ctx, op)

	b.mu.Lock()
	if err != nil {
		b.failures++
		if b.state == BreakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	} else {
		b.failures = 0
		b.setState(BreakerClosed)
	}
	b.mu.Unlock()

	return err
}

// call races op against the per-call timeout. The operation keeps the
// cancelled context so a well-behaved op can abandon its work.
func (b *Breaker) call(ctx context.Context, op func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(callCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		return fmt.Errorf("%s: call timed out after %s: %w", b.cfg.Name, b.cfg.CallTimeout, callCtx.Err())
	}
}

// trip opens the breaker and schedules the next probe. Caller holds b.mu.
func (b *Breaker) trip() {
	b.nextAttempt = b.now().Add(b.cfg.RecoveryTimeout)
	b.setState(BreakerOpen)
}

// setState transitions and notifies. Caller holds b.mu.
func (b *Breaker) setState(state BreakerState) {
	if b.state == state {
		return
	}
	b.state = state
	if b.cfg.OnStateChange != nil {
		go b.cfg.OnStateChange(b.cfg.Name, state)
	}
}
