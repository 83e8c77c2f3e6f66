package resilience

import (
	"context"
	"fmt"
	"time"
)

type RetryPolicy struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
	}
}

// delay computes the backoff before retry number attempt (1-based),
// capped at MaxDelay.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.BackoffFactor
	}
	if capped := float64(p.MaxDelay); d > capped {
		d = capped
	}
	return time.Duration(d)
}

// Retrier re-executes an operation on transient failure. Retryable
// decides from the storage layer's structured error kinds whether an
// error is worth retrying; validation, authorization and conflict errors
// must report false so they propagate immediately.
type Retrier struct {
	Policy    RetryPolicy
	Retryable func(error) bool
	// Breaker, when set, additionally guards every execution.
	Breaker *Breaker
}

func NewRetrier(policy RetryPolicy, retryable func(error) bool) *Retrier {
	return &Retrier{Policy: policy, Retryable: retryable}
}

// Do runs op, retrying with exponential backoff while the error is
// retryable and attempts remain. The last error is returned verbatim so
// the caller keeps the original cause.
func (r *Retrier) Do(ctx context.Context, op func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		var err error
		if r.Breaker != nil {
			err = r.Breaker.Execute(ctx, op)
		} else {
			err = op(ctx)
		}
		if err == nil {
			return nil
		}
		if r.Retryable == nil || !r.Retryable(err) || attempt > r.Policy.MaxRetries {
			return err
		}
		if werr := sleep(ctx, r.Policy.delay(attempt)); werr != nil {
			return fmt.Errorf("retry aborted: %w (last error: %v)", werr, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
