// Package retry runs an operation with bounded exponential backoff.
//
// The analysis core never retries on its own; callers that want another
// attempt after a transient failure wrap the call in a Retrier and decide
// which errors qualify.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Policy configures the backoff strategy.
type Policy struct {
	// MaxAttempts counts the first call. 1 disables retries.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultPolicy returns two attempts with a short pause in between.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// Retrier executes a function with exponential backoff.
type Retrier struct {
	policy Policy
	log    *logrus.Entry

	// OnRetry, when set, is called before every repeated attempt.
	OnRetry func(op string, attempt int, err error)
}

// New creates a Retrier. A MaxAttempts below 1 is treated as 1.
func New(policy Policy, log *logrus.Entry) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	return &Retrier{policy: policy, log: log}
}

// Do calls fn until it succeeds, returns an error retryable rejects, the
// attempt budget is spent, or ctx is done. It returns fn's last error.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error, retryable func(error) bool) error {
	interval := r.policy.InitialInterval

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= r.policy.MaxAttempts || (retryable != nil && !retryable(err)) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}

		if r.log != nil {
			r.log.WithFields(logrus.Fields{
				"operation": op,
				"attempt":   attempt,
				"next_wait": interval.String(),
				"error":     err.Error(),
			}).Warn("operation failed, retrying")
		}
		if r.OnRetry != nil {
			r.OnRetry(op, attempt, err)
		}

		if interval > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}

		next := float64(interval) * r.policy.Multiplier
		if r.policy.MaxInterval > 0 {
			next = math.Min(next, float64(r.policy.MaxInterval))
		}
		interval = time.Duration(next)
	}
}
