// Package backoff provides the retry/backoff policy used by the flag and
// segment synchronizers: a retry policy with the HTTP-specific
// status-code table replaced by a generic retryable-error predicate
// (transport.IsRetryable supplies the one they use).
package backoff

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// ErrMaxRetriesReached is returned when a retry loop exhausts its
// attempt budget while the last attempt still failed.
var ErrMaxRetriesReached = errors.New("backoff: max retries reached")

// Policy defines exponential backoff with jitter.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
}

// DefaultPolicy returns unbounded retries with exponential backoff
// capped at 30s. The flag and segment synchronizers start from it and
// bound it with WithMaxRetries(3).
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: -1, // unbounded; Run retries until success or ctx ends
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Jitter:     0.2,
	}
}

// WithMaxRetries returns a copy of p with MaxRetries set.
func (p Policy) WithMaxRetries(maxRetries int) Policy {
	p.MaxRetries = maxRetries
	return p
}

// WithBaseDelay returns a copy of p with BaseDelay set.
func (p Policy) WithBaseDelay(d time.Duration) Policy {
	p.BaseDelay = d
	return p
}

// WithMaxDelay returns a copy of p with MaxDelay set.
func (p Policy) WithMaxDelay(d time.Duration) Policy {
	p.MaxDelay = d
	return p
}

// CalculateBackoff computes the exponential-with-jitter delay for the
// given zero-based attempt number: BaseDelay doubled per attempt, capped
// at MaxDelay, then skewed by a random fraction in ±Jitter.
func (p Policy) CalculateBackoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt && delay < p.MaxDelay; i++ {
		delay *= 2
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter <= 0 {
		return delay
	}

	const resolution = 1 << 20
	n, err := rand.Int(rand.Reader, big.NewInt(resolution))
	if err != nil {
		return delay
	}
	skew := float64(n.Int64())/resolution*2 - 1 // uniform in [-1, 1)
	return delay + time.Duration(skew*p.Jitter*float64(delay))
}

// Retryable classifies an error returned from an attempt: true means the
// loop should retry, false means it should stop immediately.
type Retryable func(error) bool

// AlwaysRetryable retries on any non-nil error.
func AlwaysRetryable(err error) bool { return err != nil }

// Func is one retryable unit of work.
type Func func(ctx context.Context) error

// Run executes fn under policy p, retrying while retryable(err) is true,
// until MaxRetries is exhausted (a negative MaxRetries means unbounded),
// ctx is canceled, or fn succeeds.
func Run(ctx context.Context, p Policy, retryable Retryable, fn Func) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || ctx.Err() != nil {
			return err
		}
		if !retryable(err) {
			return err
		}
		if p.MaxRetries >= 0 && attempt >= p.MaxRetries {
			return ErrMaxRetriesReached
		}

		timer := time.NewTimer(p.CalculateBackoff(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
