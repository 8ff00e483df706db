// Package retry runs an operation again with capped exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	Attempts  int           // total tries, at least 1
	BaseDelay time.Duration // first backoff
	MaxDelay  time.Duration // backoff cap, zero for none
}

// DefaultPolicy suits reconnecting a long-lived stream.
var DefaultPolicy = Policy{Attempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the unwrapped err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err}
}

// Do calls fn until it succeeds, returns a permanent error, the attempts
// run out, or ctx is done. fn receives the zero-based attempt number.
// On exhaustion the last error from fn is returned.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	last := max(p.Attempts, 1) - 1

	for attempt := 0; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		var perm permanent
		switch {
		case errors.As(err, &perm):
			return perm.err
		case ctx.Err() != nil:
			return ctx.Err()
		case attempt == last:
			return err
		}

		t := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// backoff is BaseDelay doubled per prior attempt, capped at MaxDelay, then
// spread +-25% so reconnecting clients do not move in lockstep.
func (p Policy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if d <= 0 {
		return 0
	}
	spread := int64(d / 2)
	return d - d/4 + time.Duration(rand.Int64N(spread+1))
}
