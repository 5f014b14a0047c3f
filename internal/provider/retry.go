package provider

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy is a bounded retry schedule expressed as data so it can be
// unit-tested without a network.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempt budget runs out. Backoff doubles per attempt.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := p.BaseBackoff * time.Duration(1<<(attempt-2))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if !errors.Is(err, ErrTransient) {
			return err
		}
	}
	return err
}
