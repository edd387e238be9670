package broker

import (
	"context"
	"time"
)

// RetryPolicy bounds the retry loop for broker calls.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetry is the policy the engine uses for submit/cancel/status calls.
var DefaultRetry = RetryPolicy{
	Attempts:  3,
	BaseDelay: 250 * time.Millisecond,
	MaxDelay:  2 * time.Second,
}

// Retry runs fn up to p.Attempts times with exponential backoff, stopping
// early on success or context cancellation. The last error is returned.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
