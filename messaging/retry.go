package messaging

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy wraps a consumer invocation with bounded exponential-backoff
// retries. It is stateless: the same message is retried in place by the
// worker holding it, and only after the final failed attempt is it handed
// back to the broker for dead-lettering.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

// DefaultRetryPolicy: attempt, wait 1s, attempt, wait 2s, attempt, give up.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		Multiplier:      2.0,
		MaxInterval:     10 * time.Second,
	}
}

// Execute runs op up to MaxAttempts times. The backoff sleep blocks the
// calling worker only, not the whole pool.
func (p RetryPolicy) Execute(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0

	_, err := backoff.Retry(ctx,
		func() (struct{}, error) { return struct{}{}, op() },
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxAttempts),
	)
	return err
}
