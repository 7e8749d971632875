package rpcretry

import (
	"context"
	"time"
)

// Policy configures the backoff harness. InitialDelay and MaxDelay bound the
// exponential schedule (doubling each attempt); MaxRetries of 0 means retry
// without limit. A nil Retryable falls back to IsTransient, and a nil OnRetry
// is a no-op.
type Policy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxRetries   int
	Retryable    func(error) bool
	OnRetry      func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy mirrors the interval the teacher's waitForDgraph readiness
// probe used for its own fixed-interval retry loop, generalized here into an
// exponential schedule capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		MaxRetries:   0,
	}
}

// Do runs op, retrying on transient failures per p until op succeeds, a
// non-transient error is returned, MaxRetries is exhausted, or ctx is
// cancelled.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	delay := p.InitialDelay
	if delay <= 0 {
		delay = DefaultPolicy().InitialDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultPolicy().MaxDelay
	}

	attempt := 0
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}

		attempt++
		if p.MaxRetries > 0 && attempt >= p.MaxRetries {
			return err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
