package worker

import (
	"context"
	"time"

	"deepcast/internal/services"
)

// RetryPolicy bounds the fetch-layer retry behavior. Only errors the services
// package classifies as retryable (transport failures) trigger another
// attempt; side-effecting steps never pass through this policy.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Do runs fn up to MaxAttempts times with exponential backoff between
// retryable failures. Sleeps respect context cancellation.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts || !services.Retryable(lastErr) || ctx.Err() != nil {
			return lastErr
		}
		if err := sleep(ctx, p.delay(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

// delay doubles per attempt: base, base*2, base*4, capped at MaxDelay.
func (p RetryPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
