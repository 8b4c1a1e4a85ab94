// Package retry executes provider calls with bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy defines retry behavior for provider attempts.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff sleep, jitter included.
	MaxDelay time.Duration

	// JitterMax is the upper bound of the uniform jitter added to each
	// sleep, spreading out retries against a recovering provider.
	JitterMax time.Duration

	// AttemptTimeout bounds each individual attempt. The derived context
	// cancels the underlying request so timed-out calls do not leak
	// connections.
	AttemptTimeout time.Duration

	// RetryIf reports whether an error is worth another attempt. A false
	// return aborts immediately; the caller may still fall back to a
	// different model.
	RetryIf func(error) bool

	// Sleep waits between attempts. Defaults to a context-aware
	// time.After wait; replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the default retry policy. RetryIf is left nil so
// callers plug in their own error classification.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		JitterMax:      time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

// Hooks observe individual attempts. Both fire once per attempt,
// immediately, so breaker state sees every failure as it happens.
type Hooks struct {
	OnSuccess func()
	OnFailure func(err error)
}

// DoWithResult runs fn with retries under the policy. It returns the first
// successful result, or the last error once attempts are exhausted or a
// non-retryable error occurs.
func DoWithResult[T any](ctx context.Context, policy *Policy, hooks Hooks, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if policy == nil {
		policy = DefaultPolicy()
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = waitSleep
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, policy.backoff(attempt)); err != nil {
				return zero, err
			}
		}

		result, err := runAttempt(ctx, policy.AttemptTimeout, fn)
		if err == nil {
			if hooks.OnSuccess != nil {
				hooks.OnSuccess()
			}
			return result, nil
		}

		lastErr = err
		if hooks.OnFailure != nil {
			hooks.OnFailure(err)
		}
		if policy.RetryIf != nil && !policy.RetryIf(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("retry canceled: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// backoff computes the sleep before retry n (n >= 1): exponential growth
// from BaseDelay plus uniform jitter, capped at MaxDelay.
func (p *Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if p.JitterMax > 0 {
		delay += time.Duration(rand.Int63n(int64(p.JitterMax)))
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

func waitSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry canceled: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}
