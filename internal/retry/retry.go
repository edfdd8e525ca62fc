// Package retry provides a shared retry policy for outbound service calls.
package retry

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"time"
)

// ErrorChecker reports whether an error is temporary and worth retrying
type ErrorChecker func(err error) bool

// Policy describes the backoff schedule for repeated attempts
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration // random extra delay in [0, Jitter)
}

// Retryer executes operations under a Policy
type Retryer struct {
	policy      Policy
	isTemporary ErrorChecker
	rand        *rand.Rand
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
}

// New creates a Retryer. A nil checker treats every error as temporary.
func New(policy Policy, isTemp ErrorChecker, logger *slog.Logger) *Retryer {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2 * time.Second
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 10 * time.Second
	}
	if isTemp == nil {
		isTemp = func(err error) bool { return true }
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Retryer{
		policy:      policy,
		isTemporary: isTemp,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:       sleepContext,
		logger:      logger,
	}
}

// SetRand replaces the jitter source, for deterministic tests
func (r *Retryer) SetRand(rnd *rand.Rand) {
	r.rand = rnd
}

// SetSleep replaces the sleep function, for tests that must not block
func (r *Retryer) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	r.sleep = sleep
}

// Do runs fn until it succeeds, returns a permanent error, or the attempt
// budget is exhausted. The last error is returned as-is so callers can
// classify it.
func (r *Retryer) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !r.isTemporary(lastErr) {
			r.logger.Warn("permanent failure, not retrying", "op", op, "error", lastErr)
			return lastErr
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		backoff := r.backoff(attempt)
		r.logger.Warn("attempt failed, retrying",
			"op", op,
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"backoff", backoff,
			"error", lastErr,
		)

		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}
	}

	return lastErr
}

// backoff calculates the exponential backoff for the next attempt:
// base_delay * 2^(attempt-1), capped at max_delay, plus jitter.
func (r *Retryer) backoff(attempt int) time.Duration {
	multiplier := 1 << (attempt - 1)
	backoff := time.Duration(multiplier) * r.policy.BaseDelay
	if backoff > r.policy.MaxDelay {
		backoff = r.policy.MaxDelay
	}
	if r.policy.Jitter > 0 {
		backoff += time.Duration(r.rand.Int63n(int64(r.policy.Jitter)))
	}
	return backoff
}

// sleepContext sleeps for d or until the context is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
