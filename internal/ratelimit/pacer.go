// Package ratelimit enforces a delay between consecutive outbound sends.
package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"time"
)

// Pacer blocks between sends for a base delay plus a random extra interval,
// so the outbound cadence is not mechanically regular.
type Pacer struct {
	baseDelay time.Duration
	maxJitter time.Duration
	rand      *rand.Rand
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *slog.Logger
}

// NewPacer creates a pacer with the given base delay and jitter bound
func NewPacer(baseDelay, maxJitter time.Duration, logger *slog.Logger) *Pacer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pacer{
		baseDelay: baseDelay,
		maxJitter: maxJitter,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:     sleepContext,
		logger:    logger,
	}
}

// SetRand replaces the jitter source, for deterministic tests
func (p *Pacer) SetRand(rnd *rand.Rand) {
	p.rand = rnd
}

// SetSleep replaces the sleep function, for tests that must not block
func (p *Pacer) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	p.sleep = sleep
}

// Delay returns the next inter-send delay: base_delay + [0, max_jitter)
func (p *Pacer) Delay() time.Duration {
	d := p.baseDelay
	if p.maxJitter > 0 {
		d += time.Duration(p.rand.Int63n(int64(p.maxJitter)))
	}
	return d
}

// Wait blocks for the computed delay. It never delays after the last item in
// a run.
func (p *Pacer) Wait(ctx context.Context, lastItem bool) error {
	if lastItem {
		return nil
	}

	delay := p.Delay()
	p.logger.Info("rate limiting before next send", "delay", delay)
	return p.sleep(ctx, delay)
}

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
