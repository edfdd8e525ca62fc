// Package campaign sequences the per-profile pipeline: validate, generate,
// compose, send, record, pace.
package campaign

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/outreach/internal/compose"
	"github.com/foxzi/outreach/internal/profile"
	"github.com/foxzi/outreach/internal/report"
	"github.com/foxzi/outreach/internal/send"
)

// Generator produces a personalized message body for a profile
type Generator interface {
	Generate(ctx context.Context, p profile.Profile) (string, error)
}

// Pacer enforces a delay between consecutive sends
type Pacer interface {
	Wait(ctx context.Context, lastItem bool) error
}

// Options configure a campaign run
type Options struct {
	From          string
	ReplyTo       string
	ForcedVariant int // -1 selects a pseudo-random subject variant per profile
	Seed          int64
}

// Runner drives one campaign run over a dataset of profiles
type Runner struct {
	generator Generator
	composer  *compose.Composer
	sender    send.Sender
	pacer     Pacer
	collector *report.Collector
	opts      Options
	rand      *rand.Rand
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner creates a campaign runner
func NewRunner(
	generator Generator,
	composer *compose.Composer,
	sender send.Sender,
	pacer Pacer,
	collector *report.Collector,
	opts Options,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Runner{
		generator: generator,
		composer:  composer,
		sender:    sender,
		pacer:     pacer,
		collector: collector,
		opts:      opts,
		rand:      rand.New(rand.NewSource(seed)),
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes every profile sequentially. Per-profile failures are
// recorded and the loop continues; only context cancellation stops the run
// early. The returned stats reflect everything processed up to that point.
func (r *Runner) Run(ctx context.Context, profiles []profile.Profile, unsubscribed profile.UnsubscribeSet) (report.Stats, error) {
	valid, invalid := profile.Validate(profiles)
	r.collector.SetTotals(len(profiles), len(valid), len(invalid))

	for _, p := range invalid {
		r.logger.Warn("invalid email address, profile excluded", "email", p.Email, "full_name", p.FullName)
	}

	r.logger.Info("processing profiles",
		"total", len(profiles),
		"valid", len(valid),
		"invalid", len(invalid),
	)

	for i, p := range valid {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("run interrupted", "processed", i, "remaining", len(valid)-i)
			return r.collector.Stats(), err
		}

		if unsubscribed.Contains(p.Email) {
			r.logger.Info("skipping unsubscribed recipient", "email", p.Email)
			r.collector.MarkUnsubscribed()
			continue
		}

		r.logger.Info("processing profile",
			"position", i+1,
			"of", len(valid),
			"email", p.Email,
			"full_name", p.FullName,
		)

		r.processOne(ctx, p)

		if err := r.pacer.Wait(ctx, i == len(valid)-1); err != nil {
			r.logger.Warn("run interrupted during rate limit wait")
			return r.collector.Stats(), err
		}
	}

	return r.collector.Stats(), nil
}

// processOne resolves a single profile to a terminal record
func (r *Runner) processOne(ctx context.Context, p profile.Profile) {
	rec := &report.Record{
		ID:        uuid.New().String(),
		Timestamp: r.now(),
		FullName:  p.FullName,
		Email:     p.Email,
		Status:    report.StatusPending,
	}

	body, err := r.generator.Generate(ctx, p)
	if err != nil {
		r.logger.Error("generation failed", "email", p.Email, "error", err)
		r.failRecord(rec, err)
		return
	}
	r.collector.MarkGenerated()

	variant := r.opts.ForcedVariant
	if variant < 0 {
		variant = compose.PickVariant(r.rand)
	}

	email, err := r.composer.Compose(body, p.FirstName(), p.Email, variant)
	if err != nil {
		r.logger.Error("composition failed", "email", p.Email, "error", err)
		rec.Body = &body
		r.failRecord(rec, err)
		return
	}

	rec.Subject = &email.Subject
	rec.SubjectVariant = &email.Variant
	rec.Body = &body
	r.logger.Info("subject selected", "email", p.Email, "variant", email.Variant, "subject", email.Subject)

	msg := &send.Message{
		From:           r.opts.From,
		To:             p.Email,
		ReplyTo:        r.opts.ReplyTo,
		Subject:        email.Subject,
		HTML:           email.HTML,
		Text:           email.Text,
		UnsubscribeURL: email.UnsubscribeURL,
	}

	if err := r.sender.Send(ctx, msg); err != nil {
		r.logger.Error("send failed", "email", p.Email, "error", err)
		r.failRecord(rec, err)
		return
	}

	rec.Status = report.StatusSent
	if err := r.collector.Record(rec); err != nil {
		r.logger.Error("failed to record outcome", "email", p.Email, "error", err)
	}
}

// failRecord marks the record failed with the cause and persists it
func (r *Runner) failRecord(rec *report.Record, cause error) {
	msg := cause.Error()
	rec.Status = report.StatusFailed
	rec.ErrorMessage = &msg

	if err := r.collector.Record(rec); err != nil {
		r.logger.Error("failed to record outcome", "email", rec.Email, "error", err)
	}
}
