// Package app wires the campaign pipeline together from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/outreach/internal/campaign"
	"github.com/foxzi/outreach/internal/compose"
	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/generate"
	"github.com/foxzi/outreach/internal/profile"
	"github.com/foxzi/outreach/internal/ratelimit"
	"github.com/foxzi/outreach/internal/report"
	"github.com/foxzi/outreach/internal/retry"
	"github.com/foxzi/outreach/internal/send"
)

// RunOptions are the per-invocation settings from the CLI
type RunOptions struct {
	ProfilesPath     string
	UnsubscribedPath string
	ForcedVariant    int // -1 = random per profile
	Seed             int64
}

// App is one configured campaign run
type App struct {
	config    *config.Config
	opts      RunOptions
	store     *report.Store
	collector *report.Collector
	runner    *campaign.Runner
	logger    *slog.Logger
}

// New builds the pipeline. Missing credentials and invalid configuration
// fail here, before any profile is touched.
func New(cfg *config.Config, opts RunOptions) (*App, error) {
	logger := setupLogger(cfg.Logging)

	creds, err := cfg.LoadCredentials()
	if err != nil {
		return nil, err
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Jitter:      500 * time.Millisecond,
	}

	generator := generate.NewGenerator(
		cfg.Generation,
		cfg.Event,
		creds.GenerationAPIKey,
		retry.New(policy, generate.IsTemporaryError, logger.With("component", "generate")),
		logger.With("component", "generate"),
	)

	composer := compose.NewComposer(cfg.Event.Name, cfg.Unsubscribe.BaseURL)

	sender, err := buildSender(cfg, creds, policy, logger)
	if err != nil {
		return nil, err
	}

	pacer := ratelimit.NewPacer(cfg.RateLimit.BaseDelay, cfg.RateLimit.MaxJitter, logger.With("component", "ratelimit"))

	store, err := report.NewStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	run := &report.RunInfo{
		ID:        uuid.New().String(),
		EventName: cfg.Event.Name,
		StartedAt: time.Now(),
		DryRun:    cfg.Delivery.DryRun,
	}

	collector, err := report.NewCollector(store, run, cfg.Output.Dir, logger.With("component", "report"))
	if err != nil {
		store.Close()
		return nil, err
	}

	runner := campaign.NewRunner(
		generator,
		composer,
		sender,
		pacer,
		collector,
		campaign.Options{
			From:          cfg.Sender.From,
			ReplyTo:       cfg.Sender.ReplyTo,
			ForcedVariant: opts.ForcedVariant,
			Seed:          opts.Seed,
		},
		logger.With("component", "campaign"),
	)

	return &App{
		config:    cfg,
		opts:      opts,
		store:     store,
		collector: collector,
		runner:    runner,
		logger:    logger,
	}, nil
}

// buildSender constructs the delivery provider. Dry run replaces it with a
// sender that performs no network calls.
func buildSender(cfg *config.Config, creds *config.Credentials, policy retry.Policy, logger *slog.Logger) (send.Sender, error) {
	if cfg.Delivery.DryRun {
		return send.NewDryRunSender(logger.With("component", "send")), nil
	}

	retryer := retry.New(policy, send.IsTemporaryError, logger.With("component", "send"))

	switch cfg.Delivery.Provider {
	case "resend":
		return send.NewResendSender(creds.ResendAPIKey, retryer, logger.With("component", "send")), nil
	case "smtp":
		return send.NewSMTPSender(cfg.Delivery.SMTP, creds.SMTPPassword, retryer, logger.With("component", "send")), nil
	default:
		return nil, fmt.Errorf("unknown delivery provider: %s", cfg.Delivery.Provider)
	}
}

// Run executes the campaign and always finalizes the report and backup,
// including after an interrupt.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()

	start := time.Now()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a.logger.Info("starting email campaign",
		"event", a.config.Event.Name,
		"profiles", a.opts.ProfilesPath,
		"dry_run", a.config.Delivery.DryRun,
	)

	profiles, err := profile.LoadProfiles(a.opts.ProfilesPath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	a.logger.Info("profiles loaded", "count", len(profiles))

	unsubscribed := profile.UnsubscribeSet{}
	if a.opts.UnsubscribedPath != "" {
		unsubscribed, err = profile.LoadUnsubscribeSet(a.opts.UnsubscribedPath)
		if err != nil {
			return fmt.Errorf("failed to load unsubscribe list: %w", err)
		}
		a.logger.Info("unsubscribe list loaded", "count", len(unsubscribed))
	}

	_, runErr := a.runner.Run(ctx, profiles, unsubscribed)

	summary, err := a.collector.Finalize(time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}

	fmt.Print(summary.ReportText)

	if runErr != nil {
		return fmt.Errorf("campaign interrupted: %w", runErr)
	}

	a.logger.Info("campaign completed",
		"sent", summary.Stats.Sent,
		"failed", summary.Stats.Failed,
		"duration", summary.Stats.Duration,
	)
	return nil
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
