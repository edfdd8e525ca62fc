package send

import (
	"context"
	"io"
	"log/slog"
)

// DryRunSender logs the intended send and reports success without any
// network call. It is used for rehearsal runs.
type DryRunSender struct {
	logger *slog.Logger
}

// NewDryRunSender creates a dry-run sender
func NewDryRunSender(logger *slog.Logger) *DryRunSender {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DryRunSender{logger: logger}
}

// Send logs what would have been sent and succeeds unconditionally
func (s *DryRunSender) Send(ctx context.Context, msg *Message) error {
	s.logger.Info("[dry run] would send email",
		"to", msg.To,
		"from", msg.From,
		"subject", msg.Subject,
	)
	return nil
}
