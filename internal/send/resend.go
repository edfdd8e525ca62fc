package send

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/resend/resend-go/v3"

	"github.com/foxzi/outreach/internal/retry"
)

// ResendSender delivers messages through the Resend API with bounded retry
type ResendSender struct {
	client  *resend.Client
	retryer *retry.Retryer
	logger  *slog.Logger
}

// NewResendSender creates a Resend-backed sender
func NewResendSender(apiKey string, retryer *retry.Retryer, logger *slog.Logger) *ResendSender {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ResendSender{
		client:  resend.NewClient(apiKey),
		retryer: retryer,
		logger:  logger,
	}
}

// Send delivers the message, retrying transient failures
func (s *ResendSender) Send(ctx context.Context, msg *Message) error {
	req := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
		Headers: unsubscribeHeaders(msg),
	}

	err := s.retryer.Do(ctx, "send", func(ctx context.Context) error {
		_, sendErr := s.client.Emails.SendWithContext(ctx, req)
		if sendErr != nil {
			return classifySendError(sendErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("email sent", "to", msg.To)
	return nil
}

// classifySendError wraps a provider error with transient/terminal
// information. Cancellation is terminal; everything else is assumed
// transient and left to the retry budget.
func classifySendError(err error) *SendError {
	temporary := true
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		temporary = false
	}
	return &SendError{
		Temporary: temporary,
		Message:   err.Error(),
	}
}
