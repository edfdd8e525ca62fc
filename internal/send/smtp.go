package send

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/retry"
)

// SMTPSender delivers messages through an SMTP relay with bounded retry
type SMTPSender struct {
	cfg      config.SMTPConfig
	password string
	retryer  *retry.Retryer
	logger   *slog.Logger
	now      func() time.Time
}

// NewSMTPSender creates an SMTP relay sender
func NewSMTPSender(cfg config.SMTPConfig, password string, retryer *retry.Retryer, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SMTPSender{
		cfg:      cfg,
		password: password,
		retryer:  retryer,
		logger:   logger,
		now:      time.Now,
	}
}

// Send delivers the message, retrying transient failures
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	envelopeFrom, err := envelopeAddress(msg.From)
	if err != nil {
		return &SendError{Temporary: false, Message: fmt.Sprintf("invalid from address: %v", err)}
	}

	data, err := buildMIME(msg, s.now())
	if err != nil {
		return &SendError{Temporary: false, Message: fmt.Sprintf("failed to build message: %v", err)}
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	var auth sasl.Client
	if s.cfg.Username != "" {
		auth = sasl.NewPlainClient("", s.cfg.Username, s.password)
	}

	err = s.retryer.Do(ctx, "send", func(ctx context.Context) error {
		var sendErr error
		if s.cfg.ImplicitTLS {
			sendErr = smtp.SendMailTLS(addr, auth, envelopeFrom, []string{msg.To}, bytes.NewReader(data))
		} else {
			sendErr = smtp.SendMail(addr, auth, envelopeFrom, []string{msg.To}, bytes.NewReader(data))
		}
		if sendErr != nil {
			return classifySMTPError(sendErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("email sent", "to", msg.To, "relay", addr)
	return nil
}

// classifySMTPError maps SMTP reply codes to transient or terminal errors:
// 4xx is transient, 5xx is terminal, anything else (network) is transient.
func classifySMTPError(err error) *SendError {
	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		return &SendError{
			Temporary: smtpErr.Code >= 400 && smtpErr.Code < 500,
			Message:   err.Error(),
		}
	}
	return &SendError{Temporary: true, Message: err.Error()}
}

// envelopeAddress extracts the bare address from a possibly display-named
// sender value.
func envelopeAddress(from string) (string, error) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}

// buildMIME renders the message as multipart/alternative with plain-text and
// HTML parts, carrying the one-click unsubscribe headers.
func buildMIME(msg *Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	boundary := fmt.Sprintf("==Boundary_%s==", uuid.New().String())
	domain := "localhost"
	if addr, err := mail.ParseAddress(msg.From); err == nil {
		if at := bytes.LastIndexByte([]byte(addr.Address), '@'); at > 0 {
			domain = addr.Address[at+1:]
		}
	}

	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s@%s>\r\n", uuid.New().String(), domain)
	for name, value := range unsubscribeHeaders(msg) {
		fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
	}
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	buf.WriteString("\r\n")

	if err := writePart(&buf, boundary, "text/plain", msg.Text); err != nil {
		return nil, err
	}
	if err := writePart(&buf, boundary, "text/html", msg.HTML); err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return buf.Bytes(), nil
}

func writePart(buf *bytes.Buffer, boundary, contentType, body string) error {
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: %s; charset=utf-8\r\n", contentType)
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")

	w := quotedprintable.NewWriter(buf)
	if _, err := w.Write([]byte(body)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	buf.WriteString("\r\n")
	return nil
}
