// Package send delivers composed emails through an external delivery service.
package send

import (
	"context"
	"errors"
	"fmt"
)

// Message is the structured send descriptor handed to a delivery provider
type Message struct {
	From           string
	To             string
	ReplyTo        string
	Subject        string
	HTML           string
	Text           string
	UnsubscribeURL string
}

// Sender is an interface for sending messages
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SendError represents a delivery error with type information
type SendError struct {
	Temporary bool
	Message   string
}

func (e *SendError) Error() string {
	return e.Message
}

// IsTemporaryError checks if the error is temporary
func IsTemporaryError(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return se.Temporary
	}
	return true // Assume temporary if unknown
}

// unsubscribeHeaders returns the one-click unsubscribe headers referencing
// the same link the composer put in the body.
func unsubscribeHeaders(msg *Message) map[string]string {
	return map[string]string{
		"List-Unsubscribe":      fmt.Sprintf("<%s>", msg.UnsubscribeURL),
		"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
	}
}
