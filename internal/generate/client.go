// Package generate produces personalized message bodies by calling an
// OpenAI-compatible chat-completions endpoint.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/profile"
	"github.com/foxzi/outreach/internal/retry"
)

// GenerationError represents a generation service error with type information
type GenerationError struct {
	Temporary  bool
	StatusCode int
	Message    string
}

func (e *GenerationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("generation service returned %d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}

// IsTemporaryError checks if the error is temporary
func IsTemporaryError(err error) bool {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Temporary
	}
	return true // Assume temporary if unknown
}

// Generator calls the text-generation service with bounded retry
type Generator struct {
	cfg        config.GenerationConfig
	event      config.EventConfig
	apiKey     string
	httpClient *http.Client
	retryer    *retry.Retryer
	logger     *slog.Logger
}

// NewGenerator creates a new generator
func NewGenerator(cfg config.GenerationConfig, event config.EventConfig, apiKey string, retryer *retry.Retryer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		cfg:        cfg,
		event:      event,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retryer:    retryer,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces a personalized message body for the profile.
// Transient failures are retried under the configured policy; exhausting the
// budget surfaces the last error, which the caller treats as a per-profile
// failure.
func (g *Generator) Generate(ctx context.Context, p profile.Profile) (string, error) {
	var body string

	err := g.retryer.Do(ctx, "generate", func(ctx context.Context) error {
		var attemptErr error
		body, attemptErr = g.generateOnce(ctx, p)
		return attemptErr
	})
	if err != nil {
		return "", err
	}

	g.logger.Info("message body generated", "email", p.Email)
	return body, nil
}

func (g *Generator) generateOnce(ctx context.Context, p profile.Profile) (string, error) {
	payload := chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(g.event, p)},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", &GenerationError{Temporary: false, Message: fmt.Sprintf("failed to encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(data))
	if err != nil {
		return "", &GenerationError{Temporary: false, Message: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &GenerationError{Temporary: true, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GenerationError{Temporary: true, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &GenerationError{Temporary: false, Message: fmt.Sprintf("failed to parse response: %v", err)}
	}
	if parsed.Error != nil {
		return "", &GenerationError{Temporary: false, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", &GenerationError{Temporary: false, Message: "response contains no choices"}
	}

	body := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if body == "" {
		return "", &GenerationError{Temporary: false, Message: "response contains an empty message"}
	}

	return body, nil
}

// classifyStatus maps HTTP status codes to transient or terminal errors.
// Rate limiting and server-side errors are worth retrying.
func classifyStatus(status int, body []byte) *GenerationError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}

	temporary := status == http.StatusTooManyRequests || status >= 500

	return &GenerationError{
		Temporary:  temporary,
		StatusCode: status,
		Message:    msg,
	}
}
