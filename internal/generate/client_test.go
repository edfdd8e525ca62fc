package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/profile"
	"github.com/foxzi/outreach/internal/retry"
)

var testProfile = profile.Profile{
	FullName:  "Alice Johnson",
	Email:     "alice@example.com",
	Company:   "Acme",
	JobTitle:  "CTO",
	Industry:  "Fintech",
	Goal:      "Scale the platform",
	Interests: "AI, cloud",
}

var testEvent = config.EventConfig{
	Name:        "TechConf 2026",
	Date:        "2026-10-01",
	Location:    "Berlin",
	RegisterURL: "https://example.com/register",
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) (*Generator, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.GenerationConfig{
		Endpoint:    server.URL,
		Model:       "test-model",
		MaxTokens:   500,
		Temperature: 0.8,
		Timeout:     5 * time.Second,
	}

	retryer := retry.New(retry.Policy{MaxAttempts: 3}, IsTemporaryError, nil)
	retryer.SetSleep(func(ctx context.Context, d time.Duration) error { return nil })

	return NewGenerator(cfg, testEvent, "test-key", retryer, nil), server
}

func chatReply(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestGenerateSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(chatReply("  Hi Alice, join us at TechConf.  \n")))
	})

	body, err := gen.Generate(context.Background(), testProfile)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if body != "Hi Alice, join us at TechConf." {
		t.Errorf("body not trimmed: %q", body)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("unexpected model: %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
}

func TestGenerateRetriesOnRateLimit(t *testing.T) {
	calls := 0
	gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(chatReply("Hello")))
	})

	body, err := gen.Generate(context.Background(), testProfile)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if body != "Hello" {
		t.Errorf("unexpected body: %q", body)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	calls := 0
	gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	})

	_, err := gen.Generate(context.Background(), testProfile)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}

	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %T", err)
	}
	if !ge.Temporary {
		t.Error("503 should classify as temporary")
	}
	if ge.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unexpected status code: %d", ge.StatusCode)
	}
}

func TestGenerateDoesNotRetryClientError(t *testing.T) {
	calls := 0
	gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := gen.Generate(context.Background(), testProfile)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("client error must not be retried, got %d calls", calls)
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"blank content", chatReply("   \n")},
		{"service error", `{"error":{"message":"model not found"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := gen.Generate(context.Background(), testProfile)
			if err == nil {
				t.Fatal("expected error")
			}
			if IsTemporaryError(err) {
				t.Error("malformed response should be a permanent error")
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status    int
		temporary bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		got := classifyStatus(tt.status, []byte("detail"))
		if got.Temporary != tt.temporary {
			t.Errorf("classifyStatus(%d).Temporary = %v, want %v", tt.status, got.Temporary, tt.temporary)
		}
	}
}

func TestClassifyStatusTruncatesBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	got := classifyStatus(http.StatusInternalServerError, long)
	if len(got.Message) != 200 {
		t.Errorf("expected message truncated to 200 chars, got %d", len(got.Message))
	}
}
