// Package unsubscribe serves the one-click unsubscribe endpoint referenced
// by the List-Unsubscribe headers and body links.
package unsubscribe

import (
	"context"
	"encoding/csv"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/outreach/internal/profile"
)

// Server is the unsubscribe HTTP server. It appends addresses to the same
// CSV file the campaign run loads its exclusion set from.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	file       string
	logger     *slog.Logger
	mu         sync.Mutex
}

// NewServer creates an unsubscribe server writing to the given CSV file
func NewServer(file string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		router: chi.NewRouter(),
		file:   file,
		logger: logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	// GET renders a confirmation page; POST is the RFC 8058 one-click target
	s.router.Get("/unsubscribe", s.handleConfirm)
	s.router.Post("/unsubscribe", s.handleUnsubscribe)
}

// ListenAndServe starts the HTTP server on addr
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting unsubscribe server", "addr", addr, "file", s.file)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down unsubscribe server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Handler returns the underlying HTTP handler, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if !profile.IsValidEmail(email) {
		http.Error(w, "invalid email address", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body>
<p>Click the button to stop receiving emails at <b>%s</b>.</p>
<form method="post" action="/unsubscribe?email=%s"><button type="submit">Unsubscribe</button></form>
</body></html>`, html.EscapeString(email), url.QueryEscape(email))
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		// One-click POSTs may carry the address in the form body instead
		if err := r.ParseForm(); err == nil {
			email = strings.TrimSpace(r.PostForm.Get("email"))
		}
	}

	if !profile.IsValidEmail(email) {
		http.Error(w, "invalid email address", http.StatusBadRequest)
		return
	}

	if err := s.appendEmail(email); err != nil {
		s.logger.Error("failed to record unsubscribe", "email", email, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("recipient unsubscribed", "email", email)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "You have been unsubscribed: %s\n", email)
}

// appendEmail adds the address to the CSV file, creating it with a header
// when missing. Already-present addresses are not duplicated.
func (s *Server) appendEmail(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := profile.LoadUnsubscribeSet(s.file)
	if err != nil {
		return err
	}
	if set.Contains(email) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.file), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	newFile := false
	if _, err := os.Stat(s.file); os.IsNotExist(err) {
		newFile = true
	}

	f, err := os.OpenFile(s.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open unsubscribe file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write([]string{"email"}); err != nil {
			return err
		}
	}
	if err := w.Write([]string{strings.ToLower(email)}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
