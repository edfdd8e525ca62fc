package campaign

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/outreach/internal/compose"
	"github.com/foxzi/outreach/internal/profile"
	"github.com/foxzi/outreach/internal/report"
	"github.com/foxzi/outreach/internal/send"
)

type fakeGenerator struct {
	body  string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, p profile.Profile) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.body, nil
}

type fakeSender struct {
	err   error
	calls int
	sent  []*send.Message
}

func (s *fakeSender) Send(ctx context.Context, msg *send.Message) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakePacer struct {
	waits []bool
}

func (p *fakePacer) Wait(ctx context.Context, lastItem bool) error {
	p.waits = append(p.waits, lastItem)
	return ctx.Err()
}

type runnerFixture struct {
	runner    *Runner
	generator *fakeGenerator
	sender    *fakeSender
	pacer     *fakePacer
	collector *report.Collector
	store     *report.Store
	run       *report.RunInfo
}

func newRunnerFixture(t *testing.T, opts Options) *runnerFixture {
	t.Helper()

	store, err := report.NewStore(filepath.Join(t.TempDir(), "outreach.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	run := &report.RunInfo{
		ID:        uuid.New().String(),
		EventName: "TechConf 2026",
		StartedAt: time.Now(),
	}
	collector, err := report.NewCollector(store, run, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	generator := &fakeGenerator{body: "Hi there,\n\nJoin us in Berlin."}
	sender := &fakeSender{}
	pacer := &fakePacer{}
	composer := compose.NewComposer("TechConf 2026", "https://example.com/unsubscribe")

	if opts.From == "" {
		opts.From = "events@example.com"
	}

	return &runnerFixture{
		runner:    NewRunner(generator, composer, sender, pacer, collector, opts, nil),
		generator: generator,
		sender:    sender,
		pacer:     pacer,
		collector: collector,
		store:     store,
		run:       run,
	}
}

func validProfiles() []profile.Profile {
	return []profile.Profile{
		{FullName: "Alice Johnson", Email: "alice@example.com", Company: "Acme", JobTitle: "CTO"},
		{FullName: "Bob Smith", Email: "bob@example.com", Company: "Globex", JobTitle: "VP"},
	}
}

func TestRunAllSent(t *testing.T) {
	f := newRunnerFixture(t, Options{ForcedVariant: 0, Seed: 1})

	stats, err := f.runner.Run(context.Background(), validProfiles(), profile.UnsubscribeSet{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := report.Stats{Total: 2, Valid: 2, Generated: 2, Sent: 2}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if f.sender.calls != 2 {
		t.Errorf("expected 2 sends, got %d", f.sender.calls)
	}

	records, err := f.store.List(f.run.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Status != report.StatusSent {
			t.Errorf("record %s: status = %q", rec.Email, rec.Status)
		}
		if rec.Subject == nil || rec.Body == nil || rec.SubjectVariant == nil {
			t.Errorf("record %s: missing composed fields", rec.Email)
		}
	}

	if len(f.pacer.waits) != 2 || f.pacer.waits[0] || !f.pacer.waits[1] {
		t.Errorf("unexpected pacing: %v", f.pacer.waits)
	}

	msg := f.sender.sent[0]
	if msg.To != "alice@example.com" {
		t.Errorf("first send to %q", msg.To)
	}
	if msg.Subject != "Alice, you're invited to TechConf 2026" {
		t.Errorf("unexpected subject: %q", msg.Subject)
	}
}

func TestRunSkipsUnsubscribed(t *testing.T) {
	f := newRunnerFixture(t, Options{ForcedVariant: 0, Seed: 1})

	unsubscribed := profile.UnsubscribeSet{"bob@example.com": {}}
	stats, err := f.runner.Run(context.Background(), validProfiles(), unsubscribed)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := report.Stats{Total: 2, Valid: 2, Unsubscribed: 1, Generated: 1, Sent: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if f.generator.calls != 1 {
		t.Errorf("generator called %d times for an unsubscribed recipient run", f.generator.calls)
	}

	records, err := f.store.List(f.run.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("skipped recipient must not produce a record, got %d records", len(records))
	}
	if records[0].Email != "alice@example.com" {
		t.Errorf("unexpected record: %s", records[0].Email)
	}
}

func TestRunExcludesInvalidEmails(t *testing.T) {
	f := newRunnerFixture(t, Options{ForcedVariant: 0, Seed: 1})

	profiles := append(validProfiles(), profile.Profile{FullName: "Eve", Email: "not-an-email"})
	stats, err := f.runner.Run(context.Background(), profiles, profile.UnsubscribeSet{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := report.Stats{Total: 3, Valid: 2, Invalid: 1, Generated: 2, Sent: 2}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if f.generator.calls != 2 {
		t.Errorf("invalid profile must not reach the generator, got %d calls", f.generator.calls)
	}
}

func TestRunRecordsGenerationFailure(t *testing.T) {
	f := newRunnerFixture(t, Options{ForcedVariant: 0, Seed: 1})
	f.generator.err = errors.New("generation service returned 503: overloaded")

	stats, err := f.runner.Run(context.Background(), validProfiles()[:1], profile.UnsubscribeSet{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := report.Stats{Total: 1, Valid: 1, Failed: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if f.sender.calls != 0 {
		t.Error("sender must not be invoked when generation fails")
	}

	records, err := f.store.List(f.run.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Status != report.StatusFailed {
		t.Errorf("status = %q", rec.Status)
	}
	if rec.Subject != nil || rec.Body != nil || rec.SubjectVariant != nil {
		t.Error("generation failure must leave subject and body unset")
	}
	if rec.ErrorMessage == nil || *rec.ErrorMessage != f.generator.err.Error() {
		t.Errorf("error message = %v", rec.ErrorMessage)
	}
}

func TestRunRecordsSendFailure(t *testing.T) {
	f := newRunnerFixture(t, Options{ForcedVariant: 2, Seed: 1})
	f.sender.err = &send.SendError{Temporary: false, Message: "550 no such user"}

	stats, err := f.runner.Run(context.Background(), validProfiles()[:1], profile.UnsubscribeSet{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := report.Stats{Total: 1, Valid: 1, Generated: 1, Failed: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	records, err := f.store.List(f.run.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Status != report.StatusFailed {
		t.Errorf("status = %q", rec.Status)
	}
	if rec.Subject == nil || rec.Body == nil {
		t.Error("send failure must still carry the composed subject and body")
	}
	if rec.SubjectVariant == nil || *rec.SubjectVariant != 2 {
		t.Errorf("variant = %v, want 2", rec.SubjectVariant)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	f := newRunnerFixture(t, Options{ForcedVariant: 0, Seed: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := f.runner.Run(ctx, validProfiles(), profile.UnsubscribeSet{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stats.Sent != 0 {
		t.Errorf("nothing should be sent after cancellation, got %d", stats.Sent)
	}
	if f.generator.calls != 0 {
		t.Errorf("generator called %d times after cancellation", f.generator.calls)
	}
}

func TestRunPicksVariantsDeterministically(t *testing.T) {
	first := newRunnerFixture(t, Options{ForcedVariant: -1, Seed: 42})
	second := newRunnerFixture(t, Options{ForcedVariant: -1, Seed: 42})

	profiles := validProfiles()
	if _, err := first.runner.Run(context.Background(), profiles, profile.UnsubscribeSet{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := second.runner.Run(context.Background(), profiles, profile.UnsubscribeSet{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := range first.sender.sent {
		if first.sender.sent[i].Subject != second.sender.sent[i].Subject {
			t.Errorf("send %d: subjects differ across identical seeds", i)
		}
	}
}
