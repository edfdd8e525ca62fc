package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Collector accumulates one record per processed profile and the running
// campaign counters. Each record is persisted as soon as it is recorded.
type Collector struct {
	store     *Store
	run       *RunInfo
	outputDir string
	stats     Stats
	logger    *slog.Logger
	now       func() time.Time
}

// NewCollector creates a collector for one run and registers the run in the
// store.
func NewCollector(store *Store, run *RunInfo, outputDir string, logger *slog.Logger) (*Collector, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := store.BeginRun(run); err != nil {
		return nil, fmt.Errorf("failed to register run: %w", err)
	}

	return &Collector{
		store:     store,
		run:       run,
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// SetTotals records the dataset-level counters established before the loop
func (c *Collector) SetTotals(total, valid, invalid int) {
	c.stats.Total = total
	c.stats.Valid = valid
	c.stats.Invalid = invalid
}

// MarkUnsubscribed counts a skipped profile. No record is written for it.
func (c *Collector) MarkUnsubscribed() {
	c.stats.Unsubscribed++
}

// MarkGenerated counts a successful body generation
func (c *Collector) MarkGenerated() {
	c.stats.Generated++
}

// Record persists one outcome and updates the counters. Exactly one of the
// sent/failed counters is incremented per record.
func (c *Collector) Record(rec *Record) error {
	switch rec.Status {
	case StatusSent:
		c.stats.Sent++
	case StatusFailed:
		c.stats.Failed++
	default:
		return fmt.Errorf("record for %s has non-terminal status %q", rec.Email, rec.Status)
	}

	if err := c.store.Append(c.run.ID, rec); err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}

	return nil
}

// Stats returns a copy of the current counters
func (c *Collector) Stats() Stats {
	return c.stats
}

// Summary is the result of finalizing a run
type Summary struct {
	Stats      Stats
	ReportText string
	BackupPath string
	ReportPath string
}

// Finalize writes the CSV backup of all records and the plain-text campaign
// report. It reflects whatever was recorded up to this point, so it is safe
// to call after an interrupted run.
func (c *Collector) Finalize(duration time.Duration) (*Summary, error) {
	c.stats.Duration = duration

	records, err := c.store.List(c.run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	stamp := c.now().Format("20060102_150405")

	var backupPath string
	if len(records) > 0 {
		backupPath = filepath.Join(c.outputDir, fmt.Sprintf("generated_emails_%s.csv", stamp))
		if err := writeBackup(backupPath, records); err != nil {
			return nil, err
		}
		c.logger.Info("backup saved", "path", backupPath)
	}

	text := renderReport(c.run, c.stats, c.now())

	reportPath := filepath.Join(c.outputDir, fmt.Sprintf("campaign_%s.txt", stamp))
	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(reportPath, []byte(text), 0644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	c.logger.Info("report saved", "path", reportPath)

	return &Summary{
		Stats:      c.stats,
		ReportText: text,
		BackupPath: backupPath,
		ReportPath: reportPath,
	}, nil
}

// writeBackup exports records as CSV, one row per processed profile
func writeBackup(path string, records []*Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"timestamp", "full_name", "email", "subject", "subject_variant", "body", "status", "error_message"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write backup header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Timestamp.Format(time.RFC3339),
			rec.FullName,
			rec.Email,
			strValue(rec.Subject),
			intValue(rec.SubjectVariant),
			strValue(rec.Body),
			string(rec.Status),
			strValue(rec.ErrorMessage),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write backup row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush backup: %w", err)
	}

	return nil
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intValue(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
