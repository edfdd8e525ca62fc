// Package report tracks per-recipient outcomes and produces the end-of-run
// report and backup artifacts.
package report

import (
	"time"
)

// RecordStatus represents the outcome of one processed profile
type RecordStatus string

const (
	StatusPending RecordStatus = "pending"
	StatusSent    RecordStatus = "sent"
	StatusFailed  RecordStatus = "failed"
	StatusSkipped RecordStatus = "skipped"
)

// Record is the audit trail entry for one processed profile. Nullable fields
// stay nil when generation never completed.
type Record struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	FullName       string       `json:"full_name"`
	Email          string       `json:"email"`
	Subject        *string      `json:"subject,omitempty"`
	SubjectVariant *int         `json:"subject_variant,omitempty"`
	Body           *string      `json:"body,omitempty"`
	Status         RecordStatus `json:"status"`
	ErrorMessage   *string      `json:"error_message,omitempty"`
}

// Stats are the aggregate campaign counters. Single writer, read once at the
// end of the run.
type Stats struct {
	Total        int
	Valid        int
	Invalid      int
	Unsubscribed int
	Generated    int
	Sent         int
	Failed       int
	Duration     time.Duration
}

// RunInfo describes one stored campaign run
type RunInfo struct {
	ID        string    `json:"id"`
	EventName string    `json:"event_name"`
	StartedAt time.Time `json:"started_at"`
	DryRun    bool      `json:"dry_run"`
}
