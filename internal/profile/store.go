package profile

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
)

// requiredColumns are the dataset columns every profile row must provide
var requiredColumns = []string{
	"full_name", "email", "company", "job_title", "industry", "goal", "interests",
}

// SchemaError indicates the dataset header is missing required columns.
// It is fatal: the run aborts before any external call is made.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset missing required columns: %s", strings.Join(e.Missing, ", "))
}

// LoadProfiles reads the recipient dataset from a CSV file.
// The header must contain every required column; extra columns are ignored.
func LoadProfiles(path string) ([]Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &SchemaError{Missing: missing}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset rows: %w", err)
	}

	field := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	profiles := make([]Profile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, Profile{
			FullName:  field(row, "full_name"),
			Email:     field(row, "email"),
			Company:   field(row, "company"),
			JobTitle:  field(row, "job_title"),
			Industry:  field(row, "industry"),
			Goal:      field(row, "goal"),
			Interests: field(row, "interests"),
		})
	}

	return profiles, nil
}

// UnsubscribeSet is the set of addresses excluded from processing.
// Loaded once per run, read-only afterwards. Matching is case-insensitive.
type UnsubscribeSet map[string]struct{}

// Contains reports whether the address is unsubscribed
func (s UnsubscribeSet) Contains(email string) bool {
	_, ok := s[strings.ToLower(email)]
	return ok
}

// LoadUnsubscribeSet reads the unsubscribe dataset (single "email" column).
// A missing file yields an empty set: no one has unsubscribed yet.
func LoadUnsubscribeSet(path string) (UnsubscribeSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return UnsubscribeSet{}, nil
		}
		return nil, fmt.Errorf("failed to open unsubscribe file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		// Empty file behaves like a missing one
		return UnsubscribeSet{}, nil
	}

	emailCol := -1
	for i, col := range header {
		if strings.ToLower(strings.TrimSpace(col)) == "email" {
			emailCol = i
			break
		}
	}
	if emailCol < 0 {
		return nil, &SchemaError{Missing: []string{"email"}}
	}

	set := UnsubscribeSet{}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read unsubscribe rows: %w", err)
	}
	for _, row := range rows {
		if emailCol < len(row) {
			if email := strings.TrimSpace(row[emailCol]); email != "" {
				set[strings.ToLower(email)] = struct{}{}
			}
		}
	}

	return set, nil
}
