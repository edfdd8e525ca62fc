package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketRuns    = []byte("runs")
	bucketRecords = []byte("records")
)

// Store persists campaign records in BoltDB. Every append commits its own
// transaction, so a mid-run interruption loses no completed work.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) the record store at path
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketRecords} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// BeginRun registers a new run and prepares its record bucket
func (s *Store) BeginRun(info *RunInfo) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to marshal run info: %w", err)
		}

		runsBucket := tx.Bucket(bucketRuns)
		key := makeIndexKey(info.StartedAt, info.ID)
		if err := runsBucket.Put(key, data); err != nil {
			return fmt.Errorf("failed to store run info: %w", err)
		}

		recordsBucket := tx.Bucket(bucketRecords)
		if _, err := recordsBucket.CreateBucketIfNotExists([]byte(info.ID)); err != nil {
			return fmt.Errorf("failed to create run records bucket: %w", err)
		}

		return nil
	})
}

// Append stores one record for a run. The write is flushed before Append
// returns.
func (s *Store) Append(runID string, rec *Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		runBucket := tx.Bucket(bucketRecords).Bucket([]byte(runID))
		if runBucket == nil {
			return fmt.Errorf("unknown run: %s", runID)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		key := makeIndexKey(rec.Timestamp, rec.ID)
		if err := runBucket.Put(key, data); err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}

		return nil
	})
}

// List returns a run's records in insertion (timestamp) order
func (s *Store) List(runID string) ([]*Record, error) {
	var records []*Record

	err := s.db.View(func(tx *bolt.Tx) error {
		runBucket := tx.Bucket(bucketRecords).Bucket([]byte(runID))
		if runBucket == nil {
			return fmt.Errorf("unknown run: %s", runID)
		}

		return runBucket.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil // Skip invalid entries
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Runs returns all stored runs in start order
func (s *Store) Runs() ([]*RunInfo, error) {
	var runs []*RunInfo

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var info RunInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return nil // Skip invalid entries
			}
			runs = append(runs, &info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return runs, nil
}

// LatestRun returns the most recently started run, or nil when the store is
// empty.
func (s *Store) LatestRun() (*RunInfo, error) {
	runs, err := s.Runs()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[len(runs)-1], nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// makeIndexKey builds a lexicographically time-ordered key:
// timestamp (RFC3339Nano) + ":" + id
func makeIndexKey(t time.Time, id string) []byte {
	return []byte(t.UTC().Format(time.RFC3339Nano) + ":" + id)
}
