// Package storage defines the persistence boundaries: the job store fed by the
// loader and read by the API, the run history written by the pipeline, and
// blob stores used to archive canonical files.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// JobStore persists canonical records keyed by job_id.
type JobStore interface {
	// InsertNew stores every record whose job_id is not yet present, inside a
	// single transaction. Existing rows are left untouched. On error nothing
	// is written.
	InsertNew(ctx context.Context, records []jobs.Record) (inserted int, err error)
	// Query returns one filtered, ordered page plus the total match count.
	Query(ctx context.Context, q Query) (Page, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Page is one slice of a query result.
type Page struct {
	Total int           `json:"total"`
	Jobs  []jobs.Record `json:"jobs"`
}

// RunRecord is one pipeline run as persisted in the run history.
type RunRecord struct {
	RunID      string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	State      string     `json:"state"`
	Summary    []byte     `json:"-"`
}

// RunStore records pipeline runs.
type RunStore interface {
	StartRun(ctx context.Context, runID string, startedAt time.Time) error
	CompleteRun(ctx context.Context, runID string, finishedAt time.Time, state string, summary []byte) error
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	// GetRun returns ErrNotFound for unknown runs.
	GetRun(ctx context.Context, runID string) (RunRecord, error)
}

// BlobStore writes artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// NoopBlobStore discards every object.
type NoopBlobStore struct{}

// PutObject drains r and returns an empty URI.
func (NoopBlobStore) PutObject(_ context.Context, _ string, _ string, r io.Reader) (string, error) {
	_, err := io.Copy(io.Discard, r)
	return "", err
}
