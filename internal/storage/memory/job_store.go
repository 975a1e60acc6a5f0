package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

// JobStore keeps canonical records in memory.
type JobStore struct {
	mu   sync.RWMutex
	rows map[string]jobs.Record
}

// NewJobStore constructs an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{rows: make(map[string]jobs.Record)}
}

// InsertNew adds records whose job_id is absent. The batch is applied
// atomically: a record without job_id rejects the whole batch.
func (s *JobStore) InsertNew(ctx context.Context, records []jobs.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for _, rec := range records {
		if rec.JobID == "" {
			return 0, errors.New("record without job_id")
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, rec := range records {
		if _, ok := s.rows[rec.JobID]; ok {
			continue
		}
		s.rows[rec.JobID] = rec
		inserted++
	}
	return inserted, nil
}

// Query filters, orders and pages the stored records.
func (s *JobStore) Query(ctx context.Context, q storage.Query) (storage.Page, error) {
	if err := ctx.Err(); err != nil {
		return storage.Page{}, err
	}
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return storage.Page{}, err
	}
	s.mu.RLock()
	matched := make([]jobs.Record, 0, len(s.rows))
	for _, rec := range s.rows {
		if q.Matches(rec) {
			matched = append(matched, rec)
		}
	}
	s.mu.RUnlock()
	storage.SortRecords(matched)
	return storage.Page{Total: len(matched), Jobs: storage.Paginate(matched, q.Limit, q.Offset)}, nil
}

// Count returns the number of stored records.
func (s *JobStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

// Close is a no-op.
func (s *JobStore) Close() error { return nil }

var _ storage.JobStore = (*JobStore)(nil)
