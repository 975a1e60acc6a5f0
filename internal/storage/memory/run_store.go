package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

// RunStore keeps pipeline run history in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]storage.RunRecord
}

// NewRunStore constructs an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]storage.RunRecord)}
}

// StartRun records a run in the RUNNING state. Restarting a known run is a
// no-op.
func (s *RunStore) StartRun(_ context.Context, runID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; ok {
		return nil
	}
	s.runs[runID] = storage.RunRecord{RunID: runID, StartedAt: startedAt.UTC(), State: "RUNNING"}
	return nil
}

// CompleteRun stores the final state, creating the row if StartRun was missed.
func (s *RunStore) CompleteRun(_ context.Context, runID string, finishedAt time.Time, state string, summary []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[runID]
	if !ok {
		rec = storage.RunRecord{RunID: runID, StartedAt: finishedAt.UTC()}
	}
	fin := finishedAt.UTC()
	rec.FinishedAt = &fin
	rec.State = state
	rec.Summary = append([]byte(nil), summary...)
	s.runs[runID] = rec
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *RunStore) RecentRuns(_ context.Context, limit int) ([]storage.RunRecord, error) {
	s.mu.RLock()
	out := make([]storage.RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID > out[j].RunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetRun returns one run or storage.ErrNotFound.
func (s *RunStore) GetRun(_ context.Context, runID string) (storage.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return storage.RunRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

var _ storage.RunStore = (*RunStore)(nil)
