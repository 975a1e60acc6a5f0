package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

// RunStore records pipeline runs in Postgres.
type RunStore struct {
	pool  pool
	table string
}

// NewRunStoreWithPool constructs a run store sharing an existing pool.
func NewRunStoreWithPool(p pool, table string) (*RunStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	_, table, err := Config{RunsTable: table}.tables()
	if err != nil {
		return nil, err
	}
	return &RunStore{pool: p, table: table}, nil
}

// EnsureSchema creates the runs table if it does not exist.
func (s *RunStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	state TEXT NOT NULL,
	summary JSONB
)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// StartRun inserts a RUNNING row; an existing row is left alone.
func (s *RunStore) StartRun(ctx context.Context, runID string, startedAt time.Time) error {
	query := fmt.Sprintf(`INSERT INTO %s (run_id, started_at, state)
VALUES ($1, $2, 'RUNNING')
ON CONFLICT (run_id) DO NOTHING`, s.table)
	if _, err := s.pool.Exec(ctx, query, runID, startedAt.UTC()); err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// CompleteRun stores the final state of a run, inserting it if needed.
func (s *RunStore) CompleteRun(ctx context.Context, runID string, finishedAt time.Time, state string, summary []byte) error {
	var payload any
	if len(summary) > 0 {
		payload = string(summary)
	}
	query := fmt.Sprintf(`INSERT INTO %s (run_id, started_at, finished_at, state, summary)
VALUES ($1, $2, $2, $3, $4)
ON CONFLICT (run_id) DO UPDATE
SET finished_at = EXCLUDED.finished_at, state = EXCLUDED.state, summary = EXCLUDED.summary`, s.table)
	if _, err := s.pool.Exec(ctx, query, runID, finishedAt.UTC(), state, payload); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *RunStore) RecentRuns(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if limit <= 0 {
		limit = storage.DefaultLimit
	}
	query := fmt.Sprintf(`SELECT run_id, started_at, finished_at, state, coalesce(summary::text, '')
FROM %s ORDER BY started_at DESC, run_id DESC LIMIT $1`, s.table)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []storage.RunRecord
	for rows.Next() {
		var (
			rec     storage.RunRecord
			summary string
		)
		if err := rows.Scan(&rec.RunID, &rec.StartedAt, &rec.FinishedAt, &rec.State, &summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if summary != "" {
			rec.Summary = []byte(summary)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// GetRun returns one run or storage.ErrNotFound.
func (s *RunStore) GetRun(ctx context.Context, runID string) (storage.RunRecord, error) {
	query := fmt.Sprintf(`SELECT run_id, started_at, finished_at, state, coalesce(summary::text, '')
FROM %s WHERE run_id = $1`, s.table)
	var (
		rec     storage.RunRecord
		summary string
	)
	err := s.pool.QueryRow(ctx, query, runID).Scan(&rec.RunID, &rec.StartedAt, &rec.FinishedAt, &rec.State, &summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.RunRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	if summary != "" {
		rec.Summary = []byte(summary)
	}
	return rec, nil
}

var _ storage.RunStore = (*RunStore)(nil)
