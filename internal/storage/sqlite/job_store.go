// Package sqlite provides a single-file job and run store for local use,
// backed by the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

// Store keeps jobs and pipeline runs in one SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases
	// shared across calls.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	cols := make([]string, 0, len(jobs.Columns)+1)
	for _, c := range jobs.Columns {
		switch c {
		case jobs.ColJobID:
			cols = append(cols, "job_id TEXT PRIMARY KEY")
		case jobs.ColSalaryMin, jobs.ColSalaryMax:
			cols = append(cols, c+" REAL")
		default:
			cols = append(cols, c+" TEXT NOT NULL DEFAULT ''")
		}
	}
	cols = append(cols, "loaded_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))")
	stmts := []string{
		"PRAGMA journal_mode=WAL",
		"CREATE TABLE IF NOT EXISTS jobs (" + strings.Join(cols, ", ") + ")",
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			state TEXT NOT NULL,
			summary TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertNew inserts records in one transaction, skipping existing job_ids.
func (s *Store) InsertNew(ctx context.Context, records []jobs.Record) (inserted int, err error) {
	for _, rec := range records {
		if rec.JobID == "" {
			return 0, errors.New("record without job_id")
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(jobs.Columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO jobs (%s) VALUES (%s) ON CONFLICT (job_id) DO NOTHING",
		strings.Join(jobs.Columns, ", "), placeholders))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		res, execErr := stmt.ExecContext(ctx, insertArgs(rec)...)
		if execErr != nil {
			return 0, fmt.Errorf("insert job %s: %w", rec.JobID, execErr)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

func insertArgs(rec jobs.Record) []any {
	args := make([]any, len(jobs.Columns))
	for i, c := range jobs.Columns {
		switch c {
		case jobs.ColSalaryMin:
			args[i] = rec.SalaryMin
		case jobs.ColSalaryMax:
			args[i] = rec.SalaryMax
		default:
			args[i] = rec.Field(c)
		}
	}
	return args
}

const listingOrder = `(CASE WHEN date_publication GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]' THEN date_publication END) DESC NULLS LAST, job_id`

func whereClause(q storage.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Search != "" {
		pattern := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(q.Search)) + "%"
		parts := make([]string, len(storage.SearchColumns))
		for i, c := range storage.SearchColumns {
			parts[i] = "lower(" + c + `) LIKE ? ESCAPE '\'`
			args = append(args, pattern)
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}
	for _, f := range q.Filters() {
		conds = append(conds, "lower("+f.Column+") = lower(?)")
		args = append(args, f.Value)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query returns one filtered page and the total match count.
func (s *Store) Query(ctx context.Context, q storage.Query) (storage.Page, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return storage.Page{}, err
	}
	where, args := whereClause(q)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM jobs"+where, args...).Scan(&total); err != nil {
		return storage.Page{}, fmt.Errorf("count jobs: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM jobs%s ORDER BY %s LIMIT ? OFFSET ?", strings.Join(jobs.Columns, ", "), where, listingOrder),
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return storage.Page{}, fmt.Errorf("query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]jobs.Record, 0, q.Limit)
	for rows.Next() {
		var (
			rec    jobs.Record
			fields = make(map[string]*string, len(jobs.Columns))
			dest   = make([]any, len(jobs.Columns))
		)
		for i, c := range jobs.Columns {
			switch c {
			case jobs.ColSalaryMin:
				dest[i] = &rec.SalaryMin
			case jobs.ColSalaryMax:
				dest[i] = &rec.SalaryMax
			default:
				v := new(string)
				fields[c] = v
				dest[i] = v
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return storage.Page{}, fmt.Errorf("scan job: %w", err)
		}
		text := make(map[string]string, len(fields))
		for c, v := range fields {
			text[c] = *v
		}
		lo, hi := rec.SalaryMin, rec.SalaryMax
		rec = jobs.FromFields(text)
		rec.SalaryMin, rec.SalaryMax = lo, hi
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return storage.Page{}, fmt.Errorf("iterate jobs: %w", err)
	}
	return storage.Page{Total: total, Jobs: out}, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM jobs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

// StartRun inserts a RUNNING row; an existing row is left alone.
func (s *Store) StartRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (run_id, started_at, state) VALUES (?, ?, 'RUNNING') ON CONFLICT (run_id) DO NOTHING`,
		runID, formatTime(startedAt))
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// CompleteRun stores the final state of a run, inserting it if needed.
func (s *Store) CompleteRun(ctx context.Context, runID string, finishedAt time.Time, state string, summary []byte) error {
	fin := formatTime(finishedAt)
	var payload any
	if len(summary) > 0 {
		payload = string(summary)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO pipeline_runs (run_id, started_at, finished_at, state, summary)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (run_id) DO UPDATE SET finished_at = excluded.finished_at, state = excluded.state, summary = excluded.summary`,
		runID, fin, fin, state, payload)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if limit <= 0 {
		limit = storage.DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, state, summary FROM pipeline_runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []storage.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// GetRun returns one run or storage.ErrNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (storage.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, state, summary FROM pipeline_runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.RunRecord{}, storage.ErrNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (storage.RunRecord, error) {
	var (
		rec               storage.RunRecord
		started           string
		finished, summary sql.NullString
	)
	if err := row.Scan(&rec.RunID, &started, &finished, &rec.State, &summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if rec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return rec, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return rec, fmt.Errorf("parse finished_at: %w", err)
		}
		rec.FinishedAt = &t
	}
	if summary.Valid && summary.String != "" {
		rec.Summary = []byte(summary.String)
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

var (
	_ storage.JobStore = (*Store)(nil)
	_ storage.RunStore = (*Store)(nil)
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
