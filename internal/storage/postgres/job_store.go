package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

// JobStore persists canonical records in a Postgres table keyed by job_id.
type JobStore struct {
	pool  pool
	table string
}

// NewJobStore connects using cfg.
func NewJobStore(ctx context.Context, cfg Config) (*JobStore, error) {
	if _, _, err := cfg.tables(); err != nil {
		return nil, err
	}
	p, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewJobStoreWithPool(p, cfg.Table)
}

// NewJobStoreWithPool constructs a store from an existing pool.
func NewJobStoreWithPool(p pool, table string) (*JobStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	table, _, err := Config{Table: table}.tables()
	if err != nil {
		return nil, err
	}
	return &JobStore{pool: p, table: table}, nil
}

// Close releases the pool.
func (s *JobStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// EnsureSchema creates the jobs table if it does not exist.
func (s *JobStore) EnsureSchema(ctx context.Context) error {
	cols := make([]string, 0, len(jobs.Columns)+1)
	for _, c := range jobs.Columns {
		switch c {
		case jobs.ColJobID:
			cols = append(cols, "job_id TEXT PRIMARY KEY")
		case jobs.ColSalaryMin, jobs.ColSalaryMax:
			cols = append(cols, c+" DOUBLE PRECISION")
		default:
			cols = append(cols, c+" TEXT NOT NULL DEFAULT ''")
		}
	}
	cols = append(cols, "loaded_at TIMESTAMPTZ NOT NULL DEFAULT now()")
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", s.table, strings.Join(cols, ",\n\t"))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

func (s *JobStore) insertSQL() string {
	placeholders := make([]string, len(jobs.Columns))
	for i := range jobs.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (job_id) DO NOTHING",
		s.table, strings.Join(jobs.Columns, ", "), strings.Join(placeholders, ", "))
}

// insertArgs returns column values in jobs.Columns order; salary bounds stay
// typed so NULL is preserved.
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

// InsertNew inserts records in one transaction, skipping existing job_ids.
func (s *JobStore) InsertNew(ctx context.Context, records []jobs.Record) (inserted int, err error) {
	for _, rec := range records {
		if rec.JobID == "" {
			return 0, errors.New("record without job_id")
		}
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	query := s.insertSQL()
	for _, rec := range records {
		tag, execErr := tx.Exec(ctx, query, insertArgs(rec)...)
		if execErr != nil {
			return 0, fmt.Errorf("insert job %s: %w", rec.JobID, execErr)
		}
		inserted += int(tag.RowsAffected())
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// listingOrder sorts ISO-dated rows newest first, then undated rows, then by
// job_id.
const listingOrder = `(CASE WHEN date_publication ~ '^\d{4}-\d{2}-\d{2}$' THEN date_publication END) DESC NULLS LAST, job_id`

func whereClause(q storage.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		n := len(args)
		parts := make([]string, len(storage.SearchColumns))
		for i, c := range storage.SearchColumns {
			parts[i] = fmt.Sprintf("%s ILIKE $%d", c, n)
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}
	for _, f := range q.Filters() {
		args = append(args, f.Value)
		conds = append(conds, fmt.Sprintf("lower(%s) = lower($%d)", f.Column, len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Query returns one filtered page and the total match count.
func (s *JobStore) Query(ctx context.Context, q storage.Query) (storage.Page, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return storage.Page{}, err
	}
	where, args := whereClause(q)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+s.table+where, args...).Scan(&total); err != nil {
		return storage.Page{}, fmt.Errorf("count jobs: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		strings.Join(jobs.Columns, ", "), s.table, where, listingOrder, n+1, n+2)
	rows, err := s.pool.Query(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return storage.Page{}, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	out := make([]jobs.Record, 0, q.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return storage.Page{}, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return storage.Page{}, fmt.Errorf("iterate jobs: %w", err)
	}
	return storage.Page{Total: total, Jobs: out}, nil
}

func scanRecord(rows pgx.Rows) (jobs.Record, error) {
	var (
		rec    jobs.Record
		source string
	)
	dest := make([]any, len(jobs.Columns))
	for i, c := range jobs.Columns {
		dest[i] = recordField(&rec, &source, c)
	}
	if err := rows.Scan(dest...); err != nil {
		return jobs.Record{}, fmt.Errorf("scan job: %w", err)
	}
	rec.Source = jobs.Source(source)
	return rec, nil
}

// recordField returns the scan destination for column c.
func recordField(rec *jobs.Record, source *string, c string) any {
	switch c {
	case jobs.ColTitle:
		return &rec.Title
	case jobs.ColDetailLink:
		return &rec.DetailLink
	case jobs.ColCompany:
		return &rec.Company
	case jobs.ColDatePublication:
		return &rec.DatePublication
	case jobs.ColSector:
		return &rec.Sector
	case jobs.ColContractType:
		return &rec.ContractType
	case jobs.ColStudyLevel:
		return &rec.StudyLevel
	case jobs.ColExperience:
		return &rec.Experience
	case jobs.ColAvailability:
		return &rec.Availability
	case jobs.ColLocation:
		return &rec.Location
	case jobs.ColRegion:
		return &rec.Region
	case jobs.ColCity:
		return &rec.City
	case jobs.ColSalaryMin:
		return &rec.SalaryMin
	case jobs.ColSalaryMax:
		return &rec.SalaryMax
	case jobs.ColDescription:
		return &rec.Description
	case jobs.ColSkills:
		return &rec.Skills
	case jobs.ColSource:
		return source
	case jobs.ColScrapedAt:
		return &rec.ScrapedAt
	case jobs.ColJobID:
		return &rec.JobID
	default:
		var discard any
		return &discard
	}
}

// Count returns the number of stored records.
func (s *JobStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+s.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

var _ storage.JobStore = (*JobStore)(nil)
