package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

func newMockStore(t *testing.T) (*JobStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewJobStoreWithPool(mock, "")
	require.NoError(t, err)
	return store, mock
}

func TestNewJobStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewJobStoreWithPool(mock, "jobs; drop table x")
	require.Error(t, err)
	_, err = NewJobStoreWithPool(nil, "jobs")
	require.Error(t, err)

	_, err = NewJobStore(context.Background(), Config{})
	require.Error(t, err)
}

func TestInsertNewCommitsAndCountsInserted(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	recs := []jobs.Record{
		{Title: "Dev", SalaryMin: jobs.Float(1500), Source: jobs.SourceKeejob, JobID: "a"},
		{Title: "Ops", JobID: "b"},
	}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs (title,")).
		WithArgs(insertArgs(recs[0])...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("ON CONFLICT \\(job_id\\) DO NOTHING").
		WithArgs(insertArgs(recs[1])...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	n, err := store.InsertNew(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertNewRollsBackOnError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jobs").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO jobs").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	n, err := store.InsertNew(context.Background(), []jobs.Record{{JobID: "a"}, {JobID: "b"}})
	require.Error(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertNewRejectsMissingJobID(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	_, err := store.InsertNew(context.Background(), []jobs.Record{{Title: "x"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryBuildsFiltersAndScans(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	q := storage.Query{Search: "50%_go", City: "Tunis", Limit: 10, Offset: 20}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM jobs WHERE (title ILIKE $1 OR")).
		WithArgs(`%50\%\_go%`, "Tunis").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(21))

	row := make([]any, len(jobs.Columns))
	for i, c := range jobs.Columns {
		switch c {
		case jobs.ColSalaryMin:
			row[i] = jobs.Float(1200)
		case jobs.ColSalaryMax:
			row[i] = (*float64)(nil)
		case jobs.ColTitle:
			row[i] = "Go dev"
		case jobs.ColSource:
			row[i] = "keejob"
		case jobs.ColJobID:
			row[i] = "abc"
		default:
			row[i] = ""
		}
	}
	mock.ExpectQuery(regexp.QuoteMeta("lower(city) = lower($2) ORDER BY")).
		WithArgs(`%50\%\_go%`, "Tunis", 10, 20).
		WillReturnRows(pgxmock.NewRows(jobs.Columns).AddRow(row...))

	page, err := store.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 21, page.Total)
	require.Len(t, page.Jobs, 1)
	got := page.Jobs[0]
	assert.Equal(t, "Go dev", got.Title)
	assert.Equal(t, jobs.SourceKeejob, got.Source)
	require.NotNil(t, got.SalaryMin)
	assert.InDelta(t, 1200, *got.SalaryMin, 0)
	assert.Nil(t, got.SalaryMax)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryWithoutFilters(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM jobs")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("DESC NULLS LAST, job_id LIMIT $1 OFFSET $2")).
		WithArgs(storage.DefaultLimit, 0).
		WillReturnRows(pgxmock.NewRows(jobs.Columns))

	page, err := store.Query(context.Background(), storage.Query{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Jobs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRejectsBadLimit(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	_, err := store.Query(context.Background(), storage.Query{Limit: 1000})
	require.Error(t, err)
}

func TestEnsureSchemaAndCount(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS jobs")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM jobs")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	require.NoError(t, store.EnsureSchema(context.Background()))
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStore(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	runs, err := NewRunStoreWithPool(mock, "")
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Date(2025, 11, 1, 6, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS pipeline_runs")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pipeline_runs (run_id, started_at, state)")).
		WithArgs("r1", start).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (run_id) DO UPDATE")).
		WithArgs("r1", end, "DONE", `{"state":"DONE"}`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM pipeline_runs ORDER BY started_at DESC")).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "started_at", "finished_at", "state", "summary"}).
			AddRow("r1", start, &end, "DONE", `{"state":"DONE"}`))

	require.NoError(t, runs.EnsureSchema(ctx))
	require.NoError(t, runs.StartRun(ctx, "r1", start))
	require.NoError(t, runs.CompleteRun(ctx, "r1", end, "DONE", []byte(`{"state":"DONE"}`)))
	got, err := runs.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "DONE", got[0].State)
	require.NotNil(t, got[0].FinishedAt)
	assert.True(t, end.Equal(*got[0].FinishedAt))
	assert.JSONEq(t, `{"state":"DONE"}`, string(got[0].Summary))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreGetRunNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	runs, err := NewRunStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pipeline_runs WHERE run_id = $1")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "started_at", "finished_at", "state", "summary"}))

	_, err = runs.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
