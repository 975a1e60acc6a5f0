package cleaner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmnaWalha99/Job-Portal/internal/csvio"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/mapper"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2025, time.November, 29, 9, 0, 0, 0, time.UTC) }

func newTestCleaner(t *testing.T) (*Cleaner, Paths) {
	t.Helper()
	dir := t.TempDir()
	paths := Paths{RawDir: filepath.Join(dir, "raw"), CleanedDir: filepath.Join(dir, "cleaned")}
	require.NoError(t, os.MkdirAll(paths.RawDir, 0o750))
	return New(paths, mapper.New(mapper.WithClock(fixedClock{})), nil), paths
}

func writeRaw(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestCleanMergesWithPreviousOutput(t *testing.T) {
	t.Parallel()

	c, paths := newTestCleaner(t)
	raw := paths.RawFile(jobs.SourceEmploiTunisie)

	writeRaw(t, raw, "title,detail_link,company,salary\n"+
		"Dev Go,https://x/1,Acme,1500-2000 TND\n"+
		"Ops,https://x/2,Acme,\n")
	res, err := c.Clean(context.Background(), jobs.SourceEmploiTunisie)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Merge.Total)
	assert.Equal(t, 2, res.Merge.Added())

	// Second run: one posting already known, with a changed title, one new.
	writeRaw(t, raw, "title,detail_link,company,salary\n"+
		"Dev Go (updated),https://x/1,Acme,\n"+
		"QA,https://x/3,Acme,\n")
	res, err = c.Clean(context.Background(), jobs.SourceEmploiTunisie)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Merge.Previous)
	assert.Equal(t, 1, res.Merge.Duplicates)
	assert.Equal(t, 1, res.Merge.Added())
	assert.Equal(t, 3, res.Merge.Total)

	got, _, err := csvio.ReadCanonical(paths.CleanedFile(jobs.SourceEmploiTunisie))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Dev Go", got[0].Title, "previously persisted record wins")
	require.NotNil(t, got[0].SalaryMin)
	assert.Equal(t, 1500.0, *got[0].SalaryMin)
	assert.Equal(t, "QA", got[2].Title)
	for _, rec := range got {
		assert.Equal(t, jobs.SourceEmploiTunisie, rec.Source)
		assert.NotEmpty(t, rec.JobID)
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	t.Parallel()

	c, paths := newTestCleaner(t)
	writeRaw(t, paths.RawFile(jobs.SourceKeejob), "title,detail_link,scraped_at\n"+
		"Comptable,https://keejob/1,2025-11-29 08:00:00\n")

	_, err := c.Clean(context.Background(), jobs.SourceKeejob)
	require.NoError(t, err)
	first, err := os.ReadFile(paths.CleanedFile(jobs.SourceKeejob))
	require.NoError(t, err)

	res, err := c.Clean(context.Background(), jobs.SourceKeejob)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Merge.Added())
	second, err := os.ReadFile(paths.CleanedFile(jobs.SourceKeejob))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestCleanMissingAndEmptyInput(t *testing.T) {
	t.Parallel()

	c, paths := newTestCleaner(t)
	_, err := c.Clean(context.Background(), jobs.SourceTanitJobs)
	require.ErrorIs(t, err, ErrMissingInputFile)

	writeRaw(t, paths.RawFile(jobs.SourceTanitJobs), "title,link\n")
	_, err = c.Clean(context.Background(), jobs.SourceTanitJobs)
	require.ErrorIs(t, err, ErrEmptyInputFile)

	_, statErr := os.Stat(paths.CleanedFile(jobs.SourceTanitJobs))
	assert.True(t, os.IsNotExist(statErr), "canonical file must not be created")
}

func TestCleanSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	c, paths := newTestCleaner(t)
	writeRaw(t, paths.RawFile(jobs.SourceKeejob), "title,detail_link\n"+
		"Dev,https://keejob/1\n"+
		"only-one-field\n"+
		"Ops,https://keejob/2\n")

	res, err := c.Clean(context.Background(), jobs.SourceKeejob)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkippedRows)
	assert.Equal(t, 2, res.Merge.Total)
}

func TestCleanBackfillsLegacyJobIDs(t *testing.T) {
	t.Parallel()

	c, paths := newTestCleaner(t)
	require.NoError(t, csvio.WriteCanonical(paths.CleanedFile(jobs.SourceKeejob), []jobs.Record{
		{Title: "Dev", DetailLink: "https://keejob/1", Source: jobs.SourceKeejob},
	}))
	writeRaw(t, paths.RawFile(jobs.SourceKeejob), "title,detail_link\nDev,https://keejob/1\n")

	res, err := c.Clean(context.Background(), jobs.SourceKeejob)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merge.Duplicates)
	assert.Equal(t, 1, res.Merge.Total)
}

func TestCleanHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	c, paths := newTestCleaner(t)
	writeRaw(t, paths.RawFile(jobs.SourceKeejob), "title\nDev\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Clean(ctx, jobs.SourceKeejob)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPaths(t *testing.T) {
	t.Parallel()

	p := Paths{RawDir: "data/raw", CleanedDir: "data/cleaned"}
	assert.Equal(t, filepath.Join("data/raw", "keejob.csv"), p.RawFile(jobs.SourceKeejob))
	assert.Equal(t, filepath.Join("data/cleaned", "keejob_cleaned.csv"), p.CleanedFile(jobs.SourceKeejob))
}
