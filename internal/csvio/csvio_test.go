package csvio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadRawToleratesBOMAndMissingColumns(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "keejob.csv",
		bom+"Title,detail_link\n"+
			"Dev,https://x/1\n"+
			"Ops,https://x/2\n")

	rows, skipped, err := ReadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, rows, 2)
	assert.Equal(t, "Dev", rows[0]["title"])
	assert.Equal(t, "", rows[1].Get("salary"))
}

func TestReadRawSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "raw.csv",
		"title,detail_link\n"+
			"Dev,https://x/1\n"+
			"broken\n"+
			"a,b,c\n"+
			"Ops,https://x/2\n")

	rows, skipped, err := ReadRaw(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, skipped, 2)
	assert.ErrorIs(t, skipped[0], ErrMalformedRow)
	assert.Equal(t, 3, skipped[0].Line)
}

func TestReadRawMissingAndEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, _, err := ReadRaw(filepath.Join(dir, "absent.csv"))
	require.ErrorIs(t, err, ErrMissingFile)

	_, _, err = ReadRaw(writeFile(t, dir, "empty.csv", ""))
	require.ErrorIs(t, err, ErrEmptyFile)

	_, _, err = ReadRaw(writeFile(t, dir, "header.csv", "title,detail_link\n"))
	require.ErrorIs(t, err, ErrEmptyFile)
}

func TestWriteCanonicalRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "keejob_cleaned.csv")
	recs := []jobs.Record{
		{Title: "Dev, Go", DetailLink: "https://x/1", SalaryMin: jobs.Float(1500), Source: jobs.SourceKeejob, JobID: "httpsx1"},
		{Title: "Ops \"senior\"", Description: "line one\nline two", JobID: "ops"},
	}
	require.NoError(t, WriteCanonical(path, recs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), bom+strings.Join(jobs.Columns, ",")))

	got, skipped, err := ReadCanonical(path)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, recs, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestReadCanonicalBackfillsLegacyColumns(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "legacy.csv", "title,job_id\nDev,abc\n")
	got, _, err := ReadCanonical(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, jobs.Record{Title: "Dev", JobID: "abc"}, got[0])
}

func TestRawWriterFlushesEveryRow(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "raw", "tanitjobs.csv")
	w, err := NewRawWriter(path, []string{"title", "link"})
	require.NoError(t, err)
	require.NoError(t, w.Write(jobs.RawRecord{"title": "Dev", "link": "https://x/1", "extra": "ignored"}))

	// Readable before Close, as a killed scraper would leave it.
	rows, _, err := ReadRaw(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://x/1", rows[0]["link"])

	require.NoError(t, w.Write(jobs.RawRecord{"title": "Ops"}))
	assert.Equal(t, 2, w.Rows())
	require.NoError(t, w.Close())
}
