package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/EmnaWalha99/Job-Portal/internal/cleaner"
	"github.com/EmnaWalha99/Job-Portal/internal/csvio"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

func TestExportOneSheetPerSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := cleaner.Paths{CleanedDir: filepath.Join(dir, "cleaned")}
	require.NoError(t, csvio.WriteCanonical(paths.CleanedFile(jobs.SourceKeejob), []jobs.Record{
		{Title: "Dev", City: "Tunis", SalaryMin: jobs.Float(1200), SalaryMax: jobs.Float(1800), Source: jobs.SourceKeejob, JobID: "k1"},
		{Title: "Ops", Source: jobs.SourceKeejob, JobID: "k2"},
	}))
	require.NoError(t, csvio.WriteCanonical(paths.CleanedFile(jobs.SourceTanitJobs), []jobs.Record{
		{Title: "QA", Source: jobs.SourceTanitJobs, JobID: "t1"},
	}))
	emptyPath := paths.CleanedFile(jobs.SourceEmploiTunisie)
	require.NoError(t, os.WriteFile(emptyPath, []byte(""), 0o600))

	out := filepath.Join(dir, "exports", "jobs.xlsx")
	res, err := New(paths, nil, nil).Export(out)
	require.NoError(t, err)
	assert.Equal(t, map[jobs.Source]int{
		jobs.SourceKeejob:        2,
		jobs.SourceTanitJobs:     1,
		jobs.SourceEmploiTunisie: 0,
	}, res.Sheets)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.ElementsMatch(t, []string{"emploitunisie", "keejob", "tanitjobs"}, f.GetSheetList())

	rows, err := f.GetRows("keejob")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, jobs.Columns, rows[0])
	col := func(name string) int {
		for i, c := range jobs.Columns {
			if c == name {
				return i
			}
		}
		t.Fatalf("column %s not found", name)
		return -1
	}
	assert.Equal(t, "Dev", rows[1][col(jobs.ColTitle)])
	assert.Equal(t, "1200", rows[1][col(jobs.ColSalaryMin)])
	assert.Equal(t, "k1", rows[1][col(jobs.ColJobID)])

	header, err := f.GetRows("emploitunisie")
	require.NoError(t, err)
	assert.Len(t, header, 1)
}

func TestExportNothing(t *testing.T) {
	t.Parallel()

	paths := cleaner.Paths{CleanedDir: t.TempDir()}
	_, err := New(paths, []jobs.Source{jobs.SourceKeejob}, nil).Export(filepath.Join(t.TempDir(), "jobs.xlsx"))
	require.ErrorIs(t, err, ErrNothingToExport)
}
