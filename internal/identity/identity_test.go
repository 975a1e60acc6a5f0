package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

func TestJobIDFromLink(t *testing.T) {
	t.Parallel()

	a := JobID(jobs.Record{DetailLink: "https://x/jobs/1"})
	assert.Equal(t, "httpsxjobs1", a)
	assert.Equal(t, a, JobID(jobs.Record{DetailLink: "HTTPS://X/Jobs/1/"}))
	assert.Equal(t, a, JobID(jobs.Record{DetailLink: "https://x/jobs/1?"}))
	assert.Equal(t, a, JobID(jobs.Record{DetailLink: " https://x/jobs/1 ", Title: "ignored"}))
}

func TestJobIDFallbackIgnoresScrapedAt(t *testing.T) {
	t.Parallel()

	first := jobs.Record{Title: "Développeur Go", Company: "Acme", DatePublication: "2025-11-29", ScrapedAt: "2025-11-29 10:00:00"}
	second := first
	second.ScrapedAt = "2025-12-01 08:00:00"

	require.Equal(t, JobID(first), JobID(second))
	assert.Equal(t, "developpeurgoacme20251129", JobID(first))
}

func TestMergeKeepsPriorRecord(t *testing.T) {
	t.Parallel()

	prior := jobs.Record{DetailLink: "https://x/jobs/1", ScrapedAt: "2025-11-01", JobID: "httpsxjobs1"}
	fresh := jobs.Record{DetailLink: "https://x/jobs/1", ScrapedAt: "2025-11-29", JobID: "httpsxjobs1"}
	other := jobs.Record{DetailLink: "https://x/jobs/2", JobID: "httpsxjobs2"}

	merged, stats := Merge([]jobs.Record{prior}, []jobs.Record{fresh, other})
	require.Len(t, merged, 2)
	assert.Equal(t, "2025-11-01", merged[0].ScrapedAt)
	assert.Equal(t, "httpsxjobs2", merged[1].JobID)
	assert.Equal(t, MergeStats{Previous: 1, Incoming: 2, Duplicates: 1, Total: 2}, stats)
	assert.Equal(t, 1, stats.Added())
}

func TestMergeDistinctIDsMatchRecordCount(t *testing.T) {
	t.Parallel()

	ids := []string{"a", "b", "a", "c", "b", "d", "a"}
	var prev, next []jobs.Record
	for i, id := range ids {
		rec := jobs.Record{JobID: id}
		if i < 3 {
			prev = append(prev, rec)
		} else {
			next = append(next, rec)
		}
	}
	merged, stats := Merge(prev, next)

	distinct := map[string]struct{}{}
	for _, rec := range merged {
		distinct[rec.JobID] = struct{}{}
	}
	assert.Len(t, merged, len(distinct))
	assert.Equal(t, []string{"a", "b", "c", "d"}, []string{merged[0].JobID, merged[1].JobID, merged[2].JobID, merged[3].JobID})
	assert.Equal(t, 3, stats.Duplicates)
}

func TestMergeEmptyInputs(t *testing.T) {
	t.Parallel()

	merged, stats := Merge(nil, nil)
	assert.Empty(t, merged)
	assert.Zero(t, stats.Total)
}
