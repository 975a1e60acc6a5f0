// Package identity derives stable job identifiers and merges canonical
// batches by them.
package identity

import (
	"regexp"
	"strings"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/normalize"
)

var nonAlnumRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Slug lower-cases s and removes every non-alphanumeric character.
func Slug(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(normalize.Text(s)), "")
}

// JobID returns the slug of detail_link when present, otherwise the slug of
// title|company|date_publication. The ingestion timestamp is never part of
// the key, so reruns over the same posting yield the same id.
func JobID(rec jobs.Record) string {
	if link := strings.TrimSpace(rec.DetailLink); link != "" {
		return Slug(link)
	}
	return Slug(strings.Join([]string{rec.Title, rec.Company, rec.DatePublication}, "|"))
}

// MergeStats summarizes one Merge call.
type MergeStats struct {
	Previous   int
	Incoming   int
	Duplicates int
	Total      int
}

// Added is the number of incoming records that survived deduplication.
func (s MergeStats) Added() int {
	return s.Total - s.Previous
}

// Merge concatenates previous and incoming, then keeps the first record per
// job_id. Previously persisted records therefore win over newly scraped
// duplicates, and relative order is preserved.
func Merge(previous, incoming []jobs.Record) ([]jobs.Record, MergeStats) {
	stats := MergeStats{Previous: len(previous), Incoming: len(incoming)}
	seen := make(map[string]struct{}, len(previous)+len(incoming))
	out := make([]jobs.Record, 0, len(previous)+len(incoming))

	keep := func(batch []jobs.Record) int {
		kept := 0
		for _, rec := range batch {
			if _, dup := seen[rec.JobID]; dup {
				stats.Duplicates++
				continue
			}
			seen[rec.JobID] = struct{}{}
			out = append(out, rec)
			kept++
		}
		return kept
	}
	stats.Previous = keep(previous)
	keep(incoming)
	stats.Total = len(out)
	return out, stats
}
