package jobs

import (
	"fmt"
	"strings"
)

// Source tags the job board a record originated from.
type Source string

// Supported sources.
const (
	SourceEmploiTunisie  Source = "emploitunisie"
	SourceKeejob         Source = "keejob"
	SourceOptionCarriere Source = "optioncarriere"
	SourceTanitJobs      Source = "tanitjobs"
)

var knownSources = []Source{
	SourceEmploiTunisie,
	SourceKeejob,
	SourceOptionCarriere,
	SourceTanitJobs,
}

// Sources returns every supported source in a stable order.
func Sources() []Source {
	out := make([]Source, len(knownSources))
	copy(out, knownSources)
	return out
}

// ParseSource validates a source tag, case-insensitively.
func ParseSource(s string) (Source, error) {
	candidate := Source(strings.ToLower(strings.TrimSpace(s)))
	for _, src := range knownSources {
		if src == candidate {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// RawRecord is one source-specific row keyed by raw column name. Any key may
// be absent.
type RawRecord map[string]string

// Get returns the first non-blank value among keys, trimmed.
func (r RawRecord) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}
