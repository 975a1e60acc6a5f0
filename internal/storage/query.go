package storage

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// Listing bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Query filters the stored job listing. Search is a case-insensitive
// substring match over title, company, city, skills and sector. The other
// filters are case-insensitive equality; empty filters match everything.
type Query struct {
	Search       string
	Source       string
	Company      string
	City         string
	Region       string
	Sector       string
	ContractType string
	Limit        int
	Offset       int
}

// SearchColumns are the columns Search looks at.
var SearchColumns = []string{jobs.ColTitle, jobs.ColCompany, jobs.ColCity, jobs.ColSkills, jobs.ColSector}

// Normalize trims filters and applies the default limit.
func (q Query) Normalize() Query {
	q.Search = strings.TrimSpace(q.Search)
	q.Source = strings.TrimSpace(q.Source)
	q.Company = strings.TrimSpace(q.Company)
	q.City = strings.TrimSpace(q.City)
	q.Region = strings.TrimSpace(q.Region)
	q.Sector = strings.TrimSpace(q.Sector)
	q.ContractType = strings.TrimSpace(q.ContractType)
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Validate checks paging bounds.
func (q Query) Validate() error {
	if q.Limit < 1 || q.Limit > MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d", MaxLimit)
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset must be >= 0")
	}
	return nil
}

// Filters returns the equality filters keyed by canonical column, skipping
// empty ones, in a stable order.
func (q Query) Filters() []Filter {
	var out []Filter
	for _, f := range []Filter{
		{Column: jobs.ColSource, Value: q.Source},
		{Column: jobs.ColCompany, Value: q.Company},
		{Column: jobs.ColCity, Value: q.City},
		{Column: jobs.ColRegion, Value: q.Region},
		{Column: jobs.ColSector, Value: q.Sector},
		{Column: jobs.ColContractType, Value: q.ContractType},
	} {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// Filter is one equality predicate.
type Filter struct {
	Column string
	Value  string
}

// Key renders a stable cache key for the query.
func (q Query) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "search=%s", strings.ToLower(q.Search))
	for _, f := range q.Filters() {
		fmt.Fprintf(&b, "&%s=%s", f.Column, strings.ToLower(f.Value))
	}
	fmt.Fprintf(&b, "&limit=%d&offset=%d", q.Limit, q.Offset)
	return b.String()
}

// Matches applies the query predicates to rec.
func (q Query) Matches(rec jobs.Record) bool {
	for _, f := range q.Filters() {
		if !strings.EqualFold(rec.Field(f.Column), f.Value) {
			return false
		}
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	for _, col := range SearchColumns {
		if strings.Contains(strings.ToLower(rec.Field(col)), needle) {
			return true
		}
	}
	return false
}

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// SortKey returns the publication date used for ordering, or "" when the
// stored value is not an ISO date. Empty keys sort last.
func SortKey(rec jobs.Record) string {
	if isoDateRe.MatchString(rec.DatePublication) {
		return rec.DatePublication
	}
	return ""
}

// SortRecords orders by publication date descending with undated rows last,
// then by job_id.
func SortRecords(recs []jobs.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		ki, kj := SortKey(recs[i]), SortKey(recs[j])
		switch {
		case ki == kj:
			return recs[i].JobID < recs[j].JobID
		case ki == "":
			return false
		case kj == "":
			return true
		default:
			return ki > kj
		}
	})
}

// Paginate returns recs[offset:offset+limit], clamped.
func Paginate(recs []jobs.Record, limit, offset int) []jobs.Record {
	if offset >= len(recs) {
		return []jobs.Record{}
	}
	end := offset + limit
	if end > len(recs) {
		end = len(recs)
	}
	return append([]jobs.Record(nil), recs[offset:end]...)
}
