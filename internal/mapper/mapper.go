package mapper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EmnaWalha99/Job-Portal/internal/extract"
	"github.com/EmnaWalha99/Job-Portal/internal/identity"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/normalize"
)

// ScrapedAtLayout formats the ingestion marker when a raw record lacks one.
const ScrapedAtLayout = "2006-01-02 15:04:05"

// ErrUnknownSource is returned when no profile is registered for a source.
var ErrUnknownSource = errors.New("no mapping profile for source")

// Clock supplies the reference time for relative dates.
type Clock interface {
	Now() time.Time
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

// textFields are the canonical columns driven by Profile.Fields.
var textFields = []string{
	jobs.ColTitle,
	jobs.ColDetailLink,
	jobs.ColCompany,
	jobs.ColDatePublication,
	jobs.ColSector,
	jobs.ColContractType,
	jobs.ColStudyLevel,
	jobs.ColExperience,
	jobs.ColAvailability,
	jobs.ColSkills,
	jobs.ColScrapedAt,
}

// Option customizes a Mapper.
type Option func(*Mapper)

// WithClock overrides the reference clock.
func WithClock(c Clock) Option {
	return func(m *Mapper) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithMaxItems sets the default multi-value cap.
func WithMaxItems(n int) Option {
	return func(m *Mapper) {
		if n > 0 {
			m.maxItems = n
		}
	}
}

// WithCountries sets the country suffixes stripped from locations.
func WithCountries(countries []string) Option {
	return func(m *Mapper) {
		if len(countries) > 0 {
			m.countries = append([]string(nil), countries...)
		}
	}
}

// WithProfile registers or replaces the profile for p.Source.
func WithProfile(p Profile) Option {
	return func(m *Mapper) {
		m.profiles[p.Source] = p
	}
}

// Mapper maps raw records to canonical records.
type Mapper struct {
	profiles  map[jobs.Source]Profile
	clock     Clock
	maxItems  int
	countries []string
}

// New builds a Mapper with DefaultProfiles.
func New(opts ...Option) *Mapper {
	m := &Mapper{
		profiles:  DefaultProfiles(),
		clock:     clockFunc(func() time.Time { return time.Now().UTC() }),
		maxItems:  normalize.DefaultMaxItems,
		countries: normalize.DefaultCountries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Profile returns the profile registered for src.
func (m *Mapper) Profile(src jobs.Source) (Profile, bool) {
	p, ok := m.profiles[src]
	return p, ok
}

// Map converts one raw record. Missing raw columns never fail the mapping;
// the only error is an unknown source. A record without scraped_at is stamped
// with the mapper clock; that column is an ingestion marker and never feeds
// job_id.
func (m *Mapper) Map(src jobs.Source, raw jobs.RawRecord) (jobs.Record, error) {
	p, ok := m.profiles[src]
	if !ok {
		return jobs.Record{}, fmt.Errorf("%w: %s", ErrUnknownSource, src)
	}
	return m.mapWith(p, raw, m.clock.Now()), nil
}

// MapBatch converts a batch using a single reference time and reports field
// coverage.
func (m *Mapper) MapBatch(src jobs.Source, raws []jobs.RawRecord) ([]jobs.Record, *Coverage, error) {
	p, ok := m.profiles[src]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownSource, src)
	}
	now := m.clock.Now()
	cov := NewCoverage(src)
	out := make([]jobs.Record, 0, len(raws))
	for _, raw := range raws {
		rec := m.mapWith(p, raw, now)
		cov.Add(rec)
		out = append(out, rec)
	}
	return out, cov, nil
}

func (m *Mapper) mapWith(p Profile, raw jobs.RawRecord, now time.Time) jobs.Record {
	caps := p.Capabilities
	description := m.description(p, raw)

	values := make(map[string]string, len(jobs.Columns))
	for _, col := range textFields {
		if col == jobs.ColCompany && !caps.HasCompany {
			continue
		}
		rule, ok := p.Fields[col]
		if !ok {
			continue
		}
		values[col] = m.apply(rule, raw, description, caps.HasFreeTextFallback, now)
	}

	location := raw.Get(p.LocationKeys...)
	values[jobs.ColLocation] = normalize.Text(location)
	city, region := normalize.SplitLocation(location, m.countries)
	if caps.HasStructuredLocation {
		if v := normalize.Text(raw.Get(p.CityKeys...)); v != "" {
			city = v
		}
		if v := normalize.Text(raw.Get(p.RegionKeys...)); v != "" {
			region = v
		}
	}
	values[jobs.ColCity] = city
	values[jobs.ColRegion] = region
	values[jobs.ColDescription] = description
	values[jobs.ColSource] = string(p.Source)
	if values[jobs.ColScrapedAt] == "" {
		values[jobs.ColScrapedAt] = now.Format(ScrapedAtLayout)
	}

	rec := jobs.FromFields(values)
	rec.SalaryMin, rec.SalaryMax = m.salary(p, raw, description)
	rec.JobID = identity.JobID(rec)
	return rec
}

func (m *Mapper) apply(rule Rule, raw jobs.RawRecord, description string, fallback bool, now time.Time) string {
	if v := raw.Get(rule.Keys...); v != "" {
		switch rule.Kind {
		case KindDate:
			return normalize.Date(v, now)
		case KindMulti:
			return normalize.MultiValueString(v, m.limit(rule))
		default:
			return normalize.Text(v)
		}
	}
	if !fallback || rule.Fallback == nil || description == "" {
		return ""
	}
	v := rule.Fallback(description)
	if rule.ListFallback {
		return normalize.MultiValueString(v, m.limit(rule))
	}
	return normalize.Text(v)
}

func (m *Mapper) limit(rule Rule) int {
	if rule.Max > 0 {
		return rule.Max
	}
	return m.maxItems
}

func (m *Mapper) description(p Profile, raw jobs.RawRecord) string {
	parts := make([]string, 0, len(p.DescriptionKeys))
	for _, k := range p.DescriptionKeys {
		if v := normalize.Text(raw[k]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func (m *Mapper) salary(p Profile, raw jobs.RawRecord, description string) (*float64, *float64) {
	if p.Capabilities.HasStructuredSalary {
		if lo, hi := normalize.SalaryRange(raw.Get(p.SalaryKeys...)); lo != nil || hi != nil {
			return lo, hi
		}
	}
	if p.Capabilities.HasFreeTextFallback {
		return extract.Salary(description)
	}
	return nil, nil
}
