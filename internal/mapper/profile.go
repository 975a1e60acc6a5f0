// Package mapper turns source-specific raw records into canonical records.
// One generic mapper is driven by a per-source strategy table that selects
// which normalizer or extractor produces each canonical field.
package mapper

import (
	"github.com/EmnaWalha99/Job-Portal/internal/extract"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// Kind selects the normalizer applied to a structured raw value.
type Kind int

// Supported field normalizers.
const (
	KindText Kind = iota
	KindMulti
	KindDate
)

// TextExtractor recovers a field from the description.
type TextExtractor func(description string) string

// Rule produces one canonical text field.
type Rule struct {
	Kind Kind
	// Keys lists raw columns in priority order; the first non-blank wins.
	Keys []string
	// Max caps KindMulti lists; 0 uses the mapper default.
	Max int
	// Fallback runs on the description when Keys yield nothing and the
	// profile has free-text fallback enabled.
	Fallback TextExtractor
	// ListFallback normalizes the Fallback result as a KindMulti list.
	ListFallback bool
}

// Capabilities describes which structured data a source provides.
type Capabilities struct {
	HasCompany            bool
	HasStructuredSalary   bool
	HasStructuredLocation bool
	HasFreeTextFallback   bool
}

// Profile is the strategy table for one source.
type Profile struct {
	Source       jobs.Source
	Capabilities Capabilities
	// Fields maps canonical text columns to their rule. Absent columns
	// default to "".
	Fields map[string]Rule
	// DescriptionKeys are joined in order to build the description.
	DescriptionKeys []string
	SalaryKeys      []string
	LocationKeys    []string
	CityKeys        []string
	RegionKeys      []string
}

const skillsMax = extract.DefaultMaxSkills

func text(keys ...string) Rule  { return Rule{Kind: KindText, Keys: keys} }
func date(keys ...string) Rule  { return Rule{Kind: KindDate, Keys: keys} }
func multi(keys ...string) Rule { return Rule{Kind: KindMulti, Keys: keys} }

func (r Rule) withMax(n int) Rule {
	r.Max = n
	return r
}

func (r Rule) orExtract(fn TextExtractor) Rule {
	r.Fallback = fn
	return r
}

func (r Rule) orExtractList(fn TextExtractor) Rule {
	r.Fallback = fn
	r.ListFallback = true
	return r
}

// DefaultProfiles returns the strategy tables for every supported source.
func DefaultProfiles() map[jobs.Source]Profile {
	return map[jobs.Source]Profile{
		jobs.SourceEmploiTunisie: {
			Source: jobs.SourceEmploiTunisie,
			Capabilities: Capabilities{
				HasCompany:            true,
				HasStructuredSalary:   true,
				HasStructuredLocation: true,
			},
			Fields: map[string]Rule{
				jobs.ColTitle:           text("title"),
				jobs.ColDetailLink:      text("detail_link", "link"),
				jobs.ColCompany:         text("company"),
				jobs.ColDatePublication: date("date_publication"),
				jobs.ColSector:          multi("sector"),
				jobs.ColContractType:    multi("contract_type"),
				jobs.ColStudyLevel:      multi("study_level"),
				jobs.ColExperience:      multi("experience"),
				jobs.ColAvailability:    multi("remote", "availability"),
				jobs.ColSkills:          multi("skills").withMax(skillsMax),
				jobs.ColScrapedAt:       text("scraped_at"),
			},
			DescriptionKeys: []string{"description"},
			SalaryKeys:      []string{"salary"},
			LocationKeys:    []string{"location"},
			CityKeys:        []string{"city"},
			RegionKeys:      []string{"region"},
		},
		jobs.SourceKeejob: {
			Source: jobs.SourceKeejob,
			Capabilities: Capabilities{
				HasStructuredSalary: true,
				HasFreeTextFallback: true,
			},
			Fields: map[string]Rule{
				jobs.ColTitle:           text("title"),
				jobs.ColDetailLink:      text("detail_link", "link"),
				jobs.ColDatePublication: date("date_publication"),
				jobs.ColSector:          multi("sector").orExtractList(extract.Sector),
				jobs.ColContractType:    multi("contract_type"),
				jobs.ColStudyLevel:      multi("study_level").orExtract(extract.StudyLevel),
				jobs.ColExperience:      multi("experience").orExtract(extract.Experience),
				jobs.ColAvailability:    multi("availability"),
				jobs.ColSkills:          multi("skills").withMax(skillsMax).orExtractList(extract.Skills),
				jobs.ColScrapedAt:       text("scraped_at"),
			},
			DescriptionKeys: []string{"description"},
			SalaryKeys:      []string{"salary"},
			LocationKeys:    []string{"location"},
		},
		jobs.SourceOptionCarriere: {
			Source: jobs.SourceOptionCarriere,
			Capabilities: Capabilities{
				HasCompany:          true,
				HasFreeTextFallback: true,
			},
			Fields: map[string]Rule{
				jobs.ColTitle:           text("title"),
				jobs.ColDetailLink:      text("detail_link", "link"),
				jobs.ColCompany:         text("company"),
				jobs.ColDatePublication: date("posted_relative", "date_publication"),
				jobs.ColSector:          multi().orExtractList(extract.Sector),
				jobs.ColContractType:    multi("contract"),
				jobs.ColStudyLevel:      text().orExtract(extract.StudyLevel),
				jobs.ColExperience:      text().orExtract(extract.Experience),
				jobs.ColAvailability:    multi("work_type"),
				jobs.ColSkills:          multi().withMax(skillsMax).orExtractList(extract.Skills),
				jobs.ColScrapedAt:       text("scraped_at"),
			},
			DescriptionKeys: []string{"raw_content", "description"},
			LocationKeys:    []string{"location"},
		},
		jobs.SourceTanitJobs: {
			Source: jobs.SourceTanitJobs,
			Capabilities: Capabilities{
				HasCompany:          true,
				HasFreeTextFallback: true,
			},
			Fields: map[string]Rule{
				jobs.ColTitle:           text("title"),
				jobs.ColDetailLink:      text("link", "detail_link"),
				jobs.ColCompany:         text("company"),
				jobs.ColDatePublication: date("date_posted"),
				jobs.ColSector:          multi().orExtractList(extract.Sector),
				jobs.ColContractType:    multi("job_type"),
				jobs.ColStudyLevel:      multi("education_level").orExtract(extract.StudyLevel),
				jobs.ColExperience:      multi("experience").orExtract(extract.Experience),
				jobs.ColSkills:          multi("tags", "languages").withMax(skillsMax).orExtractList(extract.Skills),
				jobs.ColScrapedAt:       text("scraped_at"),
			},
			DescriptionKeys: []string{"job_description", "requirements"},
			LocationKeys:    []string{"location"},
		},
	}
}
