// Package jobs defines the canonical job posting model shared by the cleaner,
// the loader, and the read API.
package jobs

import (
	"strconv"
	"strings"
)

// Canonical column names in persisted order.
const (
	ColTitle           = "title"
	ColDetailLink      = "detail_link"
	ColCompany         = "company"
	ColDatePublication = "date_publication"
	ColSector          = "sector"
	ColContractType    = "contract_type"
	ColStudyLevel      = "study_level"
	ColExperience      = "experience"
	ColAvailability    = "availability"
	ColLocation        = "location"
	ColRegion          = "region"
	ColCity            = "city"
	ColSalaryMin       = "salary_min"
	ColSalaryMax       = "salary_max"
	ColDescription     = "description"
	ColSkills          = "skills"
	ColSource          = "source"
	ColScrapedAt       = "scraped_at"
	ColJobID           = "job_id"
)

// Columns is the fixed canonical column order used by every canonical file.
var Columns = []string{
	ColTitle,
	ColDetailLink,
	ColCompany,
	ColDatePublication,
	ColSector,
	ColContractType,
	ColStudyLevel,
	ColExperience,
	ColAvailability,
	ColLocation,
	ColRegion,
	ColCity,
	ColSalaryMin,
	ColSalaryMax,
	ColDescription,
	ColSkills,
	ColSource,
	ColScrapedAt,
	ColJobID,
}

// ListSeparator joins multi-value fields such as skills when serialized.
const ListSeparator = ", "

// Record is one normalized job posting. Every field carries an explicit
// default: empty string for text, nil for salary bounds.
type Record struct {
	Title           string   `json:"title"`
	DetailLink      string   `json:"detail_link"`
	Company         string   `json:"company"`
	DatePublication string   `json:"date_publication"`
	Sector          string   `json:"sector"`
	ContractType    string   `json:"contract_type"`
	StudyLevel      string   `json:"study_level"`
	Experience      string   `json:"experience"`
	Availability    string   `json:"availability"`
	Location        string   `json:"location"`
	Region          string   `json:"region"`
	City            string   `json:"city"`
	SalaryMin       *float64 `json:"salary_min"`
	SalaryMax       *float64 `json:"salary_max"`
	Description     string   `json:"description"`
	Skills          string   `json:"skills"`
	Source          Source   `json:"source"`
	ScrapedAt       string   `json:"scraped_at"`
	JobID           string   `json:"job_id"`
}

// Field returns the serialized value of the named canonical column.
func (r Record) Field(name string) string {
	switch name {
	case ColTitle:
		return r.Title
	case ColDetailLink:
		return r.DetailLink
	case ColCompany:
		return r.Company
	case ColDatePublication:
		return r.DatePublication
	case ColSector:
		return r.Sector
	case ColContractType:
		return r.ContractType
	case ColStudyLevel:
		return r.StudyLevel
	case ColExperience:
		return r.Experience
	case ColAvailability:
		return r.Availability
	case ColLocation:
		return r.Location
	case ColRegion:
		return r.Region
	case ColCity:
		return r.City
	case ColSalaryMin:
		return FormatSalary(r.SalaryMin)
	case ColSalaryMax:
		return FormatSalary(r.SalaryMax)
	case ColDescription:
		return r.Description
	case ColSkills:
		return r.Skills
	case ColSource:
		return string(r.Source)
	case ColScrapedAt:
		return r.ScrapedAt
	case ColJobID:
		return r.JobID
	default:
		return ""
	}
}

// Values serializes the record in Columns order.
func (r Record) Values() []string {
	out := make([]string, len(Columns))
	for i, col := range Columns {
		out[i] = r.Field(col)
	}
	return out
}

// FromFields builds a Record from a column-keyed mapping. Unknown keys are
// ignored and absent keys keep their defaults. Unparseable salary values
// become nil.
func FromFields(fields map[string]string) Record {
	get := func(key string) string { return strings.TrimSpace(fields[key]) }
	return Record{
		Title:           get(ColTitle),
		DetailLink:      get(ColDetailLink),
		Company:         get(ColCompany),
		DatePublication: get(ColDatePublication),
		Sector:          get(ColSector),
		ContractType:    get(ColContractType),
		StudyLevel:      get(ColStudyLevel),
		Experience:      get(ColExperience),
		Availability:    get(ColAvailability),
		Location:        get(ColLocation),
		Region:          get(ColRegion),
		City:            get(ColCity),
		SalaryMin:       ParseSalary(get(ColSalaryMin)),
		SalaryMax:       ParseSalary(get(ColSalaryMax)),
		Description:     get(ColDescription),
		Skills:          get(ColSkills),
		Source:          Source(get(ColSource)),
		ScrapedAt:       get(ColScrapedAt),
		JobID:           get(ColJobID),
	}
}

// SkillList splits the serialized skills field.
func (r Record) SkillList() []string {
	return SplitList(r.Skills)
}

// SplitList splits a serialized multi-value field on ListSeparator.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FormatSalary renders a salary bound, or "" for nil.
func FormatSalary(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ParseSalary parses a serialized salary bound. Empty, "nan" and "none"
// values yield nil.
func ParseSalary(s string) *float64 {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "none", "null":
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
