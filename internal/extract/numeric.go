package extract

import (
	"regexp"
	"strconv"

	"github.com/EmnaWalha99/Job-Portal/internal/normalize"
)

var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`experience\s+souhaitee\s*:\s*(\d+)\s*an`),
	regexp.MustCompile(`(\d+)\s*(?:ans?|annees?)\s*(?:d.\s*)?experience`),
	regexp.MustCompile(`experience\s*(?:requise|minimum|min)?\s*(?::|de)?\s*(\d+)\s*(?:ans?|annees?)`),
	regexp.MustCompile(`(\d+)\+?\s*years?\s+(?:of\s+)?experience`),
}

var qualitativeExperience = []struct {
	pattern *regexp.Regexp
	label   string
}{
	{regexp.MustCompile(`experience\s+significative`), "Experience significative"},
	{regexp.MustCompile(`experience\s+similaire`), "Experience similaire"},
	{regexp.MustCompile(`experience\s+requise`), "Experience requise"},
}

// Experience extracts the required experience as "N ans", or a qualitative
// label when no number is stated.
func Experience(description string) string {
	text := normalize.Lower(description)
	if text == "" {
		return ""
	}
	for _, re := range experiencePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1] + " ans"
		}
	}
	for _, q := range qualitativeExperience {
		if q.pattern.MatchString(text) {
			return q.label
		}
	}
	return ""
}

var (
	salaryLabelRe = regexp.MustCompile(`salaire\s*:\s*(\d+)\s*(?:dt|tnd|dinars?)`)
	salaryRangeRe = regexp.MustCompile(`(\d+)\s*(?:-|a)\s*(\d+)\s*(?:dt|tnd|dinars?)\b`)
)

// Salary extracts (min, max) from "Salaire : N dt" or "A-B dt" phrases.
func Salary(description string) (*float64, *float64) {
	text := normalize.Lower(description)
	if text == "" {
		return nil, nil
	}
	if m := salaryLabelRe.FindStringSubmatch(text); m != nil {
		v := number(m[1])
		return v, number(m[1])
	}
	if m := salaryRangeRe.FindStringSubmatch(text); m != nil {
		lo, hi := number(m[1]), number(m[2])
		if lo != nil && hi != nil && *lo > *hi {
			lo, hi = hi, lo
		}
		return lo, hi
	}
	return nil, nil
}

func number(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
