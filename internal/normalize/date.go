package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISODate is the canonical publication date layout.
const ISODate = "2006-01-02"

var (
	numericDateRe = regexp.MustCompile(`(?:^|\D)(\d{1,4}([./-])\d{1,2}[./-]\d{1,4})(?:\D|$)`)
	namedDateRe   = regexp.MustCompile(`\b(\d{1,2})(?:er)?\s+([a-z]+)\.?,?\s+(\d{4})\b`)
	relativeFrRe  = regexp.MustCompile(`(?:il y a|depuis)\s+(\d+|une?)\s*(minutes?|min|heures?|h|jours?|semaines?|mois|ans?)\b`)
	relativeEnRe  = regexp.MustCompile(`\b(\d+|an?|one)\s*(minutes?|mins?|hours?|days?|weeks?|months?|years?)\s+ago\b`)
)

// numericLayouts are tried in order against a matched numeric date token.
// Unpadded layout fields also accept zero-padded input.
var numericLayouts = map[string][]string{
	".": {"2.1.2006", "2006.1.2"},
	"/": {"2/1/2006", "2006/1/2"},
	"-": {"2006-1-2", "2-1-2006"},
}

var monthNames = map[string]time.Month{
	"janvier": time.January, "janv": time.January, "jan": time.January, "january": time.January,
	"fevrier": time.February, "fevr": time.February, "fev": time.February, "feb": time.February, "february": time.February,
	"mars": time.March, "mar": time.March, "march": time.March,
	"avril": time.April, "avr": time.April, "apr": time.April, "april": time.April,
	"mai": time.May, "may": time.May,
	"juin": time.June, "jun": time.June, "june": time.June,
	"juillet": time.July, "juil": time.July, "jul": time.July, "july": time.July,
	"aout": time.August, "aug": time.August, "august": time.August,
	"septembre": time.September, "sept": time.September, "sep": time.September, "september": time.September,
	"octobre": time.October, "oct": time.October, "october": time.October,
	"novembre": time.November, "nov": time.November, "november": time.November,
	"decembre": time.December, "dec": time.December, "december": time.December,
}

// Date converts a raw publication date to YYYY-MM-DD. Relative expressions
// are resolved against now. When nothing matches the original string is
// returned unchanged; blank input yields "".
func Date(raw string, now time.Time) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	s := strings.ReplaceAll(Lower(raw), "’", "'")

	if d, ok := parseRelative(s, now); ok {
		return d.Format(ISODate)
	}
	if d, ok := parseNumeric(s); ok {
		return d.Format(ISODate)
	}
	if d, ok := parseNamed(s); ok {
		return d.Format(ISODate)
	}
	return raw
}

func parseRelative(s string, now time.Time) (time.Time, bool) {
	switch {
	case strings.Contains(s, "aujourd'hui"), strings.Contains(s, "aujourd hui"),
		strings.Contains(s, "today"), strings.Contains(s, "just now"), strings.Contains(s, "a l'instant"):
		return now, true
	case strings.Contains(s, "avant-hier"), strings.Contains(s, "avant hier"):
		return now.AddDate(0, 0, -2), true
	case strings.Contains(s, "hier"), strings.Contains(s, "yesterday"):
		return now.AddDate(0, 0, -1), true
	}
	if m := relativeFrRe.FindStringSubmatch(s); m != nil {
		return shift(now, count(m[1]), m[2]), true
	}
	if m := relativeEnRe.FindStringSubmatch(s); m != nil {
		return shift(now, count(m[1]), m[2]), true
	}
	return time.Time{}, false
}

func count(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return 1
}

func shift(now time.Time, n int, unit string) time.Time {
	switch {
	case strings.HasPrefix(unit, "min"):
		return now.Add(-time.Duration(n) * time.Minute)
	case unit == "h", strings.HasPrefix(unit, "heure"), strings.HasPrefix(unit, "hour"):
		return now.Add(-time.Duration(n) * time.Hour)
	case strings.HasPrefix(unit, "jour"), strings.HasPrefix(unit, "day"):
		return now.AddDate(0, 0, -n)
	case strings.HasPrefix(unit, "semaine"), strings.HasPrefix(unit, "week"):
		return now.AddDate(0, 0, -7*n)
	case unit == "mois", strings.HasPrefix(unit, "month"):
		return now.AddDate(0, -n, 0)
	default:
		return now.AddDate(-n, 0, 0)
	}
}

func parseNumeric(s string) (time.Time, bool) {
	m := numericDateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	for _, layout := range numericLayouts[m[2]] {
		if d, err := time.Parse(layout, m[1]); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func parseNamed(s string) (time.Time, bool) {
	for _, m := range namedDateRe.FindAllStringSubmatch(s, -1) {
		month, ok := monthNames[m[2]]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if d.Day() != day {
			continue
		}
		return d, true
	}
	return time.Time{}, false
}
