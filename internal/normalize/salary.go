package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyRe  = regexp.MustCompile(`(?:tnd|dinars?|dt|euros?|eur|usd|€|\$|/\s*mois|par\s+mois|mensuel(?:le)?|net|brut)`)
	rangeWordRe = regexp.MustCompile(`\s+(?:a|au|to)\s+`)
	thousandsRe = regexp.MustCompile(`(\d)[.,](\d{3})\b`)
	numberRe    = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	upperRe     = regexp.MustCompile(`^(?:<=?|max(?:imum)?|jusqua|upto)(\d+(?:\.\d+)?)$`)
	lowerRe     = regexp.MustCompile(`^(?:>=?|\+|min(?:imum)?|apartirde|des|from)(\d+(?:\.\d+)?)$`)
	plusRe      = regexp.MustCompile(`^(\d+(?:\.\d+)?)\+$`)
	pairRe      = regexp.MustCompile(`^[(\[](.*)[)\]]$`)
)

// SalaryRange parses a raw salary value into nullable (min, max) bounds.
//
// Recognized forms after stripping currency tokens and whitespace: "A-B",
// "<B", ">A", "A+", a single value (used for both bounds), and the legacy
// encoded pair "(A, B)" or "[A, B]" with None/nan members. A side that does
// not parse is nil. When both bounds are set, min <= max.
func SalaryRange(raw string) (*float64, *float64) {
	s := Lower(raw)
	if s == "" {
		return nil, nil
	}
	if m := pairRe.FindStringSubmatch(s); m != nil {
		parts := strings.SplitN(m[1], ",", 2)
		if len(parts) == 2 {
			return ordered(parseBound(parts[0]), parseBound(parts[1]))
		}
	}

	s = strings.NewReplacer("–", "-", "—", "-", "'", "", "’", "").Replace(s)
	s = rangeWordRe.ReplaceAllString(s, "-")
	s = currencyRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "")
	s = thousandsRe.ReplaceAllString(s, "$1$2")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.Trim(s, ".:")
	if s == "" {
		return nil, nil
	}

	if m := upperRe.FindStringSubmatch(s); m != nil {
		return nil, parseBound(m[1])
	}
	if m := lowerRe.FindStringSubmatch(s); m != nil {
		return parseBound(m[1]), nil
	}
	if m := plusRe.FindStringSubmatch(s); m != nil {
		return parseBound(m[1]), nil
	}
	if numberRe.MatchString(s) {
		v := parseBound(s)
		return v, parseBound(s)
	}
	if left, right, ok := strings.Cut(s, "-"); ok {
		return ordered(parseBound(left), parseBound(right))
	}
	return nil, nil
}

func parseBound(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	if !numberRe.MatchString(s) {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func ordered(lo, hi *float64) (*float64, *float64) {
	if lo != nil && hi != nil && *lo > *hi {
		return hi, lo
	}
	return lo, hi
}
