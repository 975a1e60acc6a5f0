package normalize

import "strings"

// DefaultCountries lists the trailing country segments stripped from
// locations.
var DefaultCountries = []string{"Tunisie", "Tunisia", "TN"}

// SplitLocation strips trailing country segments, splits on comma, drops
// repeated segments, and returns (first, last) as (city, region). A single
// segment yields (segment, ""). A nil countries slice uses DefaultCountries.
func SplitLocation(raw string, countries []string) (city, region string) {
	segments := LocationSegments(raw, countries)
	switch len(segments) {
	case 0:
		return "", ""
	case 1:
		return segments[0], ""
	default:
		return segments[0], segments[len(segments)-1]
	}
}

// LocationSegments returns the normalized, deduplicated comma segments of a
// location with trailing country names removed.
func LocationSegments(raw string, countries []string) []string {
	if countries == nil {
		countries = DefaultCountries
	}
	skip := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		skip[Lower(c)] = struct{}{}
	}

	var segments []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		seg := Text(part)
		if seg == "" {
			continue
		}
		key := strings.ToLower(seg)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		segments = append(segments, seg)
	}
	for len(segments) > 0 {
		if _, isCountry := skip[strings.ToLower(segments[len(segments)-1])]; !isCountry {
			break
		}
		segments = segments[:len(segments)-1]
	}
	return segments
}
