package normalize

import (
	"regexp"
	"strings"
)

// DefaultMaxItems caps multi-value fields when no explicit limit is given.
const DefaultMaxItems = 3

var listSplitRe = regexp.MustCompile(`[,/;\-–—|]`)

// MultiValue splits a raw multi-value field on comma, slash, semicolon or
// dash, normalizes each item, drops case-insensitive duplicates keeping the
// first spelling, and truncates to max items (max <= 0 means
// DefaultMaxItems). A list-literal encoding such as "['a', 'b']" is accepted.
func MultiValue(raw string, maxItems int) []string {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = strings.Trim(s, "[]")
		s = strings.NewReplacer(`'`, "", `"`, "").Replace(s)
	}
	if s == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, part := range listSplitRe.Split(s, -1) {
		item := Text(part)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
		if len(out) == maxItems {
			break
		}
	}
	return out
}

// Join serializes a normalized list with ", ".
func Join(items []string) string {
	return strings.Join(items, ", ")
}

// MultiValueString is MultiValue followed by Join.
func MultiValueString(raw string, maxItems int) string {
	return Join(MultiValue(raw, maxItems))
}
