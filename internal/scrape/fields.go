package scrape

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// Extract evaluates f against root. A missing element yields "".
func (f Field) Extract(root *goquery.Selection) string {
	candidates := root.Find(f.Selector)
	if len(f.Labels) > 0 {
		candidates = candidates.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return f.hasLabel(s)
		})
	}
	if candidates.Length() == 0 {
		return ""
	}
	if f.All {
		var parts []string
		candidates.Each(func(_ int, s *goquery.Selection) {
			if v := f.value(s); v != "" {
				parts = append(parts, v)
			}
		})
		return strings.Join(parts, ", ")
	}
	if f.Index < 0 || f.Index >= candidates.Length() {
		return ""
	}
	return f.value(candidates.Eq(f.Index))
}

func (f Field) hasLabel(s *goquery.Selection) bool {
	labelSel := s
	if f.LabelSelector != "" {
		labelSel = s.Find(f.LabelSelector).First()
	}
	text := strings.ToLower(labelSel.Text())
	for _, l := range f.Labels {
		if strings.Contains(text, strings.ToLower(l)) {
			return true
		}
	}
	return false
}

func (f Field) value(s *goquery.Selection) string {
	if f.Value != "" {
		s = s.Find(f.Value).First()
		if s.Length() == 0 {
			return ""
		}
	}
	var v string
	if f.Attr != "" {
		v = strings.TrimSpace(s.AttrOr(f.Attr, ""))
	} else {
		v = s.Text()
	}
	if f.Multiline {
		v = squashLines(v)
	} else {
		v = strings.Join(strings.Fields(v), " ")
	}
	if f.TrimPrefix != "" {
		v = strings.TrimSpace(strings.TrimPrefix(v, f.TrimPrefix))
	}
	return v
}

// squashLines collapses blanks inside each line and drops empty lines.
func squashLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if l := strings.Join(strings.Fields(line), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// extractInto fills row from fields, keeping values already present when the
// new one is empty.
func extractInto(row jobs.RawRecord, root *goquery.Selection, fields map[string]Field) {
	for col, f := range fields {
		if v := f.Extract(root); v != "" || row[col] == "" {
			row[col] = v
		}
	}
}

// resolveLink makes href absolute against base and drops fragments.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	abs.Fragment, abs.RawFragment = "", ""
	return abs.String()
}
