// Package normalize turns noisy raw field values into canonical forms. Every
// function is pure and never fails: unparseable input falls back to a
// documented default.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text strips diacritics, collapses whitespace runs to a single space and
// trims. Missing input yields "".
func Text(s string) string {
	if s == "" {
		return ""
	}
	// Transformers keep state, so each call builds its own chain.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(out), " ")
}

// Lower is Text followed by lower-casing.
func Lower(s string) string {
	return strings.ToLower(Text(s))
}
