// Package extract recovers structured fields from unstructured description
// text. Extractors are fallbacks for sources without a structured column and
// return "" (or nil bounds) when nothing matches.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/EmnaWalha99/Job-Portal/internal/normalize"
)

// Span caps applied to captured label values.
const (
	DefaultSpanLimit = 100
	SkillsSpanLimit  = 200
	DefaultMaxSkills = 8
)

// Labels is the ordered label vocabulary found in job descriptions. A span
// captured after one label ends where the next label token begins.
var Labels = []string{
	"Activite de l'entreprise",
	"Domaine",
	"Niveau",
	"Diplome",
	"Specialite",
	"Poste",
	"Profession",
	"Lieu de travail",
	"Experience",
	"Salaire",
	"Competences",
	"Qualifications",
	"Skills",
	"Informations",
	"Bureau de",
	"Responsable",
	"Langue",
}

// A label token is a vocabulary term followed shortly by a colon, so
// "Niveau d'etude :" counts while a bare "experience" inside a sentence
// does not.
const labelTail = `[^:\n]{0,25}:`

var stopRe = regexp.MustCompile(`(?i)\b(?:` + alternation(Labels) + `)` + labelTail)

func alternation(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return strings.Join(quoted, "|")
}

// LabeledSpan returns the text following label (and its colon) up to the
// next label token, trimmed and capped at maxRunes (DefaultSpanLimit when
// maxRunes <= 0).
func LabeledSpan(description, label string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultSpanLimit
	}
	text := normalize.Text(description)
	if text == "" || label == "" {
		return ""
	}
	labelRe, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(label) + labelTail + `\s*`)
	if err != nil {
		return ""
	}
	loc := labelRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if stop := stopRe.FindStringIndex(rest); stop != nil {
		rest = rest[:stop[0]]
	}
	return truncateRunes(strings.Trim(rest, " .,;-"), maxRunes)
}

// FirstSpan tries each label in order and returns the first non-empty span.
func FirstSpan(description string, maxRunes int, labels ...string) string {
	for _, l := range labels {
		if v := LabeledSpan(description, l, maxRunes); v != "" {
			return v
		}
	}
	return ""
}

// Sector extracts the business domain.
func Sector(description string) string {
	return FirstSpan(description, DefaultSpanLimit, "Domaine", "Activite de l'entreprise", "Secteur")
}

// StudyLevel extracts the required degree.
func StudyLevel(description string) string {
	return FirstSpan(description, DefaultSpanLimit, "Niveau", "Diplome")
}

// Skills extracts an explicit skills span, falling back to vocabulary
// keywords.
func Skills(description string) string {
	if span := FirstSpan(description, SkillsSpanLimit, "Competences", "Qualifications", "Skills"); span != "" {
		return span
	}
	return normalize.Join(Keywords(description, DefaultMaxSkills))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
