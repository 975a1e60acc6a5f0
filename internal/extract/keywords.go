package extract

import (
	"regexp"

	"github.com/EmnaWalha99/Job-Portal/internal/normalize"
)

type keyword struct {
	name    string
	pattern *regexp.Regexp
}

func kw(name, pattern string) keyword {
	return keyword{name: name, pattern: regexp.MustCompile(`\b(?:` + pattern + `)\b`)}
}

// vocabulary is matched against lower-cased, accent-free text and emitted
// in this order.
var vocabulary = []keyword{
	kw("communication", `communication`),
	kw("gestion", `gestion`),
	kw("management", `management`),
	kw("leadership", `leadership`),
	kw("travail en equipe", `travail\s+en\s+equipe|esprit\s+d.equipe`),
	kw("autonomie", `autonomie|autonome`),
	kw("organisation", `organisation|organise`),
	kw("anglais", `anglais|english`),
	kw("francais", `francais|maitrise\s+du\s+francais`),
	kw("informatique", `informatique|outils?\s+digitaux?|pack\s+office`),
	kw("excel", `excel`),
	kw("comptabilite", `comptabilite|comptable`),
	kw("marketing", `marketing`),
	kw("vente", `vente|commercial`),
	kw("python", `python`),
	kw("java", `java`),
	kw("javascript", `javascript|js`),
	kw("sql", `sql|mysql|postgresql`),
	kw("php", `php`),
	kw("linux", `linux`),
	kw("reseaux", `reseaux?|network`),
	kw("react", `react(?:\.?js)?`),
}

// Vocabulary returns the keyword names in match order.
func Vocabulary() []string {
	out := make([]string, len(vocabulary))
	for i, k := range vocabulary {
		out[i] = k.name
	}
	return out
}

// Keywords returns the vocabulary terms present in description, in
// vocabulary order, capped at maxCount (DefaultMaxSkills when <= 0).
func Keywords(description string, maxCount int) []string {
	if maxCount <= 0 {
		maxCount = DefaultMaxSkills
	}
	text := normalize.Lower(description)
	if text == "" {
		return nil
	}
	var out []string
	for _, k := range vocabulary {
		if k.pattern.MatchString(text) {
			out = append(out, k.name)
			if len(out) == maxCount {
				break
			}
		}
	}
	return out
}
