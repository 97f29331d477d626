// Package textfilter scrubs profanity from user text that the bot repeats
// back into a channel.
package textfilter

import (
	"cmp"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rating is a channel's content rating.
type Rating string

const (
	RatingG    Rating = "G"
	RatingPG   Rating = "PG"
	RatingPG13 Rating = "PG13"
	RatingR    Rating = "R"
)

// ParseRating normalizes a configured rating ("pg-13", " PG13 ").
// Unknown values parse as R, which is unfiltered.
func ParseRating(s string) Rating {
	s = strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "")
	switch Rating(s) {
	case RatingG, RatingPG, RatingPG13:
		return Rating(s)
	default:
		return RatingR
	}
}

// Filtered reports whether text shown under this rating is scrubbed.
func (r Rating) Filtered() bool {
	return r != RatingR
}

// family-friendly replacements, keyed by the lowercase word
var replacements = map[string]string{
	"fuck":         "fudge",
	"fucking":      "fudging",
	"shit":         "shoot",
	"damn":         "dang",
	"hell":         "heck",
	"ass":          "butt",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"cock":         "[censored]",
	"dick":         "jerk",
	"pussy":        "[censored]",
	"tits":         "[censored]",
	"whore":        "[censored]",
	"slut":         "[censored]",
	"fag":          "[censored]",
	"retard":       "[censored]",
	"motherfucker": "mother-trucker",
	"goddamn":      "gosh-dang",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"dipshit":      "dummy",
	"shithead":     "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douchebag":    "jerk",
	"douche":       "jerk",
}

// Filter replaces profanity with milder words, keeping the original casing
// and a trailing plural "s". A Filter is safe for concurrent use.
type Filter struct {
	re *regexp.Regexp
}

// New compiles the word list into a single case-insensitive pattern.
func New() *Filter {
	words := slices.Collect(maps.Keys(replacements))
	// longest first so "asshole" wins over "ass"
	slices.SortFunc(words, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return &Filter{
		re: regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)(s?)\b`),
	}
}

// Clean returns text with every listed word replaced.
func (f *Filter) Clean(text string) string {
	return f.re.ReplaceAllStringFunc(text, func(match string) string {
		m := f.re.FindStringSubmatch(match)
		word, plural := m[1], m[2]
		return matchCase(word, replacements[strings.ToLower(word)]) + plural
	})
}

// Contains reports whether text has any listed word.
func (f *Filter) Contains(text string) bool {
	return f.re.MatchString(text)
}

// ForRating cleans text only when the rating calls for it.
func (f *Filter) ForRating(r Rating, text string) string {
	if !r.Filtered() {
		return text
	}
	return f.Clean(text)
}

// matchCase copies the casing pattern of original onto replacement.
func matchCase(original, replacement string) string {
	switch {
	case original == strings.ToUpper(original):
		return strings.ToUpper(replacement)
	case original == strings.ToLower(original):
		return replacement
	}

	// Casers keep state, so one per call.
	title := cases.Title(language.English)
	if title.String(strings.ToLower(original)) == original {
		return title.String(replacement)
	}

	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}
