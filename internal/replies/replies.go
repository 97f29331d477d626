// Package replies turns engine errors and bot responses into user-facing
// text in the caller's language.
package replies

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jwebster45206/dicebot/pkg/dice"
)

// LangParam is the query parameter that overrides Accept-Language.
const LangParam = "lang"

var supported = []language.Tag{
	language.AmericanEnglish, // first entry is the matcher's fallback
	language.BrazilianPortuguese,
}

var matcher = language.NewMatcher(supported)

// Supported returns the locales with a full catalog.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Match picks the supported locale closest to value, a BCP 47 tag or an
// Accept-Language list. fallback is used when nothing matches.
func Match(value string, fallback language.Tag) language.Tag {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return supported[idx]
}

// Resolve picks the locale for an HTTP request: ?lang= first, then
// Accept-Language, then fallback.
func Resolve(r *http.Request, fallback language.Tag) language.Tag {
	if r == nil {
		return fallback
	}
	if lang := r.URL.Query().Get(LangParam); lang != "" {
		if tag := Match(lang, language.Und); tag != language.Und {
			return tag
		}
	}
	return Match(r.Header.Get("Accept-Language"), fallback)
}

// Sprintf formats the message registered under key.
func Sprintf(tag language.Tag, key string, args ...any) string {
	return message.NewPrinter(tag).Sprintf(key, args...)
}

var kindKeys = map[dice.Kind]string{
	dice.InvalidToken:          KeyInvalidToken,
	dice.InsufficientOperands:  KeyInsufficientOperands,
	dice.NotAnOperand:          KeyNotAnOperand,
	dice.NotAnOperator:         KeyNotAnOperator,
	dice.InvalidRollParameters: KeyInvalidRollParameters,
	dice.MalformedExpression:   KeyMalformedExpression,
}

// Translate returns the localized message for err and a machine-readable
// code. Errors that do not come from the dice engine map to a generic
// internal message with code INTERNAL.
func Translate(tag language.Tag, err error) (msg, code string) {
	var de *dice.Error
	if errors.As(err, &de) {
		if key, ok := kindKeys[de.Kind]; ok {
			return Sprintf(tag, key), de.Kind.String()
		}
	}
	return Sprintf(tag, KeyInternal), "INTERNAL"
}
