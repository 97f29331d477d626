package replies

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/jwebster45206/dicebot/pkg/dice"
)

func TestCatalogs_SameKeys(t *testing.T) {
	en := catalogs[language.AmericanEnglish]
	for tag, msgs := range catalogs {
		if len(msgs) != len(en) {
			t.Errorf("%s has %d messages, en-US has %d", tag, len(msgs), len(en))
		}
		for key := range en {
			if _, ok := msgs[key]; !ok {
				t.Errorf("%s is missing %q", tag, key)
			}
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"", language.AmericanEnglish},
		{"en-US", language.AmericanEnglish},
		{"en-GB", language.AmericanEnglish},
		{"pt-BR", language.BrazilianPortuguese},
		{"pt", language.BrazilianPortuguese},
		{"fr-FR,pt-BR;q=0.8,en;q=0.5", language.BrazilianPortuguese},
		{"not a tag!!", language.AmericanEnglish},
	}
	for _, tt := range tests {
		if got := Match(tt.in, language.AmericanEnglish); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/roll", nil)
	r.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")
	if got := Resolve(r, language.AmericanEnglish); got != language.BrazilianPortuguese {
		t.Errorf("Resolve(Accept-Language pt-BR) = %v", got)
	}

	r = httptest.NewRequest("POST", "/v1/roll?lang=en-US", nil)
	r.Header.Set("Accept-Language", "pt-BR")
	if got := Resolve(r, language.BrazilianPortuguese); got != language.AmericanEnglish {
		t.Errorf("Resolve(?lang=en-US) = %v", got)
	}

	if got := Resolve(nil, language.BrazilianPortuguese); got != language.BrazilianPortuguese {
		t.Errorf("Resolve(nil) = %v", got)
	}
}

func TestTranslate(t *testing.T) {
	_, err := dice.NewEvaluator(nil).Eval("k9")

	msg, code := Translate(language.AmericanEnglish, fmt.Errorf("roll: %w", err))
	if code != "INVALID_TOKEN" {
		t.Errorf("code = %q, want INVALID_TOKEN", code)
	}
	if msg != catalogs[language.AmericanEnglish][KeyInvalidToken] {
		t.Errorf("en-US message = %q", msg)
	}

	msg, _ = Translate(language.BrazilianPortuguese, err)
	if !strings.HasPrefix(msg, "Não consigo") {
		t.Errorf("pt-BR message = %q", msg)
	}

	msg, code = Translate(language.AmericanEnglish, errors.New("redis down"))
	if code != "INTERNAL" || msg != "Something went wrong, please try again." {
		t.Errorf("Translate(plain error) = %q, %q", msg, code)
	}
}

func TestSprintf_Args(t *testing.T) {
	got := Sprintf(language.AmericanEnglish, KeyUnknownCommand, "foo", "~")
	if got != "Unknown command foo. Try ~help." {
		t.Errorf("Sprintf = %q", got)
	}
	got = Sprintf(language.BrazilianPortuguese, KeyUsageRoll, "!")
	if got != "Uso: !roll <expressão>" {
		t.Errorf("Sprintf = %q", got)
	}
}
