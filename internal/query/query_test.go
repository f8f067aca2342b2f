package query

import (
	"reflect"
	"testing"

	"golang.org/x/text/language"

	"github.com/mroidx/searchcore/internal/errs"
)

func parse(t *testing.T, raw string, opts Options) Parsed {
	t.Helper()

	p, err := Parse(raw, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return p
}

func TestParseRejectsEmptyQuery(t *testing.T) {
	_, err := Parse("   ", Options{Locale: language.English})
	if err != errs.ErrEmptyQuery {
		t.Fatalf("got %v, want ErrEmptyQuery", err)
	}
}

func TestParsePlainTerms(t *testing.T) {
	p := parse(t, "quick brown", Options{Locale: language.English})
	if !reflect.DeepEqual(p.Plains, []string{"quick", "brown"}) {
		t.Fatalf("got %v", p.Plains)
	}
}

func TestParseDropsShortPlainTerms(t *testing.T) {
	p := parse(t, "a quick", Options{Locale: language.English, MinLength: 2})
	if !reflect.DeepEqual(p.Plains, []string{"quick"}) {
		t.Fatalf("got %v", p.Plains)
	}
}

func TestParseRequiredAndExcluded(t *testing.T) {
	p := parse(t, "+quick -fox", Options{Locale: language.English})
	if !reflect.DeepEqual(p.Required, []string{"quick"}) {
		t.Fatalf("got required %v", p.Required)
	}

	if !reflect.DeepEqual(p.Excluded, []string{"fox"}) {
		t.Fatalf("got excluded %v", p.Excluded)
	}
}

func TestParsePhrase(t *testing.T) {
	p := parse(t, `"brown fox"`, Options{Locale: language.English})
	if len(p.Phrases) != 1 {
		t.Fatalf("expected one phrase, got %v", p.Phrases)
	}

	got := p.Phrases[0]
	if !reflect.DeepEqual(got.Words, []string{"brown", "fox"}) {
		t.Fatalf("got words %v", got.Words)
	}

	want := "brown" + `[^[:alnum:]]+` + "fox"
	if got.Pattern != want {
		t.Fatalf("got pattern %q, want %q", got.Pattern, want)
	}
}

func TestParseTrailingWildcard(t *testing.T) {
	p := parse(t, "qui*", Options{Locale: language.English})
	if !reflect.DeepEqual(p.Wildcards, []string{"qui%"}) {
		t.Fatalf("got %v", p.Wildcards)
	}

	if len(p.Plains) != 0 {
		t.Fatalf("expected no plain terms, got %v", p.Plains)
	}
}

func TestParseLeadingWildcard(t *testing.T) {
	p := parse(t, "*fox", Options{Locale: language.English})
	if !reflect.DeepEqual(p.Wildcards, []string{"%fox"}) {
		t.Fatalf("got %v", p.Wildcards)
	}
}

func TestParseSingleAsteriskIsLeadingWildcard(t *testing.T) {
	// The length > 1 rule only guards the trailing-wildcard shape; a bare
	// "*" still classifies under the begins-with-"*" row.
	p := parse(t, "*", Options{Locale: language.English})
	if !reflect.DeepEqual(p.Wildcards, []string{"%"}) {
		t.Fatalf("got %v, want a bare %% pattern", p.Wildcards)
	}
}

func TestParseFuzzyConvertsPlainsToWildcardsAndClearsPlains(t *testing.T) {
	p := parse(t, "cat", Options{Locale: language.English, Fuzzy: true})
	if len(p.Plains) != 0 {
		t.Fatalf("expected plains cleared, got %v", p.Plains)
	}

	if !reflect.DeepEqual(p.Wildcards, []string{"%cat%"}) {
		t.Fatalf("got wildcards %v", p.Wildcards)
	}
}

func TestParseFuzzyLeavesRequiredUntouched(t *testing.T) {
	p := parse(t, "+quick bar", Options{Locale: language.English, Fuzzy: true})
	if !reflect.DeepEqual(p.Required, []string{"quick"}) {
		t.Fatalf("got required %v", p.Required)
	}

	if !reflect.DeepEqual(p.Wildcards, []string{"%bar%"}) {
		t.Fatalf("got wildcards %v", p.Wildcards)
	}
}

func TestParseDedupesRepeatedTerms(t *testing.T) {
	p := parse(t, "fox fox", Options{Locale: language.English})
	if !reflect.DeepEqual(p.Plains, []string{"fox"}) {
		t.Fatalf("got %v", p.Plains)
	}
}
