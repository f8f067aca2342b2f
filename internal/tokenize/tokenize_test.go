package tokenize

import (
	"reflect"
	"testing"

	"golang.org/x/text/language"
)

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	got := Tokenize("The Quick, Brown fox-jumps!", language.English)
	want := []string{"the", "quick", "brown", "fox", "jumps"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizePreservesDuplicatesAndOrder(t *testing.T) {
	got := Tokenize("fox fox dog", language.English)
	want := []string{"fox", "fox", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeDropsPunctuationOnly(t *testing.T) {
	got := Tokenize("... --- !!!", language.English)
	if len(got) != 0 {
		t.Fatalf("expected no terms, got %v", got)
	}
}

func TestParseLocaleDefaultsToUndOnEmpty(t *testing.T) {
	tag, err := ParseLocale("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag != language.Und {
		t.Fatalf("expected language.Und, got %v", tag)
	}
}

func TestParseLocaleRejectsGarbage(t *testing.T) {
	if _, err := ParseLocale("!!!not-a-locale!!!"); err == nil {
		t.Fatalf("expected an error for an unparsable locale tag")
	}
}
