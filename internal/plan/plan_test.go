package plan

import (
	"testing"

	"golang.org/x/text/language"

	"github.com/mroidx/searchcore/internal/query"
)

func parse(t *testing.T, raw string, opts query.Options) query.Parsed {
	t.Helper()

	p, err := query.Parse(raw, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return p
}

func TestBuildOrdersClausesWildcardsPlainsRequiredsExcludedsPhrases(t *testing.T) {
	parsed := parse(t, `qui* brown +fox -dog "lazy cat"`, query.Options{Locale: language.English})
	p := Build(parsed, Options{})

	var kinds []ClauseKind
	for _, c := range p.Clauses {
		kinds = append(kinds, c.Kind)
	}

	want := []ClauseKind{
		ClauseWildcard,
		ClausePlain,
		ClauseRequired,
		ClauseExcluded,
		ClausePhraseWord,
		ClausePhraseWord,
	}

	if len(kinds) != len(want) {
		t.Fatalf("got %d clauses, want %d", len(kinds), len(want))
	}

	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("clause %d: got kind %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestBuildActiveExcludesExcludedClauses(t *testing.T) {
	parsed := parse(t, "quick -fox", query.Options{Locale: language.English})
	p := Build(parsed, Options{})

	if p.Active != 1 {
		t.Fatalf("got Active=%d, want 1", p.Active)
	}

	if len(p.ActiveIndices()) != 1 {
		t.Fatalf("got %d active indices, want 1", len(p.ActiveIndices()))
	}
}

func TestMandatoryRequiredAlwaysTrue(t *testing.T) {
	parsed := parse(t, "+quick", query.Options{Locale: language.English, OrSearch: true})
	p := Build(parsed, Options{})

	if !p.Mandatory(0) {
		t.Fatalf("expected required clause to be mandatory regardless of OrSearch")
	}
}

func TestMandatoryPlainDependsOnOrSearch(t *testing.T) {
	parsed := parse(t, "quick", query.Options{Locale: language.English, OrSearch: true})
	p := Build(parsed, Options{})

	if p.Mandatory(0) {
		t.Fatalf("expected plain clause to be optional when OrSearch is true")
	}

	parsed2 := parse(t, "quick", query.Options{Locale: language.English, OrSearch: false})
	p2 := Build(parsed2, Options{})

	if !p2.Mandatory(0) {
		t.Fatalf("expected plain clause to be mandatory when OrSearch is false")
	}
}
