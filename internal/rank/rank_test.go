package rank

import (
	"reflect"
	"testing"

	"golang.org/x/text/language"

	"github.com/mroidx/searchcore/internal/docmodel"
	"github.com/mroidx/searchcore/internal/plan"
	"github.com/mroidx/searchcore/internal/query"
)

func buildPlan(t *testing.T, raw string, opts query.Options, popts plan.Options) plan.Plan {
	t.Helper()

	parsed, err := query.Parse(raw, opts)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	return plan.Build(parsed, popts)
}

func TestScoreGivesPositiveRelevanceAndExcludesNonMatches(t *testing.T) {
	p := buildPlan(t, "quick", query.Options{Locale: language.English}, plan.Options{})
	termDF := map[string]int{"quick": 2}
	w := ComputeWeights(p, 3, termDF, nil)

	d1 := docmodel.Document{ID: 1, Text: "the quick brown fox", VectorLength: 1.2}
	d1Postings := []Posting{{Term: "quick", Relevance: 1}, {Term: "brown", Relevance: 1}, {Term: "fox", Relevance: 1}}

	d3 := docmodel.Document{ID: 3, Text: "lazy cat", VectorLength: 1.0}
	d3Postings := []Posting{{Term: "lazy", Relevance: 1}, {Term: "cat", Relevance: 1}}

	r1, ok1 := Score(p, w, d1, d1Postings)
	if !ok1 {
		t.Fatalf("expected d1 to match")
	}

	if r1.Relevance <= 0 {
		t.Fatalf("expected positive relevance, got %v", r1.Relevance)
	}

	_, ok3 := Score(p, w, d3, d3Postings)
	if ok3 {
		t.Fatalf("expected d3 (no matching postings) to fail the HAVING filter")
	}
}

func TestScoreRejectsDocumentsMatchingExcludedTerm(t *testing.T) {
	p := buildPlan(t, "+quick -fox", query.Options{Locale: language.English}, plan.Options{})
	w := ComputeWeights(p, 3, map[string]int{"quick": 2, "fox": 1}, nil)

	d1 := docmodel.Document{ID: 1, Text: "the quick brown fox", VectorLength: 1.0}
	postings := []Posting{{Term: "quick", Relevance: 1}, {Term: "fox", Relevance: 1}}

	_, ok := Score(p, w, d1, postings)
	if ok {
		t.Fatalf("expected document containing excluded term 'fox' to be rejected")
	}

	d2 := docmodel.Document{ID: 2, Text: "quick brown dogs", VectorLength: 1.0}
	postings2 := []Posting{{Term: "quick", Relevance: 1}, {Term: "dogs", Relevance: 1}}

	_, ok2 := Score(p, w, d2, postings2)
	if !ok2 {
		t.Fatalf("expected d2 (required present, excluded absent) to pass")
	}
}

func TestScorePhraseFilterRequiresRegexMatch(t *testing.T) {
	p := buildPlan(t, `"brown fox"`, query.Options{Locale: language.English}, plan.Options{})
	w := ComputeWeights(p, 3, map[string]int{"brown": 2, "fox": 1}, nil)

	d1 := docmodel.Document{ID: 1, Text: "the quick brown fox", VectorLength: 1.0}
	postings := []Posting{{Term: "brown", Relevance: 1}, {Term: "fox", Relevance: 1}}

	r, ok := Score(p, w, d1, postings)
	if !ok {
		t.Fatalf("expected phrase match against text to pass")
	}

	if !reflect.DeepEqual(r.Matches, []string{"brown fox"}) {
		t.Fatalf("got matches %v, want phrase in highlight set", r.Matches)
	}

	d2 := docmodel.Document{ID: 2, Text: "brown things and a fox elsewhere", VectorLength: 1.0}

	_, ok2 := Score(p, w, d2, postings)
	if ok2 {
		t.Fatalf("expected non-adjacent words to fail the phrase regex filter")
	}
}

func TestScoreWildcardHighlightsMatchedTerms(t *testing.T) {
	p := buildPlan(t, "qui*", query.Options{Locale: language.English}, plan.Options{})
	w := ComputeWeights(p, 3, nil, map[int]int{0: 2})

	d1 := docmodel.Document{ID: 1, Text: "the quick brown fox", VectorLength: 1.0}
	postings := []Posting{{Term: "quick", Relevance: 1}}

	r, ok := Score(p, w, d1, postings)
	if !ok {
		t.Fatalf("expected wildcard match to pass")
	}

	if !reflect.DeepEqual(r.Matches, []string{"quick"}) {
		t.Fatalf("got matches %v", r.Matches)
	}
}

func TestLikeMatchPatterns(t *testing.T) {
	cases := []struct {
		term, pattern string
		want          bool
	}{
		{"quick", "qui%", true},
		{"quick", "%ick", true},
		{"quick", "%uic%", true},
		{"quick", "slow%", false},
		{"cats", "%cats%", true},
		{"cat", "%cats%", false},
	}

	for _, c := range cases {
		if got := likeMatch(c.term, c.pattern); got != c.want {
			t.Errorf("likeMatch(%q,%q) = %v, want %v", c.term, c.pattern, got, c.want)
		}
	}
}
