// Package rank scores candidate documents against a query plan: term
// weighting, the HAVING/phrase filters, and the matched-surface-form
// highlight set.
package rank

import (
	"math"
	"regexp"
	"strings"

	"github.com/mroidx/searchcore/internal/docmodel"
	"github.com/mroidx/searchcore/internal/plan"
)

// Posting is the (term, frequency) pair the ranker needs from a
// candidate document's postings; term strings are compared against
// exact clause literals or wildcard patterns.
type Posting struct {
	Term      string
	Relevance int
}

// Result is one scored, filtered candidate ready to be ordered and
// paginated by the caller.
type Result struct {
	Document  docmodel.Document
	Relevance float64
	Matches   []string
}

// Weights holds the per-clause IDF-derived scalar, computed once per
// query execution since it depends only on corpus-wide statistics, not
// on any individual candidate document.
type Weights []float64

// ComputeWeights derives each clause's weight: log((N+1)/max(1,df))
// with df taken from the term dictionary for exact clauses, or from the
// distinct-document count of all pattern-matching terms for wildcard
// clauses. Clauses with no dictionary hits at all fall back to df=1 via
// the max(1, df) floor.
func ComputeWeights(p plan.Plan, n int, termDF map[string]int, wildcardDF map[int]int) Weights {
	w := make(Weights, len(p.Clauses))

	for i, c := range p.Clauses {
		switch c.Kind {
		case plan.ClauseWildcard:
			w[i] = idf(n, wildcardDF[i])
		default:
			w[i] = idf(n, termDF[c.Literal])
		}
	}

	return w
}

func idf(n, df int) float64 {
	if df < 1 {
		df = 1
	}

	return math.Log(float64(n+1) / float64(df))
}

// Score evaluates one candidate document's postings against the plan and
// precomputed weights. ok is false if the document fails the HAVING,
// excluded, or phrase filters. The pid filter is the caller's concern;
// the store restricts candidates by plan.Plan.PIDs before scoring.
func Score(p plan.Plan, w Weights, doc docmodel.Document, postings []Posting) (Result, bool) {
	clauseTF := make([]int, len(p.Clauses))
	matchedExact := make([]bool, len(p.Clauses))
	matchedWildcardTerms := make([][]string, len(p.Clauses))

	for _, post := range postings {
		for i, c := range p.Clauses {
			switch c.Kind {
			case plan.ClauseWildcard:
				if likeMatch(post.Term, c.Pattern) {
					clauseTF[i] += post.Relevance
					matchedWildcardTerms[i] = append(matchedWildcardTerms[i], post.Term)
				}
			default:
				if post.Term == c.Literal {
					clauseTF[i] += post.Relevance
					matchedExact[i] = true
				}
			}
		}
	}

	if !passesExcludedAndHaving(p, clauseTF) {
		return Result{}, false
	}

	if !passesPhraseFilter(p, doc.Text) {
		return Result{}, false
	}

	relevance := relevanceScore(p, w, clauseTF, doc.VectorLength)
	matches := highlightSet(p, matchedExact, matchedWildcardTerms)

	return Result{Document: doc, Relevance: relevance, Matches: matches}, true
}

func passesExcludedAndHaving(p plan.Plan, clauseTF []int) bool {
	for i, c := range p.Clauses {
		if c.Kind == plan.ClauseExcluded && clauseTF[i] > 0 {
			return false
		}

		if p.Mandatory(i) && clauseTF[i] == 0 {
			return false
		}
	}

	return true
}

func passesPhraseFilter(p plan.Plan, text string) bool {
	if len(p.Phrases) == 0 {
		return true
	}

	if p.OrSearch {
		for _, ph := range p.Phrases {
			if phraseRegexp(ph.Pattern).MatchString(text) {
				return true
			}
		}

		return false
	}

	for _, ph := range p.Phrases {
		if !phraseRegexp(ph.Pattern).MatchString(text) {
			return false
		}
	}

	return true
}

func phraseRegexp(pattern string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + pattern)
}

// relevanceScore accumulates (1 + log tf_i) * w_i^2 over the active
// clauses, normalizes by the active clause count, and divides by the
// document's cached vectorLength, floored at the smallest positive float
// when the computed value is exactly zero. A per-query denominator term
// would be constant across all candidates and cannot change ranking
// order, so it is left out; see DESIGN.md.
func relevanceScore(p plan.Plan, w Weights, clauseTF []int, vectorLength float64) float64 {
	if p.Active <= 0 {
		return math.SmallestNonzeroFloat64
	}

	var sum float64

	for _, i := range p.ActiveIndices() {
		if clauseTF[i] == 0 {
			continue
		}

		// The log-tf factor enters linearly; only the clause weight is
		// squared.
		sum += (1 + math.Log(float64(clauseTF[i]))) * w[i] * w[i]
	}

	similarity := sum / float64(p.Active)

	if vectorLength <= 0 {
		return math.SmallestNonzeroFloat64
	}

	relevance := similarity / vectorLength
	if relevance == 0 {
		return math.SmallestNonzeroFloat64
	}

	return relevance
}

// highlightSet collects the matched surface forms from plain, required
// and wildcard clauses, plus any phrase whose words are all present.
func highlightSet(p plan.Plan, matchedExact []bool, matchedWildcardTerms [][]string) []string {
	var matches []string

	seen := make(map[string]struct{})

	add := func(s string) {
		if s == "" {
			return
		}

		if _, ok := seen[s]; ok {
			return
		}

		seen[s] = struct{}{}

		matches = append(matches, s)
	}

	for i, c := range p.Clauses {
		switch c.Kind {
		case plan.ClausePlain, plan.ClauseRequired:
			if matchedExact[i] {
				add(c.Literal)
			}
		case plan.ClauseWildcard:
			for _, t := range matchedWildcardTerms[i] {
				add(t)
			}
		}
	}

	cursor := 0

	phraseClauseIdx := make([]int, 0, len(p.Clauses))

	for i, c := range p.Clauses {
		if c.Kind == plan.ClausePhraseWord {
			phraseClauseIdx = append(phraseClauseIdx, i)
		}
	}

	for _, ph := range p.Phrases {
		if len(ph.Words) == 0 {
			continue
		}

		allMatched := true

		for range ph.Words {
			idx := phraseClauseIdx[cursor]
			if !matchedExact[idx] {
				allMatched = false
			}

			cursor++
		}

		if allMatched {
			add(strings.Join(ph.Words, " "))
		}
	}

	return matches
}

// likeMatch matches a term against a '%'-wildcard pattern with a
// prefix/suffix/substring check: a leading and/or trailing '%' matches
// any run (including empty). A '%' anywhere else in the pattern (which
// query.Parse produces for an inner '*', e.g. "qu*ck*") is compared
// literally, unlike SQL LIKE.
func likeMatch(term, pattern string) bool {
	switch {
	case strings.HasPrefix(pattern, "%") && strings.HasSuffix(pattern, "%") && len(pattern) > 1:
		return strings.Contains(term, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "%"):
		return strings.HasSuffix(term, pattern[1:])
	case strings.HasSuffix(pattern, "%"):
		return strings.HasPrefix(term, pattern[:len(pattern)-1])
	default:
		return term == pattern
	}
}
