// Package plan turns a parsed query into the flat clause list and
// boolean constraints the ranker evaluates against the store.
package plan

import "github.com/mroidx/searchcore/internal/query"

// ClauseKind classifies a single match clause.
type ClauseKind int

const (
	// ClauseWildcard matches via a LIKE-style pattern against the term
	// dictionary.
	ClauseWildcard ClauseKind = iota
	// ClausePlain is an optional exact-term clause (mandatory unless
	// OrSearch is true).
	ClausePlain
	// ClauseRequired is a mandatory exact-term clause regardless of
	// OrSearch.
	ClauseRequired
	// ClauseExcluded is an exact-term clause that must match zero
	// postings.
	ClauseExcluded
	// ClausePhraseWord is one word extracted from a phrase, used to find
	// retrieval candidates and scored like any other active clause; phrase
	// verification itself happens separately against the document's full
	// text.
	ClausePhraseWord
)

// Clause is one zero-based-indexed match predicate.
type Clause struct {
	Kind    ClauseKind
	Literal string // exact term, for everything but ClauseWildcard
	Pattern string // LIKE pattern ('%'-escaped), for ClauseWildcard
}

// Plan is the evaluation plan built from a parsed query: the flat clause
// list plus the boolean constraints the ranker applies after scoring, and
// the pid scope and pagination the search engine applies around it.
type Plan struct {
	Clauses  []Clause
	Phrases  []query.Phrase
	Active   int
	OrSearch bool
	PIDs     []int64
	Limit    int
	Offset   int
}

// Options carries the pagination/scoping knobs that aren't part of the
// parsed query itself.
type Options struct {
	PIDs   []int64
	Limit  int
	Offset int
}

// Build assigns clause indices in a fixed order: wildcards, then
// plains, then requireds, then excludeds, then each word extracted from
// each phrase, in phrase order. Scoring and the HAVING filter both
// depend on this ordering staying stable.
func Build(p query.Parsed, opts Options) Plan {
	var clauses []Clause

	for _, w := range p.Wildcards {
		clauses = append(clauses, Clause{Kind: ClauseWildcard, Pattern: w})
	}

	for _, t := range p.Plains {
		clauses = append(clauses, Clause{Kind: ClausePlain, Literal: t})
	}

	for _, t := range p.Required {
		clauses = append(clauses, Clause{Kind: ClauseRequired, Literal: t})
	}

	for _, t := range p.Excluded {
		clauses = append(clauses, Clause{Kind: ClauseExcluded, Literal: t})
	}

	for _, ph := range p.Phrases {
		for _, w := range ph.Words {
			clauses = append(clauses, Clause{Kind: ClausePhraseWord, Literal: w})
		}
	}

	excluded := len(p.Excluded)

	return Plan{
		Clauses:  clauses,
		Phrases:  p.Phrases,
		Active:   len(clauses) - excluded,
		OrSearch: p.OrSearch,
		PIDs:     opts.PIDs,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	}
}

// ActiveIndices returns every clause index not of kind ClauseExcluded,
// the set the similarity sum ranges over.
func (p Plan) ActiveIndices() []int {
	idx := make([]int, 0, p.Active)

	for i, c := range p.Clauses {
		if c.Kind != ClauseExcluded {
			idx = append(idx, i)
		}
	}

	return idx
}

// Mandatory reports whether clause i must have at least one matching
// posting for a document to survive the HAVING filter: requireds
// always, plains only when OrSearch is false.
func (p Plan) Mandatory(i int) bool {
	switch p.Clauses[i].Kind {
	case ClauseRequired:
		return true
	case ClausePlain:
		return !p.OrSearch
	default:
		return false
	}
}
