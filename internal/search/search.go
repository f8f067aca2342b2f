// Package search is the query-side entry point: it parses a raw query
// string, builds the evaluation plan, pulls corpus statistics and
// candidate documents from the store, and returns the ranked, paginated
// result set with per-row highlight terms.
package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mroidx/searchcore/internal/docmodel"
	"github.com/mroidx/searchcore/internal/errs"
	"github.com/mroidx/searchcore/internal/logx"
	"github.com/mroidx/searchcore/internal/plan"
	"github.com/mroidx/searchcore/internal/query"
	"github.com/mroidx/searchcore/internal/rank"
	"github.com/mroidx/searchcore/internal/store"
	"github.com/mroidx/searchcore/internal/tokenize"
)

// Engine executes searches against a Store. It holds no per-query state;
// a single Engine is safe for concurrent use.
type Engine struct {
	st store.Store
}

// New creates an Engine over the given store.
func New(st store.Store) *Engine {
	return &Engine{st: st}
}

// SearchFor parses and executes a query, returning documents ranked by
// cosine similarity. Each search runs as one read pass against the store
// and never takes the write lock, so concurrent indexing is not blocked.
// It returns errs.ErrEmptyQuery for a blank query string.
func (e *Engine) SearchFor(ctx context.Context, raw string, opts docmodel.SearchOptions) (docmodel.ResultSet, error) {
	reqLog := logx.WithRequestID(uuid.New())

	locale, err := tokenize.ParseLocale(opts.Locale)
	if err != nil {
		return docmodel.ResultSet{}, fmt.Errorf("%w: %s: %v", errs.ErrUnknownLocale, opts.Locale, err)
	}

	parsed, err := query.Parse(raw, query.Options{
		Locale:    locale,
		MinLength: opts.MinLength,
		Fuzzy:     opts.Fuzzy,
		OrSearch:  opts.OrSearch,
	})
	if err != nil {
		return docmodel.ResultSet{}, err
	}

	pl := plan.Build(parsed, plan.Options{PIDs: opts.PIDs, Limit: opts.Limit, Offset: opts.Offset})

	// A query can parse non-empty yet plan to nothing, e.g. when every
	// plain word falls under the minimum length. That is not an error;
	// there is just nothing to retrieve.
	if len(pl.Clauses) == 0 {
		return docmodel.ResultSet{}, nil
	}

	n, err := e.st.CorpusSize(ctx)
	if err != nil {
		return docmodel.ResultSet{}, storeErr(err)
	}

	weights, candidateTerms, err := e.clauseWeights(ctx, pl, n)
	if err != nil {
		return docmodel.ResultSet{}, err
	}

	docs, postings, err := e.st.CandidateDocuments(ctx, candidateTerms, opts.PIDs)
	if err != nil {
		return docmodel.ResultSet{}, storeErr(err)
	}

	results := scoreCandidates(pl, weights, docs, postings)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}

		return results[i].Document.ID < results[j].Document.ID
	})

	total := len(results)
	results = paginate(results, opts.Limit, opts.Offset)

	reqLog.Debug().Str("query", raw).Int("candidates", len(docs)).Int("results", total).Msg("searchFor")

	rows := make([]docmodel.ResultRow, len(results))
	for i, r := range results {
		rows[i] = docmodel.ResultRow{Document: r.Document, Relevance: r.Relevance, Matches: r.Matches}
	}

	return docmodel.ResultSet{Rows: rows, Total: total}, nil
}

// clauseWeights computes the per-clause IDF-derived scalars: the term
// dictionary's document frequency for exact clauses, and the distinct
// document count of all pattern-matching terms for wildcard clauses. The
// second return value is the union of every surface form worth joining
// against postings: exact literals plus every dictionary term any
// wildcard matched.
func (e *Engine) clauseWeights(ctx context.Context, pl plan.Plan, n int) (rank.Weights, []string, error) {
	var (
		patterns []string
		literals []string
	)

	for _, c := range pl.Clauses {
		if c.Kind == plan.ClauseWildcard {
			patterns = append(patterns, c.Pattern)
			continue
		}

		literals = append(literals, c.Literal)
	}

	matched, err := e.st.MatchingTerms(ctx, patterns)
	if err != nil {
		return nil, nil, storeErr(err)
	}

	wildcardDF := make(map[int]int)

	for i, c := range pl.Clauses {
		if c.Kind != plan.ClauseWildcard {
			continue
		}

		count, err := e.st.DocumentCountForTerms(ctx, matched[c.Pattern])
		if err != nil {
			return nil, nil, storeErr(err)
		}

		wildcardDF[i] = count
	}

	termDF, err := e.st.TermDocumentFrequencies(ctx, literals)
	if err != nil {
		return nil, nil, storeErr(err)
	}

	candidates := literals

	for _, terms := range matched {
		candidates = append(candidates, terms...)
	}

	return rank.ComputeWeights(pl, n, termDF, wildcardDF), dedupe(candidates), nil
}

func scoreCandidates(pl plan.Plan, w rank.Weights, docs []docmodel.Document, postings map[int64][]store.PostingTerm) []rank.Result {
	var results []rank.Result

	for _, doc := range docs {
		pts := postings[doc.ID]

		rps := make([]rank.Posting, len(pts))
		for i, pt := range pts {
			rps[i] = rank.Posting{Term: pt.Term, Relevance: pt.Relevance}
		}

		if res, ok := rank.Score(pl, w, doc, rps); ok {
			results = append(results, res)
		}
	}

	return results
}

func paginate(results []rank.Result, limit, offset int) []rank.Result {
	if offset > 0 {
		if offset >= len(results) {
			return nil
		}

		results = results[offset:]
	}

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}

	return results
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))

	out := make([]string, 0, len(in))

	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}

		out = append(out, s)
	}

	return out
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", errs.ErrStoreFailure, err)
}
