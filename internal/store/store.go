// Package store defines the persistence interface the indexer and query
// engine share: parameterized query execution, bulk upsert with
// on-conflict semantics, atomic write-lock acquisition and the read
// surface ranked queries scan. internal/index and internal/search
// depend only on this interface; the Postgres implementation in this
// package and internal/memstore are the two implementations.
package store

import (
	"context"

	"github.com/mroidx/searchcore/internal/docmodel"
)

// WriteTx is the exclusive write-lock scope: every method on it
// participates in one atomic unit, held for the locked portion of an
// indexPage call or the whole of a removeEntry. A WriteTx must be ended
// with exactly one call to Commit or Rollback.
type WriteTx interface {
	// FindByChecksumPIDURL looks up a live document by the exact triple
	// the early-out dedupe checks before indexing.
	FindByChecksumPIDURL(ctx context.Context, checksum string, pid int64, url string) (docmodel.Document, bool, error)

	// FindByChecksumPID looks up a live document sharing (checksum, pid)
	// regardless of URL, for the canonical-URL dedupe.
	FindByChecksumPID(ctx context.Context, checksum string, pid int64) (docmodel.Document, bool, error)

	// FindByURL looks up a live document by its unique URL, for the
	// update-in-place path of a re-index.
	FindByURL(ctx context.Context, url string) (docmodel.Document, bool, error)

	// UpsertDocument inserts doc if it has no ID yet, or updates the row
	// with ID == doc.ID in place, returning the row's id.
	UpsertDocument(ctx context.Context, doc docmodel.Document) (int64, error)

	// DeleteDocument removes the document row with the given id. It does
	// not touch postings or terms; callers sequence those separately.
	DeleteDocument(ctx context.Context, id int64) error

	// PostingsForDocument returns every posting currently linked to docID.
	PostingsForDocument(ctx context.Context, docID int64) ([]docmodel.Posting, error)

	// DeletePostingsForDocument deletes every posting linked to docID.
	DeletePostingsForDocument(ctx context.Context, docID int64) error

	// DecrementTermFrequencies applies max(1, df) - 1 to each named
	// term's documentFrequency, so a corrupt counter can never underflow.
	DecrementTermFrequencies(ctx context.Context, termIDs []int64) error

	// UpsertTerms bulk-inserts each distinct surface form with
	// documentFrequency = 1, or increments the existing row's count by 1
	// on conflict, returning term -> id for every input.
	UpsertTerms(ctx context.Context, terms []string) (map[string]int64, error)

	// DeleteZeroFrequencyTerms purges every term whose documentFrequency
	// has reached zero.
	DeleteZeroFrequencyTerms(ctx context.Context) error

	// InsertPostings bulk-inserts (docID, termID, tf) rows.
	InsertPostings(ctx context.Context, docID int64, tf map[int64]int) error

	// CorpusSize returns the current live document count, captured once
	// at the start of a vector-length refresh.
	CorpusSize(ctx context.Context) (int, error)

	// DocumentIDRange returns the minimum and maximum live document id,
	// the bounds the vector-length refresh samples within. ok is false
	// if there are no live documents.
	DocumentIDRange(ctx context.Context) (min int64, max int64, ok bool, err error)

	// AllDocumentIDs returns every live document id, used when the corpus
	// is small enough that the refresh walks it whole instead of sampling.
	AllDocumentIDs(ctx context.Context) ([]int64, error)

	// DocumentByID fetches one live document's row by id, for vector
	// length recomputation.
	DocumentByID(ctx context.Context, id int64) (docmodel.Document, bool, error)

	// SetVectorLength persists the recomputed vectorLength for a document.
	SetVectorLength(ctx context.Context, docID int64, length float64) error

	// TermDocumentFrequencies returns documentFrequency for every named
	// term currently in the dictionary; absent terms are simply omitted
	// from the result (callers treat that as df=0, per rank.ComputeWeights'
	// max(1,0) floor).
	TermDocumentFrequencies(ctx context.Context, terms []string) (map[string]int, error)

	// TermDocumentFrequenciesByID is TermDocumentFrequencies keyed by term
	// id rather than surface form, used by the vector-length refresh,
	// which only has postings' term ids on hand.
	TermDocumentFrequenciesByID(ctx context.Context, termIDs []int64) (map[int64]int, error)

	// Commit ends the write transaction successfully and releases the
	// write lock.
	Commit() error

	// Rollback aborts the write transaction, undoing every change made
	// through it, and releases the write lock.
	Rollback() error
}

// Store is the full collaborator surface: exclusive writes via BeginWrite,
// plus read-only operations that never block a writer or another reader.
type Store interface {
	// BeginWrite acquires the corpus-wide exclusive write lock and
	// returns a transaction scope bound to it. The caller must Commit or
	// Rollback exactly once.
	BeginWrite(ctx context.Context) (WriteTx, error)

	// FindByChecksumPIDURL is the lock-free early-out dedupe lookup, run
	// before any write lock is taken.
	FindByChecksumPIDURL(ctx context.Context, checksum string, pid int64, url string) (docmodel.Document, bool, error)

	// CorpusSize returns the current live document count N, for IDF
	// computation during a query.
	CorpusSize(ctx context.Context) (int, error)

	// TermDocumentFrequencies returns documentFrequency for every named
	// term, for exact-clause IDF weights.
	TermDocumentFrequencies(ctx context.Context, terms []string) (map[string]int, error)

	// MatchingTerms returns every dictionary term matching any of the
	// given LIKE-style patterns ('%'-wildcarded), grouped by the pattern
	// that matched it, for the wildcard document-count precomputation and
	// candidate-term retrieval.
	MatchingTerms(ctx context.Context, patterns []string) (map[string][]string, error)

	// DocumentCountForTerms returns the number of distinct live documents
	// containing at least one of the named terms, the per-wildcard
	// document count the ranker weighs patterns by.
	DocumentCountForTerms(ctx context.Context, terms []string) (int, error)

	// CandidateDocuments returns every live document containing at least
	// one of the named terms (the exact literals of wildcard/plain/
	// required/excluded/phrase-word clauses), restricted to pids if
	// non-empty, together with each candidate's postings, joined against
	// the term dictionary so callers see surface forms rather than term
	// ids.
	CandidateDocuments(ctx context.Context, terms []string, pids []int64) ([]docmodel.Document, map[int64][]PostingTerm, error)
}

// PostingTerm is one (term, frequency) pair for a candidate document,
// joined against the term dictionary so the ranker never has to resolve
// term ids itself.
type PostingTerm struct {
	Term      string
	Relevance int
}
