// Package memstore is an in-memory store.Store implementation, giving
// component tests (indexer, search) a fast Store without a live
// Postgres.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/mroidx/searchcore/internal/docmodel"
	"github.com/mroidx/searchcore/internal/store"
)

// Store is a mutex-guarded, map-backed implementation of store.Store. A
// single mutex stands in for the Postgres advisory lock: BeginWrite locks
// it for the scope's lifetime, so writes serialize exactly as they do
// against the real store.
type Store struct {
	mu sync.Mutex

	nextDocID  int64
	nextTermID int64

	documents map[int64]docmodel.Document
	terms     map[string]docmodel.Term
	termsByID map[int64]string
	postings  map[int64]map[int64]int // docID -> termID -> relevance
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		documents: make(map[int64]docmodel.Document),
		terms:     make(map[string]docmodel.Term),
		termsByID: make(map[int64]string),
		postings:  make(map[int64]map[int64]int),
	}
}

// BeginWrite locks the store for the duration of the returned scope.
func (s *Store) BeginWrite(ctx context.Context) (store.WriteTx, error) {
	s.mu.Lock()
	return &writeTx{s: s}, nil
}

// FindByChecksumPIDURL is the early-out dedupe lookup run before any
// write lock is acquired. memstore takes its own mutex for the duration
// of the read since there is no separate read-snapshot mechanism, unlike
// Postgres' MVCC reads.
func (s *Store) FindByChecksumPIDURL(ctx context.Context, checksum string, pid int64, url string) (docmodel.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.documents {
		if d.Checksum == checksum && d.PID == pid && d.URL == url {
			return d, true, nil
		}
	}

	return docmodel.Document{}, false, nil
}

func (s *Store) CorpusSize(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.documents), nil
}

func (s *Store) TermDocumentFrequencies(ctx context.Context, terms []string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(terms))

	for _, t := range terms {
		if term, ok := s.terms[t]; ok {
			out[t] = term.DocumentFrequency
		}
	}

	return out, nil
}

func (s *Store) MatchingTerms(ctx context.Context, patterns []string) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string, len(patterns))

	for _, pat := range patterns {
		var matched []string

		for term := range s.terms {
			if likeMatch(term, pat) {
				matched = append(matched, term)
			}
		}

		out[pat] = matched
	}

	return out, nil
}

func (s *Store) DocumentCountForTerms(ctx context.Context, terms []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[int64]struct{}, len(terms))

	for _, t := range terms {
		if term, ok := s.terms[t]; ok {
			want[term.ID] = struct{}{}
		}
	}

	count := 0

	for _, tf := range s.postings {
		for termID := range tf {
			if _, ok := want[termID]; ok {
				count++
				break
			}
		}
	}

	return count, nil
}

func (s *Store) CandidateDocuments(ctx context.Context, terms []string, pids []int64) ([]docmodel.Document, map[int64][]store.PostingTerm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	termSet := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		termSet[t] = struct{}{}
	}

	pidSet := make(map[int64]struct{}, len(pids))
	for _, p := range pids {
		pidSet[p] = struct{}{}
	}

	var docs []docmodel.Document

	out := make(map[int64][]store.PostingTerm)

	for docID, tf := range s.postings {
		doc, ok := s.documents[docID]
		if !ok {
			continue
		}

		if len(pidSet) > 0 {
			if _, allowed := pidSet[doc.PID]; !allowed {
				continue
			}
		}

		var matched []store.PostingTerm

		for termID, relevance := range tf {
			term := s.termsByID[termID]
			if _, want := termSet[term]; want {
				matched = append(matched, store.PostingTerm{Term: term, Relevance: relevance})
			}
		}

		if len(matched) == 0 {
			continue
		}

		docs = append(docs, doc)
		out[docID] = matched
	}

	return docs, out, nil
}

// likeMatch mirrors rank.likeMatch's semantics for '%'-delimited patterns;
// duplicated rather than imported so memstore stays a leaf package.
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

// writeTx implements store.WriteTx over the parent Store's maps, holding
// its mutex for the scope's entire lifetime. Unlike the Postgres
// implementation, mutations apply directly to the parent maps as they
// happen rather than through a staged changeset, so Rollback only
// releases the lock -- it does not undo prior writes within the scope.
// Callers in this module never return an error mid-transaction after a
// mutating call, so this is not observed in practice; a true undo log
// would be needed to lift that assumption.
type writeTx struct {
	s    *Store
	done bool
}

func (w *writeTx) FindByChecksumPIDURL(ctx context.Context, checksum string, pid int64, url string) (docmodel.Document, bool, error) {
	for _, d := range w.s.documents {
		if d.Checksum == checksum && d.PID == pid && d.URL == url {
			return d, true, nil
		}
	}

	return docmodel.Document{}, false, nil
}

func (w *writeTx) FindByChecksumPID(ctx context.Context, checksum string, pid int64) (docmodel.Document, bool, error) {
	for _, d := range w.s.documents {
		if d.Checksum == checksum && d.PID == pid {
			return d, true, nil
		}
	}

	return docmodel.Document{}, false, nil
}

func (w *writeTx) FindByURL(ctx context.Context, url string) (docmodel.Document, bool, error) {
	for _, d := range w.s.documents {
		if d.URL == url {
			return d, true, nil
		}
	}

	return docmodel.Document{}, false, nil
}

func (w *writeTx) UpsertDocument(ctx context.Context, doc docmodel.Document) (int64, error) {
	if doc.ID != 0 {
		w.s.documents[doc.ID] = doc
		return doc.ID, nil
	}

	w.s.nextDocID++
	doc.ID = w.s.nextDocID
	w.s.documents[doc.ID] = doc

	return doc.ID, nil
}

func (w *writeTx) DeleteDocument(ctx context.Context, id int64) error {
	delete(w.s.documents, id)
	return nil
}

func (w *writeTx) PostingsForDocument(ctx context.Context, docID int64) ([]docmodel.Posting, error) {
	var out []docmodel.Posting

	for termID, relevance := range w.s.postings[docID] {
		out = append(out, docmodel.Posting{PID: docID, TermID: termID, Relevance: relevance})
	}

	return out, nil
}

func (w *writeTx) DeletePostingsForDocument(ctx context.Context, docID int64) error {
	delete(w.s.postings, docID)
	return nil
}

func (w *writeTx) DecrementTermFrequencies(ctx context.Context, termIDs []int64) error {
	for _, id := range termIDs {
		term := w.s.termsByID[id]

		t, ok := w.s.terms[term]
		if !ok {
			continue
		}

		df := t.DocumentFrequency
		if df < 1 {
			df = 1
		}

		t.DocumentFrequency = df - 1
		w.s.terms[term] = t
	}

	return nil
}

func (w *writeTx) UpsertTerms(ctx context.Context, terms []string) (map[string]int64, error) {
	out := make(map[string]int64, len(terms))

	for _, name := range terms {
		t, ok := w.s.terms[name]
		if !ok {
			w.s.nextTermID++
			t = docmodel.Term{ID: w.s.nextTermID, Term: name, DocumentFrequency: 1}
			w.s.termsByID[t.ID] = name
		} else {
			t.DocumentFrequency++
		}

		w.s.terms[name] = t
		out[name] = t.ID
	}

	return out, nil
}

func (w *writeTx) DeleteZeroFrequencyTerms(ctx context.Context) error {
	for name, t := range w.s.terms {
		if t.DocumentFrequency <= 0 {
			delete(w.s.terms, name)
			delete(w.s.termsByID, t.ID)
		}
	}

	return nil
}

func (w *writeTx) InsertPostings(ctx context.Context, docID int64, tf map[int64]int) error {
	if len(tf) == 0 {
		return nil
	}

	m, ok := w.s.postings[docID]
	if !ok {
		m = make(map[int64]int, len(tf))
		w.s.postings[docID] = m
	}

	for termID, count := range tf {
		m[termID] = count
	}

	return nil
}

func (w *writeTx) CorpusSize(ctx context.Context) (int, error) {
	return len(w.s.documents), nil
}

func (w *writeTx) DocumentIDRange(ctx context.Context) (int64, int64, bool, error) {
	if len(w.s.documents) == 0 {
		return 0, 0, false, nil
	}

	var min, max int64

	first := true

	for id := range w.s.documents {
		if first {
			min, max = id, id
			first = false

			continue
		}

		if id < min {
			min = id
		}

		if id > max {
			max = id
		}
	}

	return min, max, true, nil
}

func (w *writeTx) AllDocumentIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(w.s.documents))
	for id := range w.s.documents {
		ids = append(ids, id)
	}

	return ids, nil
}

func (w *writeTx) DocumentByID(ctx context.Context, id int64) (docmodel.Document, bool, error) {
	d, ok := w.s.documents[id]
	return d, ok, nil
}

func (w *writeTx) SetVectorLength(ctx context.Context, docID int64, length float64) error {
	d, ok := w.s.documents[docID]
	if !ok {
		return nil
	}

	d.VectorLength = length
	w.s.documents[docID] = d

	return nil
}

func (w *writeTx) TermDocumentFrequencies(ctx context.Context, terms []string) (map[string]int, error) {
	out := make(map[string]int, len(terms))

	for _, t := range terms {
		if term, ok := w.s.terms[t]; ok {
			out[t] = term.DocumentFrequency
		}
	}

	return out, nil
}

func (w *writeTx) TermDocumentFrequenciesByID(ctx context.Context, termIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(termIDs))

	for _, id := range termIDs {
		name, ok := w.s.termsByID[id]
		if !ok {
			continue
		}

		if term, ok := w.s.terms[name]; ok {
			out[id] = term.DocumentFrequency
		}
	}

	return out, nil
}

func (w *writeTx) Commit() error {
	if !w.done {
		w.done = true
		w.s.mu.Unlock()
	}

	return nil
}

func (w *writeTx) Rollback() error {
	if !w.done {
		w.done = true
		w.s.mu.Unlock()
	}

	return nil
}
