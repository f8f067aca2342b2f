// Package index implements the indexer: the indexPage orchestration
// (dedupe, upsert, term/posting maintenance, vector-length refresh) and
// removeEntry.
package index

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/mroidx/searchcore/internal/docmodel"
	"github.com/mroidx/searchcore/internal/errs"
	"github.com/mroidx/searchcore/internal/htmlx"
	"github.com/mroidx/searchcore/internal/logx"
	"github.com/mroidx/searchcore/internal/store"
	"github.com/mroidx/searchcore/internal/tokenize"
	"github.com/mroidx/searchcore/internal/urlrank"
)

// fullScanThreshold is the corpus size at or below which the
// vector-length refresh recomputes every document instead of sampling.
const fullScanThreshold = 200

// Indexer orchestrates a single indexPage/removeEntry call across the
// HTML extractor, tokenizer and Store.
type Indexer struct {
	extractor *htmlx.HtmlExtractor
	st        store.Store
}

// New creates an Indexer over the given extractor and store.
func New(extractor *htmlx.HtmlExtractor, st store.Store) *Indexer {
	return &Indexer{extractor: extractor, st: st}
}

// IndexPage cleans, deduplicates and indexes one page. It returns true
// iff a new document row was inserted; re-indexing unchanged content or
// re-linking the same content to a better URL both return false.
func (ix *Indexer) IndexPage(ctx context.Context, in docmodel.IndexInput) (bool, error) {
	reqLog := logx.WithRequestID(uuid.New())

	locale, err := tokenize.ParseLocale(in.Language)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", errs.ErrUnknownLocale, in.Language, err)
	}

	meta := in.PageMeta
	extracted := ix.extractor.Extract(&meta, in.RawHTML) // hook runs inside Extract, before the write lock

	checksum := textChecksum(extracted.Text)

	if _, found, err := ix.st.FindByChecksumPIDURL(ctx, checksum, meta.PID, meta.URL); err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrStoreFailure, err)
	} else if found {
		reqLog.Debug().Str("url", meta.URL).Msg("indexPage: unchanged, skipping")
		return false, nil
	}

	tx, err := ix.st.BeginWrite(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrStoreFailure, err)
	}

	inserted, err := ix.indexPageLocked(ctx, tx, meta, extracted, checksum, locale)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			reqLog.Error().Err(rbErr).Msg("indexPage: rollback failed")
		}

		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrStoreFailure, err)
	}

	return inserted, nil
}

func (ix *Indexer) indexPageLocked(ctx context.Context, tx store.WriteTx, meta docmodel.PageMeta, extracted docmodel.ExtractedPage, checksum string, locale language.Tag) (bool, error) {
	doc := docmodel.Document{
		PID:       meta.PID,
		URL:       meta.URL,
		Title:     meta.Title,
		Language:  meta.Language,
		Protected: meta.Protected,
		Groups:    meta.Groups,
		Filesize:  extracted.Filesize,
		Text:      extracted.Text,
		Checksum:  checksum,
	}

	// Canonical-URL dedupe against a different URL sharing (checksum, pid).
	if existing, found, err := tx.FindByChecksumPID(ctx, checksum, meta.PID); err != nil {
		return false, storeErr(err)
	} else if found && existing.URL != meta.URL {
		// Re-linking the same content to a better URL never counts as a
		// new insert, so this path reports false either way.
		if urlrank.MoreCanonical(meta.URL, existing.URL) {
			if err := ix.removeEntryLocked(ctx, tx, existing.URL); err != nil {
				return false, err
			}

			if _, err := ix.upsertDocumentAndPostings(ctx, tx, doc, locale); err != nil {
				return false, err
			}
		}

		return false, nil
	}

	// Update in place if this exact URL already has a live row.
	if existing, found, err := tx.FindByURL(ctx, meta.URL); err != nil {
		return false, storeErr(err)
	} else if found {
		doc.ID = existing.ID
		return ix.upsertDocumentAndPostings(ctx, tx, doc, locale)
	}

	return ix.upsertDocumentAndPostings(ctx, tx, doc, locale)
}

// upsertDocumentAndPostings writes the document row, its term rows and
// postings once the target row (new or existing) has been identified.
func (ix *Indexer) upsertDocumentAndPostings(ctx context.Context, tx store.WriteTx, doc docmodel.Document, locale language.Tag) (bool, error) {
	isNew := doc.ID == 0

	if !isNew {
		// Decrement df for every term currently posted against this
		// document (floor-before-subtract), then drop its postings.
		postings, err := tx.PostingsForDocument(ctx, doc.ID)
		if err != nil {
			return false, storeErr(err)
		}

		termIDs := make([]int64, len(postings))
		for i, p := range postings {
			termIDs[i] = p.TermID
		}

		if err := tx.DecrementTermFrequencies(ctx, termIDs); err != nil {
			return false, storeErr(err)
		}

		if err := tx.DeletePostingsForDocument(ctx, doc.ID); err != nil {
			return false, storeErr(err)
		}
	}

	docID, err := tx.UpsertDocument(ctx, doc)
	if err != nil {
		return false, storeErr(err)
	}

	// Tokenize and build the term-frequency map.
	tf := termFrequencies(tokenize.Tokenize(doc.Text, locale))

	terms := make([]string, 0, len(tf))
	for term := range tf {
		terms = append(terms, term)
	}

	// Bulk upsert every surface form (insert df=1, or +1 on conflict).
	termIDs, err := tx.UpsertTerms(ctx, terms)
	if err != nil {
		return false, storeErr(err)
	}

	// Purge any term whose df reached zero (from the decrement above,
	// for terms no longer present in this document's new text).
	if err := tx.DeleteZeroFrequencyTerms(ctx); err != nil {
		return false, storeErr(err)
	}

	// Bulk-insert this document's postings.
	postingTF := make(map[int64]int, len(tf))
	for term, count := range tf {
		if id, ok := termIDs[term]; ok {
			postingTF[id] = count
		}
	}

	if err := tx.InsertPostings(ctx, docID, postingTF); err != nil {
		return false, storeErr(err)
	}

	// Vector-length refresh, best-effort: a failure here must not roll
	// back the document write.
	if err := ix.refreshVectorLengths(ctx, tx, docID); err != nil {
		logx.Warn("vector length refresh failed, leaving stale lengths", map[string]any{"error": err.Error(), "doc_id": docID})
	}

	return isNew, nil
}

// RemoveEntry drops a document by URL: decrement df for every term in
// its postings, delete the document and its postings, and purge any term
// whose df reached zero. Callable outside a surrounding lock; it
// acquires the write lock itself.
func (ix *Indexer) RemoveEntry(ctx context.Context, url string) error {
	tx, err := ix.st.BeginWrite(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStoreFailure, err)
	}

	if err := ix.removeEntryLocked(ctx, tx, url); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStoreFailure, err)
	}

	return nil
}

func (ix *Indexer) removeEntryLocked(ctx context.Context, tx store.WriteTx, url string) error {
	doc, found, err := tx.FindByURL(ctx, url)
	if err != nil {
		return storeErr(err)
	}

	if !found {
		return nil
	}

	postings, err := tx.PostingsForDocument(ctx, doc.ID)
	if err != nil {
		return storeErr(err)
	}

	termIDs := make([]int64, len(postings))
	for i, p := range postings {
		termIDs[i] = p.TermID
	}

	if err := tx.DecrementTermFrequencies(ctx, termIDs); err != nil {
		return storeErr(err)
	}

	if err := tx.DeletePostingsForDocument(ctx, doc.ID); err != nil {
		return storeErr(err)
	}

	if err := tx.DeleteDocument(ctx, doc.ID); err != nil {
		return storeErr(err)
	}

	if err := tx.DeleteZeroFrequencyTerms(ctx); err != nil {
		return storeErr(err)
	}

	return nil
}

// refreshVectorLengths recomputes cached vector lengths: always for the
// just-indexed document, plus either the whole corpus (when small) or
// ~100 ids sampled uniformly from [minID, maxID], so staleness washes
// out across writes without any write paying for a full scan.
func (ix *Indexer) refreshVectorLengths(ctx context.Context, tx store.WriteTx, justIndexed int64) error {
	corpus, err := tx.CorpusSize(ctx)
	if err != nil {
		return storeErr(err)
	}

	// The IDF factor uses corpusCount + 1, captured once for the whole
	// refresh; the sample-size bound below uses the plain corpus count.
	n := corpus + 1

	targets := map[int64]struct{}{justIndexed: {}}

	if err := addSampledTargets(ctx, tx, corpus, targets); err != nil {
		return err
	}

	for id := range targets {
		_, found, err := tx.DocumentByID(ctx, id)
		if err != nil {
			return storeErr(err)
		}

		if !found {
			continue
		}

		postings, err := tx.PostingsForDocument(ctx, id)
		if err != nil {
			return storeErr(err)
		}

		length, err := vectorLength(ctx, tx, postings, n)
		if err != nil {
			return err
		}

		if err := tx.SetVectorLength(ctx, id, length); err != nil {
			return storeErr(err)
		}
	}

	return nil
}

func addSampledTargets(ctx context.Context, tx store.WriteTx, corpus int, targets map[int64]struct{}) error {
	if corpus <= fullScanThreshold {
		ids, err := tx.AllDocumentIDs(ctx)
		if err != nil {
			return storeErr(err)
		}

		for _, id := range ids {
			targets[id] = struct{}{}
		}

		return nil
	}

	minID, maxID, ok, err := tx.DocumentIDRange(ctx)
	if err != nil {
		return storeErr(err)
	}

	if !ok || maxID <= minID {
		return nil
	}

	want := int((maxID - minID) * 100 / int64(corpus))
	if want < 1 {
		want = 1
	}

	span := maxID - minID + 1

	for len(targets) < want+1 { // +1 accounts for justIndexed already present
		r, err := randomInt64(span)
		if err != nil {
			return storeErr(err)
		}

		targets[minID+r] = struct{}{}

		if len(targets) >= int(span) {
			break // fewer live ids than requested sample size
		}
	}

	return nil
}

// randomInt64 returns a cryptographically unpredictable integer in
// [0, n); predictable sampling would let crafted workloads keep chosen
// documents permanently stale.
func randomInt64(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}

	return v.Int64(), nil
}

// vectorLength computes the Euclidean norm of the document's TF-IDF
// weight vector: sqrt(sum(((1 + log(tf)) * log((N+1)/max(1,df)))^2))
// over its postings.
func vectorLength(ctx context.Context, tx store.WriteTx, postings []docmodel.Posting, n int) (float64, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	var sum float64

	for _, p := range postings {
		df, err := termDF(ctx, tx, p.TermID)
		if err != nil {
			return 0, err
		}

		if df < 1 {
			df = 1
		}

		weight := (1 + math.Log(float64(p.Relevance))) * math.Log(float64(n+1)/float64(df))
		sum += weight * weight
	}

	return math.Sqrt(sum), nil
}

// termDF looks up one term's current documentFrequency by id through the
// write transaction's by-id accessor, one lookup per posting.
func termDF(ctx context.Context, tx store.WriteTx, termID int64) (int, error) {
	freqs, err := tx.TermDocumentFrequenciesByID(ctx, []int64{termID})
	if err != nil {
		return 0, storeErr(err)
	}

	return freqs[termID], nil
}

func termFrequencies(words []string) map[string]int {
	tf := make(map[string]int, len(words))
	for _, w := range words {
		tf[w]++
	}

	return tf
}

// textChecksum fingerprints the cleaned text: MD5 after substituting
// backtick/acute accent with a plain apostrophe, so trivial quote
// variants dedupe to the same content.
func textChecksum(text string) string {
	normalized := strings.NewReplacer("`", "'", "´", "'").Replace(text)
	sum := md5.Sum([]byte(normalized))

	return hex.EncodeToString(sum[:])
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", errs.ErrStoreFailure, err)
}
