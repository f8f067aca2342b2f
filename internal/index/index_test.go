package index

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mroidx/searchcore/internal/docmodel"
	"github.com/mroidx/searchcore/internal/htmlx"
	"github.com/mroidx/searchcore/internal/memstore"
)

func page(url string, pid int64, body string) docmodel.IndexInput {
	return docmodel.IndexInput{
		PageMeta: docmodel.PageMeta{URL: url, PID: pid, Language: "en"},
		RawHTML:  "<html><head></head><body>" + body + "</body></html>",
	}
}

func newIndexer() (*Indexer, *memstore.Store) {
	st := memstore.New()
	return New(htmlx.New(), st), st
}

func TestIndexPageInsertsOnce(t *testing.T) {
	ix, _ := newIndexer()
	ctx := context.Background()

	inserted, err := ix.IndexPage(ctx, page("/a", 1, "the quick brown fox"))
	require.NoError(t, err)
	assert.True(t, inserted)

	// Identical (url, pid, content) is a no-op: the early-out dedupe fires
	// before any write lock is taken.
	again, err := ix.IndexPage(ctx, page("/a", 1, "the quick brown fox"))
	require.NoError(t, err)
	assert.False(t, again)
}

func TestDocumentFrequencyTracksLiveDocuments(t *testing.T) {
	ix, st := newIndexer()
	ctx := context.Background()

	_, err := ix.IndexPage(ctx, page("/a", 1, "quick brown fox"))
	require.NoError(t, err)

	_, err = ix.IndexPage(ctx, page("/b", 1, "quick brown dogs"))
	require.NoError(t, err)

	df, err := st.TermDocumentFrequencies(ctx, []string{"quick", "fox", "dogs"})
	require.NoError(t, err)

	assert.Equal(t, 2, df["quick"])
	assert.Equal(t, 1, df["fox"])
	assert.Equal(t, 1, df["dogs"])

	// Re-indexing /a without "quick" drops its contribution.
	_, err = ix.IndexPage(ctx, page("/a", 1, "slow brown fox"))
	require.NoError(t, err)

	df, err = st.TermDocumentFrequencies(ctx, []string{"quick", "slow"})
	require.NoError(t, err)

	assert.Equal(t, 1, df["quick"])
	assert.Equal(t, 1, df["slow"])
}

func TestTermsWithZeroFrequencyArePurged(t *testing.T) {
	ix, st := newIndexer()
	ctx := context.Background()

	_, err := ix.IndexPage(ctx, page("/a", 1, "ephemeral words"))
	require.NoError(t, err)

	require.NoError(t, ix.RemoveEntry(ctx, "/a"))

	df, err := st.TermDocumentFrequencies(ctx, []string{"ephemeral", "words"})
	require.NoError(t, err)
	assert.Empty(t, df)

	count, err := st.DocumentCountForTerms(ctx, []string{"ephemeral"})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRemoveEntryUnknownURLIsNoOp(t *testing.T) {
	ix, _ := newIndexer()

	require.NoError(t, ix.RemoveEntry(context.Background(), "/never-indexed"))
}

func TestCanonicalURLWinsOnSharedChecksum(t *testing.T) {
	ix, st := newIndexer()
	ctx := context.Background()

	inserted, err := ix.IndexPage(ctx, page("/a?x=1", 1, "same exact content"))
	require.NoError(t, err)
	require.True(t, inserted)

	// Same (checksum, pid) under a more canonical URL: the old row is
	// replaced, not duplicated, and no new insert is reported.
	inserted, err = ix.IndexPage(ctx, page("/a", 1, "same exact content"))
	require.NoError(t, err)
	assert.False(t, inserted)

	checksum := textChecksum("same exact content")

	_, found, err := st.FindByChecksumPIDURL(ctx, checksum, 1, "/a")
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = st.FindByChecksumPIDURL(ctx, checksum, 1, "/a?x=1")
	require.NoError(t, err)
	assert.False(t, found)

	n, err := st.CorpusSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLessCanonicalURLDoesNotReplace(t *testing.T) {
	ix, st := newIndexer()
	ctx := context.Background()

	_, err := ix.IndexPage(ctx, page("/a", 1, "same exact content"))
	require.NoError(t, err)

	inserted, err := ix.IndexPage(ctx, page("/a?x=1", 1, "same exact content"))
	require.NoError(t, err)
	assert.False(t, inserted)

	checksum := textChecksum("same exact content")

	_, found, err := st.FindByChecksumPIDURL(ctx, checksum, 1, "/a")
	require.NoError(t, err)
	assert.True(t, found)

	n, err := st.CorpusSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVectorLengthOfJustIndexedDocument(t *testing.T) {
	ix, st := newIndexer()
	ctx := context.Background()

	_, err := ix.IndexPage(ctx, page("/a", 1, "quick quick brown"))
	require.NoError(t, err)

	checksum := textChecksum("quick quick brown")

	doc, found, err := st.FindByChecksumPIDURL(ctx, checksum, 1, "/a")
	require.NoError(t, err)
	require.True(t, found)

	// Corpus of one document at refresh time, so n = 1 + 1 = 2 and every
	// term has df = 1: weight(quick) = (1 + ln 2) * ln 3, weight(brown) = ln 3.
	wQuick := (1 + math.Log(2)) * math.Log(3)
	wBrown := math.Log(3)
	want := math.Sqrt(wQuick*wQuick + wBrown*wBrown)

	assert.InDelta(t, want, doc.VectorLength, 1e-9)
}

func TestChecksumNormalizesAccents(t *testing.T) {
	assert.Equal(t, textChecksum("it's"), textChecksum("it`s"))
	assert.Equal(t, textChecksum("it's"), textChecksum("it´s"))
	assert.NotEqual(t, textChecksum("it's"), textChecksum("its"))
}

func TestIndexPageUnknownLocaleAborts(t *testing.T) {
	ix, st := newIndexer()
	ctx := context.Background()

	in := page("/a", 1, "some content")
	in.Language = "not a locale!!"

	_, err := ix.IndexPage(ctx, in)
	require.Error(t, err)

	n, err := st.CorpusSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
