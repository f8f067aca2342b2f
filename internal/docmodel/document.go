// Package docmodel defines the persistent domain types shared across the
// indexer and query engine: documents, terms and postings.
package docmodel

import (
	"strings"
	"time"
)

// Document is one indexed page, backed by the tl_search relation.
type Document struct {
	ID           int64
	PID          int64
	Tstamp       time.Time
	URL          string
	Title        string
	Language     string
	Protected    bool
	Filesize     string
	Groups       []string
	Text         string
	Checksum     string
	VectorLength float64
}

// Term is one distinct surface form ever present in any document, backed
// by the tl_search_term relation.
type Term struct {
	ID                int64
	Term              string
	DocumentFrequency int
}

// Posting is one (document, term) pair currently in the index, backed by
// the tl_search_index relation.
type Posting struct {
	PID       int64
	TermID    int64
	Relevance int
}

// PageMeta carries the per-page metadata supplied by the caller alongside
// raw HTML, independent of anything the HTML itself says.
type PageMeta struct {
	URL       string
	PID       int64
	Title     string
	Language  string
	Protected bool
	Groups    []string
	Filesize  string // optional; computed from raw HTML length if empty
}

// ExtractedPage is the output of the HTML extraction stage: the cleaned,
// concatenated text plus the pieces that went into it.
type ExtractedPage struct {
	Text        string
	Description string
	Keywords    string
	Filesize    string
}

// IndexInput is everything indexPage needs: metadata plus the raw HTML.
type IndexInput struct {
	PageMeta
	RawHTML string
}

// SearchOptions configures one searchFor call: boolean semantics,
// pid scoping, pagination, fuzzy matching and tokenization.
type SearchOptions struct {
	OrSearch  bool
	PIDs      []int64
	Limit     int
	Offset    int
	Fuzzy     bool
	MinLength int
	Locale    string
}

// ResultRow is one ranked document returned by searchFor.
type ResultRow struct {
	Document  Document
	Relevance float64
	Matches   []string // matched surface forms, for highlighting
}

// MatchList returns the matched surface forms as one comma-joined string,
// the form the matches field is exposed in to callers.
func (r ResultRow) MatchList() string {
	return strings.Join(r.Matches, ",")
}

// ResultSet is the full ranked, paginated output of searchFor.
type ResultSet struct {
	Rows  []ResultRow
	Total int
}
