// Package errs defines the sentinel error kinds the core surfaces to
// callers, per the error handling design: EmptyQuery and UnknownLocale
// abort before any write lock is taken, StoreFailure wraps any underlying
// I/O error, and MalformedHtml is recovered locally and never returned.
package errs

import "errors"

var (
	// ErrEmptyQuery is returned by searchFor when the query string is
	// blank after decoding.
	ErrEmptyQuery = errors.New("searchcore: empty query")

	// ErrUnknownLocale is returned when the tokenizer cannot construct a
	// word segmenter for the requested locale. Indexing aborts before the
	// write lock is acquired.
	ErrUnknownLocale = errors.New("searchcore: unknown locale")

	// ErrStoreFailure wraps any underlying storage I/O error.
	ErrStoreFailure = errors.New("searchcore: store failure")
)
