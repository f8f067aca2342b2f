// Package tokenize implements locale-aware word segmentation used by both
// the indexer (to build term-frequency maps) and the query parser (to
// tokenize plain/phrase/required/excluded clauses).
package tokenize

import (
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tokenize breaks text into a case-folded, order-preserving sequence of
// word segments for the given locale tag. Duplicates are retained; the
// caller is responsible for counting term frequencies. Segmentation
// itself follows the Unicode UAX #29 word-boundary algorithm (via
// uniseg), which is locale-invariant; locale only tailors the case
// folding step, via golang.org/x/text/cases (e.g. Turkish "İ"/"i"
// dotted/dotless folding). See DESIGN.md for why this is not a full
// ICU-style locale-tailored segmenter.
func Tokenize(text string, locale language.Tag) []string {
	folder := cases.Lower(locale)

	var terms []string

	state := -1
	remaining := text

	for len(remaining) > 0 {
		var segment string

		segment, remaining, state = uniseg.FirstWordInString(remaining, state)
		if segment == "" {
			break
		}

		if !isWordSegment(segment) {
			continue
		}

		terms = append(terms, folder.String(segment))
	}

	return terms
}

// ParseLocale parses a locale tag, returning errs.ErrUnknownLocale
// (via the caller, which checks the error) when it cannot construct a
// segmenter for the requested locale. An empty string defaults to
// language.Und, which uniseg and x/text/cases both handle as the
// locale-neutral default.
func ParseLocale(locale string) (language.Tag, error) {
	if locale == "" {
		return language.Und, nil
	}
	return language.Parse(locale)
}

// isWordSegment classifies a UAX #29 segment as a "word" iff it contains
// at least one letter, digit or combining mark -- whitespace runs,
// punctuation runs and script-specific delimiters contain none of these
// and are dropped.
func isWordSegment(segment string) bool {
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			return true
		}
	}
	return false
}
