// Package query implements the query language parser: chunking a raw
// query string into phrases, wildcards, plain terms, required and
// excluded clauses, ready for the planner to turn into an evaluation
// plan.
package query

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/mroidx/searchcore/internal/errs"
	"github.com/mroidx/searchcore/internal/tokenize"
)

// Phrase is a quoted clause: the tokenized words (for recall, i.e.
// finding candidate documents via postings) and a regex pattern built
// from the same words for verifying the phrase actually occurs in a
// document's text.
type Phrase struct {
	Words   []string
	Pattern string
}

// Parsed is the structured result of parsing a query string.
type Parsed struct {
	Phrases   []Phrase
	Plains    []string
	Wildcards []string
	Required  []string
	Excluded  []string
	OrSearch  bool
}

// Options configures parsing, mirroring searchFor's query knobs.
type Options struct {
	Locale    language.Tag
	MinLength int
	Fuzzy     bool
	OrSearch  bool
}

// Parse chunks and classifies a raw query string. It returns
// errs.ErrEmptyQuery if the query is blank after trimming.
func Parse(raw string, opts Options) (Parsed, error) {
	if strings.TrimSpace(raw) == "" {
		return Parsed{}, errs.ErrEmptyQuery
	}

	p := Parsed{OrSearch: opts.OrSearch}

	for _, chunk := range splitChunks(raw) {
		classify(chunk, opts, &p)
	}

	dedupe(&p)

	if opts.Fuzzy {
		applyFuzzy(&p)
	}

	return p, nil
}

// splitChunks breaks a query string on whitespace, treating a
// double-quoted run (including embedded whitespace) as a single chunk.
func splitChunks(raw string) []string {
	var chunks []string

	i, n := 0, len(raw)

	for i < n {
		for i < n && isSpace(raw[i]) {
			i++
		}

		if i >= n {
			break
		}

		if raw[i] == '"' {
			j := i + 1
			for j < n && raw[j] != '"' {
				j++
			}

			if j < n {
				j++
			}

			chunks = append(chunks, raw[i:j])
			i = j

			continue
		}

		j := i
		for j < n && !isSpace(raw[j]) {
			j++
		}

		chunks = append(chunks, raw[i:j])
		i = j
	}

	return chunks
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// classify buckets one chunk by its shape, checked in order: trailing
// wildcard, phrase, required, excluded, leading wildcard, plain.
func classify(chunk string, opts Options, p *Parsed) {
	switch {
	case len(chunk) > 1 && strings.HasSuffix(chunk, "*"):
		p.Wildcards = append(p.Wildcards, toLikePattern(chunk))
	case strings.HasPrefix(chunk, `"`):
		if ph, ok := buildPhrase(chunk, opts.Locale); ok {
			p.Phrases = append(p.Phrases, ph)
		}
	case strings.HasPrefix(chunk, "+"):
		p.Required = append(p.Required, tokenize.Tokenize(chunk[1:], opts.Locale)...)
	case strings.HasPrefix(chunk, "-"):
		p.Excluded = append(p.Excluded, tokenize.Tokenize(chunk[1:], opts.Locale)...)
	case strings.HasPrefix(chunk, "*"):
		p.Wildcards = append(p.Wildcards, toLikePattern(chunk))
	default:
		for _, w := range tokenize.Tokenize(chunk, opts.Locale) {
			if len(w) < opts.MinLength {
				continue
			}

			p.Plains = append(p.Plains, w)
		}
	}
}

func toLikePattern(chunk string) string {
	return strings.ReplaceAll(chunk, "*", "%")
}

func buildPhrase(chunk string, locale language.Tag) (Phrase, bool) {
	content := strings.Trim(chunk, `"`)

	words := tokenize.Tokenize(content, locale)
	if len(words) == 0 {
		return Phrase{}, false
	}

	return Phrase{
		Words:   words,
		Pattern: strings.Join(words, `[^[:alnum:]]+`),
	}, true
}

// applyFuzzy implements the fuzzy override: every plain term becomes a
// "%term%" wildcard and the plain list is cleared. Requireds are
// untouched, which is an intentional, documented asymmetry -- see
// DESIGN.md.
func applyFuzzy(p *Parsed) {
	for _, term := range p.Plains {
		p.Wildcards = append(p.Wildcards, "%"+term+"%")
	}

	p.Plains = nil

	p.Wildcards = dedupeStrings(p.Wildcards)
}

func dedupe(p *Parsed) {
	p.Plains = dedupeStrings(p.Plains)
	p.Wildcards = dedupeStrings(p.Wildcards)
	p.Required = dedupeStrings(p.Required)
	p.Excluded = dedupeStrings(p.Excluded)
	p.Phrases = dedupePhrases(p.Phrases)
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}

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

func dedupePhrases(in []Phrase) []Phrase {
	if len(in) == 0 {
		return in
	}

	seen := make(map[string]struct{}, len(in))

	out := make([]Phrase, 0, len(in))

	for _, ph := range in {
		if _, ok := seen[ph.Pattern]; ok {
			continue
		}

		seen[ph.Pattern] = struct{}{}

		out = append(out, ph)
	}

	return out
}
