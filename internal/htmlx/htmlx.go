// Package htmlx implements the HTML-cleaning stage of the indexing
// pipeline: stripping non-indexable regions and extracting the
// title/description/keywords/body text that makes up a document's
// indexed text.
package htmlx

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mroidx/searchcore/internal/docmodel"
	"github.com/mroidx/searchcore/internal/logx"
)

const (
	stopMarker = "<!-- indexer::stop -->"
	contMarker = "<!-- indexer::continue -->"
)

var (
	headSplitRe    = regexp.MustCompile(`(?i)</head>`)
	brRe           = regexp.MustCompile(`(?i)<br`)
	tagRe          = regexp.MustCompile(`<[^>]*>`)
	titleAltAttrRe = regexp.MustCompile(`(?i)\b(?:title|alt)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// IndexHook is the collaborator interface invoked between comment-marker
// stripping and the head/body split: it may mutate the cleaned content
// and the document's access groups before extraction continues. Hooks
// registered on an HtmlExtractor run synchronously, in registration
// order, and must not assume a surrounding transaction (they run before
// the write lock is acquired).
type IndexHook interface {
	OnIndex(text *string, meta docmodel.PageMeta, groups *[]string)
}

// HtmlExtractor strips non-indexable regions from raw HTML and extracts
// the structured fields indexPage needs.
type HtmlExtractor struct {
	hooks []IndexHook
}

// New creates an HtmlExtractor with the given hooks, called in the order
// given on every Extract call.
func New(hooks ...IndexHook) *HtmlExtractor {
	return &HtmlExtractor{hooks: hooks}
}

// Extract runs the full HTML-cleaning pipeline over rawHTML, returning
// the structured page the indexer builds a document from. meta.Groups
// may be mutated by a registered hook.
func (e *HtmlExtractor) Extract(meta *docmodel.PageMeta, rawHTML string) docmodel.ExtractedPage {
	cleaned := normalizeWhitespaceEntities(rawHTML)
	cleaned = stripBlock(cleaned, "<script", "</script>")
	cleaned = stripBlock(cleaned, "<style", "</style>")
	cleaned = stripIndexerMarkers(cleaned)

	for _, h := range e.hooks {
		h.OnIndex(&cleaned, *meta, &meta.Groups)
	}

	head, body := splitHeadBody(cleaned)

	description, keywords := extractMeta(head)
	keywords = appendAltTitleKeywords(keywords, body)

	bodyText := extractBodyText(body)

	text := strings.Join([]string{meta.Title, description, bodyText, keywords}, " ")
	text = collapseSpaces(html.UnescapeString(text))

	filesize := meta.Filesize
	if filesize == "" {
		filesize = formatFilesizeKB(len(rawHTML))
	}

	return docmodel.ExtractedPage{
		Text:        text,
		Description: description,
		Keywords:    keywords,
		Filesize:    filesize,
	}
}

// normalizeWhitespaceEntities collapses newlines, tabs and a handful of
// named whitespace entities to a single space, and deletes soft hyphens
// outright.
func normalizeWhitespaceEntities(s string) string {
	replacer := strings.NewReplacer(
		"\n", " ",
		"\r", " ",
		"\t", " ",
		"&#160;", " ",
		"&nbsp;", " ",
		"&shy;", "",
	)
	return replacer.Replace(s)
}

// stripBlock iteratively removes every openTag...closeTag block,
// replacing each removed block with a single space so words on either
// side of the removed region don't concatenate. If an openTag occurrence
// has no matching closeTag, stripping stops there and the remainder is
// kept verbatim: the region is logged and left in place rather than
// failing the whole extraction.
func stripBlock(s, openTag, closeTag string) string {
	lower := strings.ToLower(s)
	openLower := strings.ToLower(openTag)
	closeLower := strings.ToLower(closeTag)

	var b strings.Builder

	pos := 0
	for {
		idx := strings.Index(lower[pos:], openLower)
		if idx < 0 {
			b.WriteString(s[pos:])
			break
		}

		start := pos + idx

		closeIdx := strings.Index(lower[start:], closeLower)
		if closeIdx < 0 {
			logx.Warn("malformed html: unterminated block, leaving remainder verbatim", map[string]any{
				"open_tag": openTag,
			})
			b.WriteString(s[pos:])

			break
		}

		end := start + closeIdx + len(closeTag)
		b.WriteString(s[pos:start])
		b.WriteString(" ")
		pos = end
	}

	return b.String()
}

// stripIndexerMarkers iteratively removes regions bracketed by
// "<!-- indexer::stop -->" and "<!-- indexer::continue -->".
// The markers nest: scanning for the match of an outer stop, a further
// stop encountered first means the next continue closes that inner
// region, not ours, so we keep searching past it. An unterminated stop
// (depth never returns to zero) ends marker stripping: everything from
// that stop to the end of the input is kept verbatim.
func stripIndexerMarkers(s string) string {
	var b strings.Builder

	pos := 0
	for {
		stopIdx := strings.Index(s[pos:], stopMarker)
		if stopIdx < 0 {
			b.WriteString(s[pos:])
			break
		}

		start := pos + stopIdx
		b.WriteString(s[pos:start])

		end, matched := matchIndexerRegion(s, start+len(stopMarker))
		if !matched {
			logx.Warn("malformed html: unterminated indexer::stop, leaving remainder verbatim", nil)
			b.WriteString(s[start:])

			break
		}

		b.WriteString(" ")
		pos = end
	}

	return b.String()
}

// matchIndexerRegion scans forward from searchFrom counting nested
// stop/continue markers, returning the end offset of the continue marker
// that brings the nesting depth back to zero, and whether one was found.
func matchIndexerRegion(s string, searchFrom int) (end int, matched bool) {
	depth := 1
	pos := searchFrom

	for {
		nextStop := indexFrom(s, stopMarker, pos)
		nextCont := indexFrom(s, contMarker, pos)

		switch {
		case nextCont < 0:
			return 0, false
		case nextStop >= 0 && nextStop < nextCont:
			depth++
			pos = nextStop + len(stopMarker)
		default:
			depth--
			pos = nextCont + len(contMarker)

			if depth == 0 {
				return pos, true
			}
		}
	}
}

func indexFrom(s, substr string, from int) int {
	idx := strings.Index(s[from:], substr)
	if idx < 0 {
		return -1
	}

	return from + idx
}

// splitHeadBody splits at the first </head>.
func splitHeadBody(s string) (head, body string) {
	loc := headSplitRe.FindStringIndex(s)
	if loc == nil {
		return "", s
	}

	return s[:loc[0]], s[loc[1]:]
}

// extractMeta pulls the content attribute of <meta name="description">
// and <meta name="keywords"> out of the head
// fragment, case-insensitively, entity-decoded and whitespace-collapsed.
// goquery (backed by golang.org/x/net/html) decodes entities in
// attribute values as part of parsing, which covers the entity-decoding
// requirement without a second pass.
func extractMeta(head string) (description, keywords string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<head>" + head + "</head>"))
	if err != nil {
		logx.Warn("malformed html: could not parse head fragment", map[string]any{"error": err.Error()})
		return "", ""
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")

		content, ok := s.Attr("content")
		if !ok {
			return
		}

		switch strings.ToLower(strings.TrimSpace(name)) {
		case "description":
			description = collapseSpaces(content)
		case "keywords":
			keywords = collapseSpaces(content)
		}
	})

	return description, keywords
}

// appendAltTitleKeywords extracts every title="…" and alt="…" attribute
// value from the body fragment in document order, dedupes them, and
// appends them to keywords.
func appendAltTitleKeywords(keywords, body string) string {
	matches := titleAltAttrRe.FindAllStringSubmatch(body, -1)

	seen := make(map[string]struct{}, len(matches))

	extra := make([]string, 0, len(matches))

	for _, m := range matches {
		// Entity decoding happens once, on the final joined text.
		val := m[1]
		if val == "" {
			val = m[2]
		}

		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}

		if _, dup := seen[val]; dup {
			continue
		}

		seen[val] = struct{}{}

		extra = append(extra, val)
	}

	if len(extra) == 0 {
		return keywords
	}

	joined := strings.Join(extra, ", ")
	if keywords == "" {
		return joined
	}

	return keywords + ", " + joined
}

// extractBodyText inserts a space before every <br and between adjacent
// "><", then strips all remaining tags to yield plain text.
func extractBodyText(body string) string {
	s := brRe.ReplaceAllString(body, " <br")
	s = strings.ReplaceAll(s, "><", "> <")
	s = tagRe.ReplaceAllString(s, "")

	return s
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// formatFilesizeKB formats the rawHTML length in KB, two decimal places.
func formatFilesizeKB(byteLen int) string {
	return fmt.Sprintf("%.2f", float64(byteLen)/1024)
}
