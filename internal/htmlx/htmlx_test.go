package htmlx

import (
	"strings"
	"testing"

	"github.com/mroidx/searchcore/internal/docmodel"
)

func extractBody(t *testing.T, raw string) string {
	t.Helper()

	e := New()
	meta := &docmodel.PageMeta{Title: ""}
	page := e.Extract(meta, raw)

	return page.Text
}

func TestExtractStripsScriptBlock(t *testing.T) {
	got := extractBody(t, "<p>Hi<script>x</script>there</p>")
	if got != "Hi there" {
		t.Fatalf("got %q, want %q", got, "Hi there")
	}
}

func TestExtractStripsNestedIndexerMarkers(t *testing.T) {
	raw := "<p>A<!-- indexer::stop -->B<!-- indexer::stop -->C<!-- indexer::continue -->" +
		"D<!-- indexer::continue -->E</p>"

	got := extractBody(t, raw)
	if got != "A E" {
		t.Fatalf("got %q, want %q", got, "A E")
	}
}

func TestExtractStripsUnterminatedScriptVerbatim(t *testing.T) {
	got := extractBody(t, "<p>Hi<script>there is no closing tag")
	if !strings.Contains(got, "Hi") {
		t.Fatalf("expected remainder kept verbatim, got %q", got)
	}

	if !strings.Contains(got, "there is no closing tag") {
		t.Fatalf("expected remainder kept verbatim, got %q", got)
	}
}

func TestExtractCollectsAltAndTitleAttributesInOrder(t *testing.T) {
	got := extractBody(t, `<p><img alt="cat" title="pet"></p>`)
	if !strings.Contains(got, "cat") || !strings.Contains(got, "pet") {
		t.Fatalf("expected keywords to contain cat and pet, got %q", got)
	}

	if strings.Index(got, "cat") > strings.Index(got, "pet") {
		t.Fatalf("expected cat before pet (document order), got %q", got)
	}
}

func TestExtractPullsMetaDescriptionAndKeywords(t *testing.T) {
	raw := `<head><meta name="description" content="a nice page">` +
		`<meta name="keywords" content="alpha, beta"></head><body>hello</body>`

	e := New()
	meta := &docmodel.PageMeta{Title: "Title"}
	page := e.Extract(meta, raw)

	if page.Description != "a nice page" {
		t.Fatalf("got description %q", page.Description)
	}

	if page.Keywords != "alpha, beta" {
		t.Fatalf("got keywords %q", page.Keywords)
	}

	if !strings.Contains(page.Text, "hello") {
		t.Fatalf("expected body text in final text, got %q", page.Text)
	}
}

func TestExtractDefaultsFilesizeFromRawLength(t *testing.T) {
	e := New()
	meta := &docmodel.PageMeta{}
	raw := strings.Repeat("a", 2048)
	page := e.Extract(meta, raw)

	if page.Filesize != "2.00" {
		t.Fatalf("got filesize %q, want %q", page.Filesize, "2.00")
	}
}

func TestExtractRespectsCallerSuppliedFilesize(t *testing.T) {
	e := New()
	meta := &docmodel.PageMeta{Filesize: "9.99"}
	page := e.Extract(meta, "<p>hi</p>")

	if page.Filesize != "9.99" {
		t.Fatalf("got filesize %q, want caller-supplied 9.99", page.Filesize)
	}
}

type recordingHook struct {
	called bool
	seen   string
}

func (h *recordingHook) OnIndex(text *string, _ docmodel.PageMeta, groups *[]string) {
	h.called = true
	h.seen = *text
	*groups = append(*groups, "hooked")
}

func TestExtractRunsHooksBetweenMarkerStripAndSplit(t *testing.T) {
	hook := &recordingHook{}
	e := New(hook)
	meta := &docmodel.PageMeta{}
	e.Extract(meta, "<p>hello</p>")

	if !hook.called {
		t.Fatalf("expected hook to run")
	}

	if !strings.Contains(hook.seen, "hello") {
		t.Fatalf("expected hook to see cleaned content, got %q", hook.seen)
	}

	if len(meta.Groups) != 1 || meta.Groups[0] != "hooked" {
		t.Fatalf("expected hook to mutate groups, got %v", meta.Groups)
	}
}
