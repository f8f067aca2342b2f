package urlrank

import "testing"

func TestCompareQueryString(t *testing.T) {
	if Compare("/a", "/a?x=1") >= 0 {
		t.Fatalf("expected /a to be more canonical than /a?x=1")
	}
}

func TestCompareSegmentCount(t *testing.T) {
	if Compare("/a/b", "/a/b/c") >= 0 {
		t.Fatalf("expected /a/b to be more canonical than /a/b/c")
	}
}

func TestCompareLexicographicFallback(t *testing.T) {
	if Compare("/a", "/b") >= 0 {
		t.Fatalf("expected /a to sort before /b")
	}
}

func TestCompareLength(t *testing.T) {
	if Compare("/ab", "/abc") >= 0 {
		t.Fatalf("expected shorter URL to be more canonical")
	}
}

func TestCompareReflexive(t *testing.T) {
	if Compare("/a", "/a") != 0 {
		t.Fatalf("expected compareUrls(a,a) == 0")
	}
}

func TestCompareAntisymmetric(t *testing.T) {
	urls := [][2]string{
		{"/a", "/a?x=1"},
		{"/a/b", "/a/b/c"},
		{"/a", "/b"},
	}
	for _, pair := range urls {
		a, b := pair[0], pair[1]
		if (Compare(a, b) < 0) != (Compare(b, a) > 0) {
			t.Fatalf("compare(%q,%q) not antisymmetric with compare(%q,%q)", a, b, b, a)
		}
	}
}

func TestCompareTransitive(t *testing.T) {
	// /a (no query, 1 seg) < /a/b (no query, 2 seg) < /a/b?x=1 (query)
	if !(Compare("/a", "/a/b") < 0 && Compare("/a/b", "/a/b?x=1") < 0 && Compare("/a", "/a/b?x=1") < 0) {
		t.Fatalf("expected transitive ordering across the three rules")
	}
}
