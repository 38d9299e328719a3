package source

import "testing"

func TestCacheKeyIsStableHexSHA256(t *testing.T) {
	a := cacheKey("https://example.com/model.gguf")
	b := cacheKey("https://example.com/model.gguf")
	if a != b {
		t.Fatalf("expected stable cache key, got %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected a 64-char hex digest, got %d chars", len(a))
	}
}

func TestCacheKeyDistinguishesSources(t *testing.T) {
	a := cacheKey("https://example.com/a.gguf")
	b := cacheKey("https://example.com/b.gguf")
	if a == b {
		t.Fatalf("expected distinct cache keys for distinct sources")
	}
}

func TestIsHTTPDetectsScheme(t *testing.T) {
	if !isHTTP("https://example.com/model.gguf") {
		t.Fatalf("expected https url to be detected as http source")
	}
	if isHTTP("/local/path/model.gguf") {
		t.Fatalf("expected local path to not be detected as http source")
	}
}
