package search

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		rawURL   string
		expected string
	}{
		{"plain", "https://example.com/path", "example.com/path"},
		{"strips www", "https://www.example.com/path", "example.com/path"},
		{"lowercases host", "https://EXAMPLE.com/Path", "example.com/Path"},
		{"strips trailing slash", "https://example.com/path/", "example.com/path"},
		{"keeps root slash", "https://example.com/", "example.com/"},
		{"bare host", "https://example.com", "example.com/"},
		{"keeps query", "https://example.com/search?q=go", "example.com/search?q=go"},
		{"scheme ignored", "http://example.com/path", "example.com/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeURL(tt.rawURL)
			if got != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, expected %q", tt.rawURL, got, tt.expected)
			}
		})
	}
}

func TestHitIDStableAcrossVariants(t *testing.T) {
	variants := []string{
		"https://example.com/article",
		"http://example.com/article",
		"https://www.example.com/article",
		"https://example.com/article/",
		"https://WWW.Example.COM/article",
	}

	base := HitID(variants[0])
	if len(base) != 12 {
		t.Fatalf("Expected 12-char hit ID, got %q (%d chars)", base, len(base))
	}
	for _, v := range variants[1:] {
		if id := HitID(v); id != base {
			t.Errorf("Expected %q to share ID %s, got %s", v, base, id)
		}
	}
}

func TestHitIDDistinctForDifferentPages(t *testing.T) {
	a := HitID("https://example.com/article1")
	b := HitID("https://example.com/article2")
	if a == b {
		t.Errorf("Expected distinct IDs for distinct URLs, both were %s", a)
	}
}

func TestDomain(t *testing.T) {
	if d := Domain("https://www.example.com:8080/path"); d != "example.com" {
		t.Errorf("Expected example.com, got %s", d)
	}
	if d := Domain("https://en.wikipedia.org/wiki/Go"); d != "en.wikipedia.org" {
		t.Errorf("Expected en.wikipedia.org, got %s", d)
	}
}
