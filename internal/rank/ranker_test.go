package rank

import (
	"strings"
	"testing"
	"time"

	"clarion/internal/core"
)

func fixedNow() time.Time {
	return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func inputFor(id, domain, title, body string, published *time.Time) Input {
	return Input{
		Hit: core.SearchHit{
			ID:     id,
			URL:    "https://" + domain + "/" + id,
			Domain: domain,
		},
		Page: &core.PageExtract{
			Title:         title,
			Body:          body,
			Excerpt:       body,
			PublishedDate: published,
		},
	}
}

func TestRankOrdersByScore(t *testing.T) {
	r := NewRankerAt(fixedNow)

	recent := fixedNow().AddDate(0, 0, -10)
	stale := fixedNow().AddDate(-2, 0, 0)
	inputs := []Input{
		inputFor("off-topic", "blog.example.com", "Gardening tips",
			"planting tomatoes in spring requires patience", &stale),
		inputFor("on-topic", "research.example.edu", "Raft consensus explained",
			strings.Repeat("raft consensus leader election log replication ", 50), &recent),
	}

	docs := r.Rank("raft consensus", inputs)

	if len(docs) != 2 {
		t.Fatalf("Expected 2 ranked docs, got %d", len(docs))
	}
	if docs[0].ID != "on-topic" {
		t.Errorf("Expected on-topic doc first, got %s", docs[0].ID)
	}
	if docs[0].Score <= docs[1].Score {
		t.Errorf("Expected descending scores, got %f then %f", docs[0].Score, docs[1].Score)
	}
}

func TestRankSignalsAreBounded(t *testing.T) {
	r := NewRankerAt(fixedNow)
	future := fixedNow().AddDate(0, 1, 0)
	inputs := []Input{
		inputFor("a", "site.edu", "Title", strings.Repeat("word ", 5000), &future),
		inputFor("b", "site.com", "Other", "short", nil),
	}

	for _, doc := range r.Rank("word", inputs) {
		for name, v := range map[string]float64{
			"relevance":     doc.Signals.Relevance,
			"recency":       doc.Signals.Recency,
			"sourceQuality": doc.Signals.SourceQuality,
			"coverage":      doc.Signals.Coverage,
		} {
			if v < 0 || v > 1 {
				t.Errorf("Doc %s: signal %s = %f outside [0,1]", doc.ID, name, v)
			}
		}
		if doc.Score < 0 || doc.Score > 1 {
			t.Errorf("Doc %s: score %f outside [0,1]", doc.ID, doc.Score)
		}
	}
}

func TestRecencyScore(t *testing.T) {
	r := NewRankerAt(fixedNow)

	tests := []struct {
		name      string
		published *time.Time
		expected  float64
	}{
		{"unknown date is neutral", nil, 0.5},
		{"future date scores full", timePtr(fixedNow().AddDate(0, 0, 7)), 1.0},
		{"year-old scores zero", timePtr(fixedNow().AddDate(-1, -1, 0)), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := inputFor("x", "example.com", "T", "body", tt.published)
			got := r.recencyScore(input)
			if got != tt.expected {
				t.Errorf("Expected recency %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestRecencyDecaysLinearly(t *testing.T) {
	r := NewRankerAt(fixedNow)
	halfYear := fixedNow().AddDate(0, 0, -182)
	input := inputFor("x", "example.com", "T", "body", &halfYear)

	got := r.recencyScore(input)
	if got < 0.45 || got > 0.55 {
		t.Errorf("Expected roughly half recency at ~6 months, got %f", got)
	}
}

func TestRecencyFallsBackToHint(t *testing.T) {
	r := NewRankerAt(time.Now)
	input := Input{
		Hit:  core.SearchHit{PublishedHint: "2 days ago"},
		Page: &core.PageExtract{},
	}

	got := r.recencyScore(input)
	if got < 0.9 {
		t.Errorf("Expected a 2-day-old hint to score near 1.0, got %f", got)
	}
}

func TestSourceQualityScore(t *testing.T) {
	tests := []struct {
		domain   string
		expected float64
	}{
		{"mit.edu", 0.9},
		{"nasa.gov", 0.9},
		{"archive.org", 0.7},
		{"example.com", 0.5},
		{"blog.example.io", 0.5},
	}
	for _, tt := range tests {
		if got := sourceQualityScore(tt.domain); got != tt.expected {
			t.Errorf("sourceQualityScore(%q) = %f, expected %f", tt.domain, got, tt.expected)
		}
	}
}

func TestCoverageSaturates(t *testing.T) {
	if got := coverageScore(strings.Repeat("word ", 2000)); got != 1 {
		t.Errorf("Expected coverage to saturate at 1, got %f", got)
	}
	if got := coverageScore(strings.Repeat("word ", 500)); got != 0.5 {
		t.Errorf("Expected 0.5 coverage at 500 words, got %f", got)
	}
}

func TestRankingReason(t *testing.T) {
	reason := rankingReason(core.Signals{Relevance: 0.9, Recency: 0.8, SourceQuality: 0.9, Coverage: 0.5})
	for _, tag := range []string{".edu/.gov domain", "recent", "highly relevant"} {
		if !strings.Contains(reason, tag) {
			t.Errorf("Expected reason to contain %q, got %q", tag, reason)
		}
	}

	if reason := rankingReason(core.Signals{Relevance: 0.1, Recency: 0.5, SourceQuality: 0.5}); reason != "matched query" {
		t.Errorf("Expected default reason, got %q", reason)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
