package rank

import (
	"sort"
	"strings"
	"time"

	"clarion/internal/core"
	"clarion/internal/fetch"
)

// Signal weights, summing to 1.
const (
	weightRelevance     = 0.5
	weightRecency       = 0.2
	weightSourceQuality = 0.2
	weightCoverage      = 0.1
)

// Input pairs a search hit with its successful page extract.
type Input struct {
	Hit  core.SearchHit
	Page *core.PageExtract
}

// Ranker combines relevance, recency, source authority, and coverage into a
// single score per document, with a human-readable reason.
type Ranker struct {
	now func() time.Time
}

// NewRanker creates a ranker using the wall clock.
func NewRanker() *Ranker {
	return &Ranker{now: time.Now}
}

// NewRankerAt creates a ranker with a fixed clock, for tests.
func NewRankerAt(now func() time.Time) *Ranker {
	return &Ranker{now: now}
}

// Rank scores every input against the query and returns the documents sorted
// by score, highest first. Ordering depends only on the computed scores.
func (r *Ranker) Rank(query string, inputs []Input) []core.RankedDoc {
	corpus := make([]string, len(inputs))
	for i, input := range inputs {
		corpus[i] = input.Page.Title + " " + input.Page.Excerpt
	}
	bm25 := NewBM25(corpus)

	docs := make([]core.RankedDoc, len(inputs))
	for i, input := range inputs {
		signals := core.Signals{
			Relevance:     bm25.Score(query, i),
			Recency:       r.recencyScore(input),
			SourceQuality: sourceQualityScore(input.Hit.Domain),
			Coverage:      coverageScore(input.Page.Body),
		}
		score := weightRelevance*signals.Relevance +
			weightRecency*signals.Recency +
			weightSourceQuality*signals.SourceQuality +
			weightCoverage*signals.Coverage

		docs[i] = core.RankedDoc{
			ID:            input.Hit.ID,
			URL:           input.Hit.URL,
			Title:         input.Page.Title,
			Excerpt:       input.Page.Excerpt,
			Domain:        input.Hit.Domain,
			PublishedDate: input.Page.PublishedDate,
			Features:      input.Page.Features,
			Signals:       signals,
			Score:         score,
			RankingReason: rankingReason(signals),
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
	return docs
}

// recencyScore decays linearly from 1.0 today to 0.0 at one year. Unknown
// dates score neutral; future dates score 1.0.
func (r *Ranker) recencyScore(input Input) float64 {
	published := input.Page.PublishedDate
	if published == nil {
		published = fetch.ParseDateHint(input.Hit.PublishedHint)
	}
	if published == nil {
		return 0.5
	}

	age := r.now().Sub(*published)
	if age < 0 {
		return 1.0
	}
	days := age.Hours() / 24
	if days >= 365 {
		return 0.0
	}
	return 1.0 - days/365
}

// sourceQualityScore is a prior on domain authority by TLD tail.
func sourceQualityScore(domain string) float64 {
	domain = strings.ToLower(domain)
	switch {
	case strings.HasSuffix(domain, ".edu") || strings.HasSuffix(domain, ".gov"):
		return 0.9
	case strings.HasSuffix(domain, ".org"):
		return 0.7
	default:
		return 0.5
	}
}

// coverageScore rewards substantial bodies, saturating at 1000 words.
func coverageScore(body string) float64 {
	words := len(strings.Fields(body))
	score := float64(words) / 1000
	if score > 1 {
		return 1
	}
	return score
}

// rankingReason joins the applicable signal tags into an explanation.
func rankingReason(signals core.Signals) string {
	var tags []string
	if signals.SourceQuality > 0.7 {
		tags = append(tags, ".edu/.gov domain")
	}
	if signals.Recency > 0.7 {
		tags = append(tags, "recent")
	}
	if signals.Relevance > 0.8 {
		tags = append(tags, "highly relevant")
	}
	if len(tags) == 0 {
		return "matched query"
	}
	return strings.Join(tags, ", ")
}
