package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clarion/internal/core"
	"clarion/internal/logger"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency bounds how many sub-query searches run at once.
	DefaultConcurrency = 5
	// DefaultSearchTimeout is the per-sub-query search timeout.
	DefaultSearchTimeout = 15 * time.Second
	// DefaultMaxPerQuery is how many hits each sub-query may contribute.
	DefaultMaxPerQuery = 10

	// maxMergedHits caps the final merged result list.
	maxMergedHits = 20
	// minHitsBeforeSupplement triggers a supplemental search of the original
	// query, and guards the authority filter.
	minHitsBeforeSupplement = 5
	// maxMergedSnippet caps a merged snippet's length.
	maxMergedSnippet = 500
)

// ParallelOptions tune the fan-out searcher. Zero values take defaults.
type ParallelOptions struct {
	Concurrency int
	Timeout     time.Duration
	MaxPerQuery int
}

// ParallelSearcher fans a plan's sub-queries out over a single provider,
// tolerating per-query failures, and merges the hits into one deduplicated,
// interleaved, authority-filtered list.
type ParallelSearcher struct {
	provider    Provider
	concurrency int
	timeout     time.Duration
	maxPerQuery int
}

// NewParallelSearcher creates a fan-out searcher over the given provider.
func NewParallelSearcher(provider Provider, opts ParallelOptions) *ParallelSearcher {
	s := &ParallelSearcher{
		provider:    provider,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		maxPerQuery: opts.MaxPerQuery,
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultConcurrency
	}
	if s.timeout <= 0 {
		s.timeout = DefaultSearchTimeout
	}
	if s.maxPerQuery <= 0 {
		s.maxPerQuery = DefaultMaxPerQuery
	}
	return s
}

// Search executes the plan. A single sub-query's failure is never fatal; only
// when every sub-query fails is the original query retried once, and only
// that fallback's failure is returned as an error.
func (s *ParallelSearcher) Search(ctx context.Context, plan core.Plan) ([]core.SearchHit, error) {
	if len(plan.SubQueries) == 0 {
		hits, err := s.searchOne(ctx, plan.OriginalQuery)
		if err != nil {
			return nil, fmt.Errorf("search failed for query %q: %w", plan.OriginalQuery, err)
		}
		return merge([][]core.SearchHit{hits}), nil
	}

	perQuery := make([][]core.SearchHit, len(plan.SubQueries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, subQuery := range plan.SubQueries {
		g.Go(func() error {
			hits, err := s.searchOne(gctx, subQuery)
			if err != nil {
				// Partial success is success; log and move on
				logger.Warn("sub-query search failed", "query", subQuery, "error", err.Error())
				return nil
			}
			perQuery[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	succeeded := false
	for _, hits := range perQuery {
		if hits != nil {
			succeeded = true
			break
		}
	}
	if !succeeded {
		logger.Warn("all sub-query searches failed, falling back to original query", "query", plan.OriginalQuery)
		hits, err := s.searchOne(ctx, plan.OriginalQuery)
		if err != nil {
			return nil, fmt.Errorf("fallback search failed for query %q: %w", plan.OriginalQuery, err)
		}
		perQuery = [][]core.SearchHit{hits}
	}

	return merge(perQuery), nil
}

// searchOne runs one provider search under the per-task timeout and stamps
// provenance on the returned hits.
func (s *ParallelSearcher) searchOne(ctx context.Context, query string) ([]core.SearchHit, error) {
	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	hits, err := s.provider.Search(searchCtx, query, Config{MaxResults: s.maxPerQuery, Timeout: s.timeout})
	if err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].Provenance = core.Provenance{SourceQuery: query, OriginalRank: i + 1}
	}
	if hits == nil {
		hits = []core.SearchHit{}
	}
	return hits, nil
}

// merge deduplicates, interleaves, and filters the per-query hit lists into
// the final ordered result.
func merge(perQuery [][]core.SearchHit) []core.SearchHit {
	queues := dedupe(perQuery)
	merged := interleave(queues)
	merged = filterEncyclopedia(merged)

	if len(merged) > maxMergedHits {
		merged = merged[:maxMergedHits]
	}
	return merged
}

// dedupe collapses hits whose URLs normalize equally, merging their snippets,
// and returns per-query queues of the surviving hits.
func dedupe(perQuery [][]core.SearchHit) [][]*core.SearchHit {
	seen := make(map[string]*core.SearchHit)
	queues := make([][]*core.SearchHit, 0, len(perQuery))

	for _, hits := range perQuery {
		var queue []*core.SearchHit
		for i := range hits {
			hit := hits[i]
			key := NormalizeURL(hit.URL)
			if existing, ok := seen[key]; ok {
				existing.Snippet = mergeSnippets(existing.Snippet, hit.Snippet)
				continue
			}
			kept := &hit
			seen[key] = kept
			queue = append(queue, kept)
		}
		queues = append(queues, queue)
	}
	return queues
}

// mergeSnippets combines two snippets for the same URL. If one contains the
// other, the longer wins; otherwise they are concatenated and capped.
func mergeSnippets(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" || strings.Contains(a, b) {
		return a
	}
	if strings.Contains(b, a) {
		return b
	}
	merged := a + " | " + b
	if len(merged) > maxMergedSnippet {
		merged = merged[:maxMergedSnippet]
	}
	return merged
}

// interleave round-robins across the sub-query queues. The first pass takes
// the top 3 from each of the first two queues and the top 2 from the rest;
// every later pass takes 1 per queue until all are drained.
func interleave(queues [][]*core.SearchHit) []core.SearchHit {
	var merged []core.SearchHit

	take := func(i, n int) {
		for ; n > 0 && len(queues[i]) > 0; n-- {
			merged = append(merged, *queues[i][0])
			queues[i] = queues[i][1:]
		}
	}

	for i := range queues {
		if i < 2 {
			take(i, 3)
		} else {
			take(i, 2)
		}
	}
	for {
		drained := true
		for i := range queues {
			if len(queues[i]) > 0 {
				take(i, 1)
				drained = false
			}
		}
		if drained {
			return merged
		}
	}
}

// filterEncyclopedia drops Wikipedia/Wikimedia hits, unless doing so would
// leave fewer than five results, in which case the filter is skipped.
func filterEncyclopedia(hits []core.SearchHit) []core.SearchHit {
	var kept []core.SearchHit
	for _, hit := range hits {
		if isEncyclopediaHost(hit.Domain) || isEncyclopediaHost(Domain(hit.URL)) {
			continue
		}
		kept = append(kept, hit)
	}
	if len(kept) < minHitsBeforeSupplement {
		return hits
	}
	return kept
}

func isEncyclopediaHost(host string) bool {
	for _, suffix := range []string{"wikipedia.org", "wikimedia.org"} {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// SearchPlan runs Search and, when the merged result is thin, supplements it
// with one extra search of the original query under the same dedup rules.
func (s *ParallelSearcher) SearchPlan(ctx context.Context, plan core.Plan) ([]core.SearchHit, error) {
	hits, err := s.Search(ctx, plan)
	if err != nil {
		return nil, err
	}

	if len(hits) < minHitsBeforeSupplement {
		extra, err := s.searchOne(ctx, plan.OriginalQuery)
		if err != nil {
			logger.Warn("supplemental search failed", "query", plan.OriginalQuery, "error", err.Error())
			return hits, nil
		}
		// Same dedup rules as the main merge: duplicates keep one hit and
		// combine snippets.
		index := make(map[string]int, len(hits))
		for i := range hits {
			index[NormalizeURL(hits[i].URL)] = i
		}
		for _, hit := range extra {
			key := NormalizeURL(hit.URL)
			if i, ok := index[key]; ok {
				hits[i].Snippet = mergeSnippets(hits[i].Snippet, hit.Snippet)
				continue
			}
			index[key] = len(hits)
			hits = append(hits, hit)
		}
		if len(hits) > maxMergedHits {
			hits = hits[:maxMergedHits]
		}
	}

	return hits, nil
}
