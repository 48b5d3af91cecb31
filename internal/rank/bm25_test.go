package rank

import "testing"

func TestBM25PrefersMatchingDocument(t *testing.T) {
	docs := []string{
		"solid state batteries use solid electrolytes instead of liquid ones",
		"the history of renaissance painting in northern italy",
		"battery chemistry advances include lithium metal anodes",
	}
	bm25 := NewBM25(docs)

	matching := bm25.Score("solid state batteries", 0)
	unrelated := bm25.Score("solid state batteries", 1)

	if matching <= unrelated {
		t.Errorf("Expected matching doc to outscore unrelated doc: %f vs %f", matching, unrelated)
	}
}

func TestBM25ScoresAreBounded(t *testing.T) {
	docs := []string{
		"raft raft raft raft raft raft raft raft raft raft consensus consensus consensus",
		"unrelated content entirely",
	}
	bm25 := NewBM25(docs)

	for i := range docs {
		score := bm25.Score("raft consensus algorithm explained thoroughly with details", i)
		if score < 0 || score > 1 {
			t.Errorf("Doc %d: score %f outside [0,1]", i, score)
		}
	}
}

func TestBM25NoMatchScoresZero(t *testing.T) {
	bm25 := NewBM25([]string{"cooking pasta with tomatoes", "gardening tips for spring"})

	if score := bm25.Score("quantum chromodynamics", 0); score != 0 {
		t.Errorf("Expected zero score with no term overlap, got %f", score)
	}
}

func TestBM25EmptyCorpus(t *testing.T) {
	bm25 := NewBM25(nil)

	if score := bm25.Score("anything", 0); score != 0 {
		t.Errorf("Expected zero score on empty corpus, got %f", score)
	}
}

func TestBM25RareTermOutweighsCommonTerm(t *testing.T) {
	// "shared" appears everywhere; "unique" in one doc only.
	docs := []string{
		"shared words appear here with unique content",
		"shared words appear here too",
		"shared words appear here as well",
	}
	bm25 := NewBM25(docs)

	withRare := bm25.Score("unique", 0)
	onlyCommon := bm25.Score("shared", 0)

	if withRare <= onlyCommon {
		t.Errorf("Expected rare term to score higher than ubiquitous term: %f vs %f", withRare, onlyCommon)
	}
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	tokens := tokenize("Go is a DB on an OS")
	for _, token := range tokens {
		if len(token) <= 2 {
			t.Errorf("Expected short token %q to be dropped", token)
		}
	}
}
