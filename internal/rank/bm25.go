// Package rank scores extracted documents against the query and orders them.
package rank

import (
	"math"
	"strings"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25 is a corpus-local Okapi BM25 index, built once per request over the
// small set of extracted documents.
type BM25 struct {
	docFreq   []map[string]int
	docLen    []int
	avgDocLen float64
	termDocs  map[string]int
	n         int
}

// NewBM25 builds an index over the given documents.
func NewBM25(docs []string) *BM25 {
	b := &BM25{
		docFreq:  make([]map[string]int, len(docs)),
		docLen:   make([]int, len(docs)),
		termDocs: make(map[string]int),
		n:        len(docs),
	}

	total := 0
	for i, doc := range docs {
		tokens := tokenize(doc)
		freq := make(map[string]int, len(tokens))
		for _, token := range tokens {
			freq[token]++
		}
		b.docFreq[i] = freq
		b.docLen[i] = len(tokens)
		total += len(tokens)
		for term := range freq {
			b.termDocs[term]++
		}
	}
	if b.n > 0 {
		b.avgDocLen = float64(total) / float64(b.n)
	}
	return b
}

// Score returns the normalized BM25 relevance of document i to the query,
// clamped to [0,1].
func (b *BM25) Score(query string, i int) float64 {
	if i < 0 || i >= b.n || b.avgDocLen == 0 {
		return 0
	}

	score := 0.0
	lengthNorm := bm25K1 * (1 - bm25B + bm25B*float64(b.docLen[i])/b.avgDocLen)
	for _, term := range tokenize(query) {
		tf := float64(b.docFreq[i][term])
		if tf == 0 {
			continue
		}
		df := float64(b.termDocs[term])
		idf := math.Log((float64(b.n)-df+0.5)/(df+0.5) + 1)
		score += idf * tf * (bm25K1 + 1) / (tf + lengthNorm)
	}

	score /= 10
	if score > 1 {
		return 1
	}
	return score
}

// tokenize lowercases, splits on whitespace, and drops short tokens.
func tokenize(text string) []string {
	var tokens []string
	for _, field := range strings.Fields(strings.ToLower(text)) {
		if len(field) > 2 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}
