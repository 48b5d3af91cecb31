// Package synthesis generates the cited answer from ranked sources and
// enforces the citation contract on the result.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"clarion/internal/core"
	"clarion/internal/llm"
)

const (
	// MaxSources caps how many ranked documents the prompt carries.
	MaxSources = 8

	synthesisTemperature = 0.3
	synthesisMaxTokens   = 2048
)

const systemPrompt = `You are a research assistant that writes grounded answers.
Rules:
- After every factual claim, cite its source inline as [N], where N is the
  source's number in the provided list.
- Draw on a diverse set of the sources; do not lean on one source alone.
- Write 2 to 5 paragraphs.
- If sources conflict, say so explicitly and cite both sides.
- If the sources do not cover the question, say so instead of speculating.`

// Streamer is the slice of the LLM client the synthesizer needs.
type Streamer interface {
	StreamCompletion(ctx context.Context, prompt string, opts llm.Options, onChunk func(string)) (string, error)
}

// Synthesizer builds the synthesis prompt, streams the answer, and validates
// its citations.
type Synthesizer struct {
	streamer Streamer
}

// NewSynthesizer creates a synthesizer backed by the given streamer.
func NewSynthesizer(streamer Streamer) *Synthesizer {
	return &Synthesizer{streamer: streamer}
}

// Synthesize answers the query from the top sources, forwarding raw chunks
// through onChunk as they arrive. The returned packet carries the
// post-processed text in which every remaining bracket citation is valid.
func (s *Synthesizer) Synthesize(ctx context.Context, query, queryID string, docs []core.RankedDoc, onChunk func(string)) (*core.AnswerPacket, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no sources to synthesize from")
	}
	if len(docs) > MaxSources {
		docs = docs[:MaxSources]
	}

	text, err := s.streamer.StreamCompletion(ctx, buildPrompt(query, docs), llm.Options{
		Temperature:  synthesisTemperature,
		MaxTokens:    synthesisMaxTokens,
		SystemPrompt: systemPrompt,
	}, onChunk)
	if err != nil {
		return nil, fmt.Errorf("answer synthesis failed: %w", err)
	}

	processed, citations := ValidateCitations(text, docs)

	return &core.AnswerPacket{
		QueryID:   queryID,
		Text:      processed,
		Citations: citations,
		Sources:   docs,
	}, nil
}

// buildPrompt renders the numbered source list the citation indices refer to.
func buildPrompt(query string, docs []core.RankedDoc) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nSources:\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, doc.Title, doc.Domain, doc.Excerpt)
	}
	b.WriteString("Answer the question using only these sources.")
	return b.String()
}
