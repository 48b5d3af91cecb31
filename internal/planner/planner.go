// Package planner decomposes a user query into search sub-queries.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"clarion/internal/core"
	"clarion/internal/llm"
	"clarion/internal/logger"

	"google.golang.org/genai"
)

const (
	planningTemperature = 0.15
	planningMaxTokens   = 256

	minSubQueries = 2
	maxSubQueries = 5
)

const systemPrompt = `You decompose research questions into web-search queries.
Produce between 2 and 5 focused sub-queries that together cover the question:
distinct facets, background, and recent developments. Keep each sub-query
short and self-contained. Never return an empty string.`

// StructuredGenerator is the slice of the LLM client the planner needs.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema, opts llm.Options) (string, error)
}

// Planner turns a raw query into a Plan. It never fails: any LLM or
// validation problem degrades to a single-sub-query fallback plan.
type Planner struct {
	generator StructuredGenerator
}

// NewPlanner creates a query planner backed by the given generator.
func NewPlanner(generator StructuredGenerator) *Planner {
	return &Planner{generator: generator}
}

// Plan decomposes the query into 2-5 sub-queries, or falls back to a plan of
// exactly the original query when decomposition fails.
func (p *Planner) Plan(ctx context.Context, query string) core.Plan {
	prompt := fmt.Sprintf("Decompose this question into search sub-queries:\n\n%s", query)

	response, err := p.generator.GenerateStructured(ctx, prompt, planSchema(), llm.Options{
		Temperature:  planningTemperature,
		MaxTokens:    planningMaxTokens,
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		logger.Warn("query planning failed, falling back to original query", "query", query, "error", err.Error())
		return fallbackPlan(query)
	}

	var parsed struct {
		SubQueries []string `json:"subQueries"`
	}
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		logger.Warn("query plan was not valid JSON, falling back", "query", query)
		return fallbackPlan(query)
	}

	subQueries := validSubQueries(parsed.SubQueries)
	if len(subQueries) < minSubQueries {
		logger.Warn("query plan had too few usable sub-queries, falling back", "query", query, "count", len(subQueries))
		return fallbackPlan(query)
	}

	return core.Plan{
		OriginalQuery: query,
		SubQueries:    subQueries,
		Strategy:      core.StrategyLLM,
	}
}

func validSubQueries(raw []string) []string {
	var subQueries []string
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		subQueries = append(subQueries, q)
		if len(subQueries) == maxSubQueries {
			break
		}
	}
	return subQueries
}

func fallbackPlan(query string) core.Plan {
	return core.Plan{
		OriginalQuery: query,
		SubQueries:    []string{query},
		Strategy:      core.StrategyFallback,
	}
}

func planSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"subQueries": {
				Type:     genai.TypeArray,
				MinItems: genai.Ptr(int64(minSubQueries)),
				MaxItems: genai.Ptr(int64(maxSubQueries)),
				Items:    &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"subQueries"},
	}
}
