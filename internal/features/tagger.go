// Package features classifies page content into the five closed-vocabulary
// dimensions the personalization bandit learns over.
package features

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"clarion/internal/core"
	"clarion/internal/llm"
	"clarion/internal/logger"

	"google.golang.org/genai"
)

const (
	// maxBodyChars is how much of the body the classifier sees.
	maxBodyChars = 1500
	// minBodyChars is the floor below which tagging is skipped entirely:
	// the few-shot prompt is uncalibrated for very short pages, and a
	// confident-looking default would be worse than no features.
	minBodyChars = 200

	taggingTemperature = 0.1
)

// StructuredGenerator is the slice of the LLM client the tagger needs.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema, opts llm.Options) (string, error)
}

// Tagger classifies extracted pages via the LLM.
type Tagger struct {
	generator StructuredGenerator
}

// NewTagger creates a feature tagger backed by the given generator.
func NewTagger(generator StructuredGenerator) *Tagger {
	return &Tagger{generator: generator}
}

// Tag classifies a page. It returns nil when the body is too short to
// classify, and the neutral default tuple when classification fails, so the
// caller never blocks on tagging.
func (t *Tagger) Tag(ctx context.Context, title, body string) *core.ContentFeatures {
	if len(body) < minBodyChars {
		return nil
	}
	if len(body) > maxBodyChars {
		cut := maxBodyChars
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}

	prompt := fmt.Sprintf(`Classify the following page along five dimensions.

Title: %s

Content:
%s`, title, body)

	response, err := t.generator.GenerateStructured(ctx, prompt, featureSchema(), llm.Options{
		Temperature:  taggingTemperature,
		MaxTokens:    128,
		SystemPrompt: "You are a content classifier. Pick exactly one value per dimension from the allowed vocabulary.",
	})
	if err != nil {
		logger.Warn("feature tagging failed, using neutral default", "title", title, "error", err.Error())
		return core.NeutralFeatures()
	}

	var features core.ContentFeatures
	if err := json.Unmarshal([]byte(response), &features); err != nil || !features.Valid() {
		logger.Warn("feature tagging returned invalid tuple, using neutral default", "title", title)
		return core.NeutralFeatures()
	}
	return &features
}

// featureSchema constrains the model to the closed vocabulary.
func featureSchema() *genai.Schema {
	enumProp := func(values []string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Enum: values}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"depth":    enumProp(core.DepthValues),
			"style":    enumProp(core.StyleValues),
			"format":   enumProp(core.FormatValues),
			"approach": enumProp(core.ApproachValues),
			"density":  enumProp(core.DensityValues),
		},
		Required: []string{"depth", "style", "format", "approach", "density"},
	}
}
