// Package llm wraps the Gemini API behind the two call shapes the pipeline
// needs: structured JSON-schema generation and streaming completion. Both
// retry transient failures with exponential backoff.
package llm

import (
	"context"
	"fmt"
	"time"

	"clarion/internal/logger"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model.
	DefaultModel = "gemini-2.0-flash"

	// maxRetries is the number of retry attempts after the initial call.
	maxRetries = 3
	// baseRetryDelay doubles per attempt: 1s, 2s, 4s.
	baseRetryDelay = 1 * time.Second
)

// Options control a single generation call.
type Options struct {
	Temperature  float32
	MaxTokens    int32
	SystemPrompt string
}

// Client is a Gemini-backed LLM client.
type Client struct {
	gClient   *genai.Client
	modelName string
}

// NewClient creates a new LLM client with the given API key and model name.
func NewClient(apiKey, modelName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	ctx := context.Background()
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		gClient:   gClient,
		modelName: modelName,
	}, nil
}

// GenerateStructured runs a generation call constrained to the given JSON
// schema and returns the raw JSON text for the caller to unmarshal.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema, opts Options) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}
	config := c.buildConfig(opts)
	config.ResponseMIMEType = "application/json"
	config.ResponseSchema = schema

	var text string
	err := c.withRetry(ctx, func() error {
		resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
		if err != nil {
			return fmt.Errorf("failed to generate structured content: %w", err)
		}
		text = resp.Text()
		if text == "" {
			return fmt.Errorf("empty response from model")
		}
		return nil
	})
	return text, err
}

// StreamCompletion runs a free-form generation call, forwarding each text
// chunk through onChunk as it arrives, and returns the accumulated text.
// Retries only apply before the first chunk has been forwarded.
func (c *Client) StreamCompletion(ctx context.Context, prompt string, opts Options, onChunk func(string)) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}
	config := c.buildConfig(opts)

	var full string
	for attempt := 0; ; attempt++ {
		full = ""
		emitted := false
		var streamErr error

		for resp, err := range c.gClient.Models.GenerateContentStream(ctx, c.modelName, contents, config) {
			if err != nil {
				streamErr = err
				break
			}
			chunk := resp.Text()
			if chunk == "" {
				continue
			}
			full += chunk
			emitted = true
			if onChunk != nil {
				onChunk(chunk)
			}
		}

		if streamErr == nil {
			if full == "" {
				streamErr = fmt.Errorf("empty response from model")
			} else {
				return full, nil
			}
		}

		// A partially forwarded stream cannot be retried transparently
		if emitted || attempt >= maxRetries || ctx.Err() != nil {
			return full, fmt.Errorf("streaming completion failed: %w", streamErr)
		}
		if err := sleepBackoff(ctx, attempt); err != nil {
			return full, err
		}
		logger.Debug("retrying streaming completion", "attempt", attempt+1)
	}
}

func (c *Client) buildConfig(opts Options) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = opts.MaxTokens
	}
	if opts.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: opts.SystemPrompt}},
		}
	}
	return config
}

// withRetry runs fn up to 1+maxRetries times with 1s/2s/4s delays.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || ctx.Err() != nil {
			return err
		}
		if sleepErr := sleepBackoff(ctx, attempt); sleepErr != nil {
			return err
		}
		logger.Debug("retrying LLM call", "attempt", attempt+1)
	}
}

func sleepBackoff(ctx context.Context, attempt int) error {
	delay := baseRetryDelay << attempt
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
