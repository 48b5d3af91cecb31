package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"clarion/internal/core"
	"clarion/internal/logger"
)

// BraveProvider implements Provider using the Brave Search API.
type BraveProvider struct {
	apiKey  string
	client  *http.Client
	baseURL string
	limiter *rateLimiter
}

// NewBraveProvider creates a new Brave search provider.
func NewBraveProvider(apiKey string) *BraveProvider {
	return &BraveProvider{
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://api.search.brave.com/res/v1/web/search",
		limiter: newRateLimiter(1 * time.Second),
	}
}

// GetName returns the name of this provider.
func (b *BraveProvider) GetName() string {
	return "Brave"
}

// Search performs a search using the Brave Search API.
func (b *BraveProvider) Search(ctx context.Context, query string, config Config) ([]core.SearchHit, error) {
	if err := b.limiter.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	if config.MaxResults > 0 {
		params.Set("count", strconv.Itoa(config.MaxResults))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", b.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Brave request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Brave request failed with status: %d", resp.StatusCode)
	}

	var apiResponse struct {
		Web struct {
			Results []struct {
				URL         string `json:"url"`
				Title       string `json:"title"`
				Description string `json:"description"`
				Age         string `json:"age"`
				PageAge     string `json:"page_age"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse Brave response: %w", err)
	}

	var hits []core.SearchHit
	for i, item := range apiResponse.Web.Results {
		if config.MaxResults > 0 && i >= config.MaxResults {
			break
		}
		// Brave reports either a relative age ("2 days ago") or a page date;
		// carry whichever is present, un-parsed, as the published hint
		hint := item.Age
		if hint == "" {
			hint = item.PageAge
		}
		hits = append(hits, core.SearchHit{
			ID:            HitID(item.URL),
			URL:           item.URL,
			Title:         item.Title,
			Snippet:       item.Description,
			Domain:        Domain(item.URL),
			PublishedHint: hint,
		})
	}

	logger.Info("Brave search completed", "query", query, "results_found", len(hits))

	return hits, nil
}
