package search

import (
	"context"
	"fmt"

	"clarion/internal/core"
)

// MockProvider implements Provider for testing purposes.
type MockProvider struct {
	name    string
	results []core.SearchHit
}

// NewMockProvider creates a new mock search provider with a small fixed
// result set.
func NewMockProvider() *MockProvider {
	urls := []string{
		"https://example.com/article1",
		"https://test.org/article2",
		"https://demo.net/article3",
	}
	var results []core.SearchHit
	for i, u := range urls {
		results = append(results, core.SearchHit{
			ID:      HitID(u),
			URL:     u,
			Title:   fmt.Sprintf("Mock Article %d", i+1),
			Snippet: fmt.Sprintf("Mock search result %d for testing purposes.", i+1),
			Domain:  Domain(u),
		})
	}
	return &MockProvider{
		name:    "Mock",
		results: results,
	}
}

// GetName returns the name of this provider.
func (m *MockProvider) GetName() string {
	return m.name
}

// Search returns the configured mock results.
func (m *MockProvider) Search(ctx context.Context, query string, config Config) ([]core.SearchHit, error) {
	maxResults := config.MaxResults
	if maxResults <= 0 || maxResults > len(m.results) {
		maxResults = len(m.results)
	}
	results := make([]core.SearchHit, maxResults)
	copy(results, m.results[:maxResults])
	return results, nil
}

// SetResults allows customization of mock results for testing.
func (m *MockProvider) SetResults(results []core.SearchHit) {
	m.results = results
}
