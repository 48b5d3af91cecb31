// Package search provides pluggable web-search providers and the parallel
// fan-out searcher that merges their results.
package search

import (
	"context"
	"time"

	"clarion/internal/core"
)

// Provider defines the unified interface for search providers.
type Provider interface {
	// Search performs one search over one query and returns normalized hits.
	Search(ctx context.Context, query string, config Config) ([]core.SearchHit, error)

	// GetName returns the name of the search provider.
	GetName() string
}

// Config holds configuration for search requests.
type Config struct {
	MaxResults int           // Maximum number of results to return
	Timeout    time.Duration // Per-request timeout hint for the provider
}

// ProviderType represents the type of search provider.
type ProviderType string

const (
	ProviderTypeBrave      ProviderType = "brave"
	ProviderTypeDuckDuckGo ProviderType = "duckduckgo"
	ProviderTypeMock       ProviderType = "mock"
)

// ProviderFactory creates search providers based on type and configuration.
type ProviderFactory struct{}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{}
}

// CreateProvider creates a search provider of the specified type.
func (f *ProviderFactory) CreateProvider(providerType ProviderType, config map[string]string) (Provider, error) {
	switch providerType {
	case ProviderTypeBrave:
		apiKey, exists := config["api_key"]
		if !exists || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewBraveProvider(apiKey), nil
	case ProviderTypeDuckDuckGo:
		return NewDuckDuckGoProvider(), nil
	case ProviderTypeMock:
		return NewMockProvider(), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// GetAvailableProviders returns a list of available provider types.
func (f *ProviderFactory) GetAvailableProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeBrave,
		ProviderTypeDuckDuckGo,
		ProviderTypeMock,
	}
}
