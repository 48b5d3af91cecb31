package search

import "errors"

var (
	// ErrMissingAPIKey is returned when a keyed provider is created without an API key.
	ErrMissingAPIKey = errors.New("search provider requires an API key")

	// ErrUnsupportedProvider is returned for unknown provider types.
	ErrUnsupportedProvider = errors.New("unsupported search provider")
)
