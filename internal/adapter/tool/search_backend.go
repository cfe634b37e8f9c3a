package tool

import (
	"context"

	"tavily-mcp/internal/domain"
)

// SearchBackend abstracts a web search provider.
type SearchBackend interface {
	// Search runs query with the given parameter profile. apiKey is supplied
	// per call so that a rotated credential takes effect immediately.
	Search(ctx context.Context, apiKey, query string, opts domain.SearchOptions) (domain.SearchResponse, error)
	// Name returns the backend identifier (e.g. "tavily").
	Name() string
}
