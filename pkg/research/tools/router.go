package tools

import (
	"context"

	"github.com/zaidmukaddam/scira/pkg/research"
)

// CategoryRouter sends searches in a routed category to a dedicated provider
// and everything else to Default.
type CategoryRouter struct {
	Default research.SearchProvider
	Routes  map[string]research.SearchProvider
}

func (r *CategoryRouter) Search(ctx context.Context, query, category string) ([]research.SearchResult, error) {
	if p, ok := r.Routes[category]; ok && p != nil {
		return p.Search(ctx, query, category)
	}
	return r.Default.Search(ctx, query, category)
}
