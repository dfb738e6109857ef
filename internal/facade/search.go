package facade

import (
	"context"

	rouxerrors "github.com/rouxgraph/roux/internal/errors"
)

// SearchResult is one ranked hit from Search.
type SearchResult struct {
	Node     NodeResponse
	Distance float32
}

// Search embeds query with the active embedder and returns the nearest
// nodes by vector distance. Fails with a provider error if no embedder is
// registered, per §4.9's search row.
func (f *Facade) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	limit = clampLimit(limit)

	embedder := f.coordinator.Embeds().Active()
	if embedder == nil {
		return nil, rouxerrors.ProviderError("search: no embedder registered", nil)
	}

	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, rouxerrors.ProviderError("search: embed query", err)
	}

	matches, err := f.vectors.Search(vec, limit)
	if err != nil {
		return nil, rouxerrors.InternalError("search", err)
	}

	out := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		resp, found, err := f.nodeResponse(m.ID)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		out = append(out, SearchResult{Node: resp, Distance: m.Distance})
	}
	return out, nil
}
