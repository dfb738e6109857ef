// Package facade exposes the closed operation set of §4.9 as a thin layer
// over the Document Cache, Vector Index, Graph Index, and Store
// Coordinator: it translates protocol-facing requests into component
// calls, enforces per-response rendering caps, and maintains a small
// response cache invalidated on every mutation.
package facade

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rouxgraph/roux/internal/coordinator"
	rouxerrors "github.com/rouxgraph/roux/internal/errors"
	"github.com/rouxgraph/roux/internal/store"
)

const (
	// maxContentLength is the per-response content cap; longer bodies are
	// truncated with truncationSuffix.
	maxContentLength = 4000
	truncationSuffix = "\n... [truncated]"

	// maxNeighbors bounds a rendered neighbor list; the total count is
	// still reported alongside the capped slice.
	maxNeighbors = 20

	// maxLimit bounds search/get_neighbors/get_hubs limit parameters.
	maxLimit = 50

	responseCacheSize = 500
)

// Facade is the query façade. Construct with New once the cache, vector
// index, and coordinator are wired together.
type Facade struct {
	cache       *store.Cache
	vectors     *store.VectorIndex
	coordinator *coordinator.Coordinator
	logger      *slog.Logger

	nodeCache *lru.Cache[string, NodeResponse]
}

// New builds a Facade and wires it to invalidate its response cache for
// the ids each watcher reconciliation pass reports; CRUD calls made through
// the façade invalidate their own ids (see mutate.go).
func New(cache *store.Cache, vectors *store.VectorIndex, coord *coordinator.Coordinator, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	nodeCache, _ := lru.New[string, NodeResponse](responseCacheSize)
	f := &Facade{cache: cache, vectors: vectors, coordinator: coord, logger: logger, nodeCache: nodeCache}

	coord.OnChange(func(_ context.Context, touched []string) {
		for _, id := range touched {
			f.nodeCache.Remove(id)
		}
	})
	return f
}

// NodeResponse is the rendered shape of a node returned across every
// operation that surfaces full node content.
type NodeResponse struct {
	ID            string
	Title         string
	Content       string
	IsGhost       bool
	Tags          []string
	Properties    map[string]any
	OutgoingLinks []string
}

// NeighborsResponse caps the neighbor list at maxNeighbors while still
// reporting the true total — §4.9's rendering contract.
type NeighborsResponse struct {
	Neighbors []NodeSummary
	Total     int
}

// NodeSummary is the trimmed projection used in list-shaped results.
type NodeSummary struct {
	ID      string
	Title   string
	IsGhost bool
	Tags    []string
}

func toNodeResponse(n store.Node) NodeResponse {
	content := n.Content
	if len(content) > maxContentLength {
		content = content[:maxContentLength] + truncationSuffix
	}
	return NodeResponse{
		ID:            n.ID,
		Title:         n.Title,
		Content:       content,
		IsGhost:       n.IsGhost,
		Tags:          n.Tags,
		Properties:    n.Properties,
		OutgoingLinks: n.OutgoingLinks,
	}
}

func toSummary(n store.Node) NodeSummary {
	return NodeSummary{ID: n.ID, Title: n.Title, IsGhost: n.IsGhost, Tags: n.Tags}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 1
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func (f *Facade) nodeResponse(id string) (NodeResponse, bool, error) {
	if cached, ok := f.nodeCache.Get(id); ok {
		return cached, true, nil
	}
	n, found, err := f.cache.Get(id)
	if err != nil {
		return NodeResponse{}, false, rouxerrors.InternalError("get node", err)
	}
	if !found {
		return NodeResponse{}, false, nil
	}
	resp := toNodeResponse(n)
	f.nodeCache.Add(id, resp)
	return resp, true, nil
}
