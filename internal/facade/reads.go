package facade

import (
	"math"

	rouxerrors "github.com/rouxgraph/roux/internal/errors"
	"github.com/rouxgraph/roux/internal/graph"
	"github.com/rouxgraph/roux/internal/store"
)

// GetNode returns a node, optionally with its immediate neighbors at
// depth 1. A missing id returns (_, false, nil): not_found is absent, not
// an error, per §4.9.
func (f *Facade) GetNode(id string, depth int) (NodeResponse, []NodeSummary, bool, error) {
	resp, found, err := f.nodeResponse(id)
	if err != nil || !found {
		return NodeResponse{}, nil, found, err
	}
	if depth < 1 {
		return resp, nil, true, nil
	}

	neighborIDs := f.coordinator.Graph().Neighbors(id, graph.DirectionBoth, maxNeighbors)
	neighbors, err := f.summarize(neighborIDs)
	if err != nil {
		return resp, nil, true, err
	}
	return resp, neighbors, true, nil
}

// GetNeighbors returns a node's neighbors in the given direction, capped
// at maxNeighbors with the true total reported alongside.
func (f *Facade) GetNeighbors(id string, direction graph.Direction, limit int) (NeighborsResponse, error) {
	limit = clampLimit(limit)
	g := f.coordinator.Graph()

	total := len(g.Neighbors(id, direction, math.MaxInt))
	capped := limit
	if capped > maxNeighbors {
		capped = maxNeighbors
	}
	ids := g.Neighbors(id, direction, capped)
	summaries, err := f.summarize(ids)
	if err != nil {
		return NeighborsResponse{}, err
	}
	return NeighborsResponse{Neighbors: summaries, Total: total}, nil
}

// FindPath returns the shortest id path between source and target, or
// ok=false if none exists.
func (f *Facade) FindPath(source, target string) (path []string, ok bool) {
	p := f.coordinator.Graph().FindPath(source, target)
	return p, p != nil
}

// HubResult is one ranked entry from GetHubs.
type HubResult struct {
	ID    string
	Score int
}

// GetHubs returns the top nodes by the given degree metric.
func (f *Facade) GetHubs(metric graph.Metric, limit int) []HubResult {
	limit = clampLimit(limit)
	hubs := f.coordinator.Graph().Hubs(metric, limit)
	out := make([]HubResult, len(hubs))
	for i, h := range hubs {
		out[i] = HubResult{ID: h.ID, Score: h.Degree}
	}
	return out
}

// SearchByTags returns nodes matching the given tags under the given mode.
func (f *Facade) SearchByTags(tags []string, mode store.TagMode, limit int) ([]NodeSummary, error) {
	if len(tags) == 0 {
		return nil, rouxerrors.InvalidParams("search_by_tags: tags must be non-empty")
	}
	limit = clampLimit(limit)
	nodes, err := f.cache.SearchByTags(tags, mode, limit)
	if err != nil {
		return nil, rouxerrors.InternalError("search_by_tags", err)
	}
	out := make([]NodeSummary, len(nodes))
	for i, n := range nodes {
		out[i] = toSummary(n)
	}
	return out, nil
}

// RandomNode returns a uniformly-chosen node, optionally filtered by tags
// under mode (matching search_by_tags' any/all contract), excluding ghosts
// by default. ok is false if no node matches.
func (f *Facade) RandomNode(tags []string, mode store.TagMode) (NodeSummary, bool, error) {
	if len(tags) == 0 {
		filter := store.ListFilter{Ghosts: store.GhostFilterExclude}
		summaries, total, err := f.cache.List(filter, store.Paging{Limit: store.MaxListLimit})
		if err != nil {
			return NodeSummary{}, false, rouxerrors.InternalError("random_node", err)
		}
		if total == 0 || len(summaries) == 0 {
			return NodeSummary{}, false, nil
		}
		s := summaries[randomIndex(len(summaries))]
		return NodeSummary{ID: s.ID, Title: s.Title, IsGhost: s.IsGhost, Tags: s.Tags}, true, nil
	}

	nodes, err := f.cache.SearchByTags(tags, mode, store.MaxListLimit)
	if err != nil {
		return NodeSummary{}, false, rouxerrors.InternalError("random_node", err)
	}
	candidates := make([]store.Node, 0, len(nodes))
	for _, n := range nodes {
		if !n.IsGhost {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return NodeSummary{}, false, nil
	}
	n := candidates[randomIndex(len(candidates))]
	return NodeSummary{ID: n.ID, Title: n.Title, IsGhost: n.IsGhost, Tags: n.Tags}, true, nil
}

// ListNodes returns a filtered, paged slice of node summaries plus the
// total count ignoring paging.
func (f *Facade) ListNodes(filter store.ListFilter, paging store.Paging) ([]store.Summary, int, error) {
	summaries, total, err := f.cache.List(filter, paging)
	if err != nil {
		return nil, 0, rouxerrors.InternalError("list_nodes", err)
	}
	return summaries, total, nil
}

// NodesExist returns an id -> bool existence map.
func (f *Facade) NodesExist(ids []string) (map[string]bool, error) {
	out, err := f.cache.NodesExist(ids)
	if err != nil {
		return nil, rouxerrors.InternalError("nodes_exist", err)
	}
	return out, nil
}

func (f *Facade) summarize(ids []string) ([]NodeSummary, error) {
	nodes, err := f.cache.GetMany(ids)
	if err != nil {
		return nil, rouxerrors.InternalError("resolve neighbor nodes", err)
	}
	out := make([]NodeSummary, len(nodes))
	for i, n := range nodes {
		out[i] = toSummary(n)
	}
	return out, nil
}
