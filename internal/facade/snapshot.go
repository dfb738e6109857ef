package facade

import (
	"sort"

	rouxerrors "github.com/rouxgraph/roux/internal/errors"
	"github.com/rouxgraph/roux/internal/store"
)

// SnapshotNode is one node projection in a GraphSnapshotResponse: just
// enough to render a label and a color, not the full content body.
type SnapshotNode struct {
	ID      string
	Title   string
	IsGhost bool
	Tags    []string
}

// SnapshotEdge is a directed link between two node ids, as recorded in
// the source node's outgoing links.
type SnapshotEdge struct {
	Source string
	Target string
}

// GraphSnapshotResponse is the read-only graph projection consumed by
// `roux viz` to render a static HTML export (C.1). Total reports the true
// node count even when the response is capped.
type GraphSnapshotResponse struct {
	Nodes []SnapshotNode
	Edges []SnapshotEdge
	Total int
}

// GraphSnapshot returns up to limit nodes (by id, for determinism) plus
// the edges between them, capped the same way list_nodes is capped.
func (f *Facade) GraphSnapshot(limit int) (GraphSnapshotResponse, error) {
	if limit <= 0 || limit > store.MaxListLimit {
		limit = store.MaxListLimit
	}

	nodes, err := f.cache.ListAll()
	if err != nil {
		return GraphSnapshotResponse{}, rouxerrors.InternalError("graph snapshot: list nodes", err)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	total := len(nodes)
	if len(nodes) > limit {
		nodes = nodes[:limit]
	}

	included := make(map[string]bool, len(nodes))
	out := GraphSnapshotResponse{Total: total}
	for _, n := range nodes {
		included[n.ID] = true
		out.Nodes = append(out.Nodes, SnapshotNode{ID: n.ID, Title: n.Title, IsGhost: n.IsGhost, Tags: n.Tags})
	}
	for _, n := range nodes {
		for _, target := range n.OutgoingLinks {
			if included[target] {
				out.Edges = append(out.Edges, SnapshotEdge{Source: n.ID, Target: target})
			}
		}
	}
	return out, nil
}
