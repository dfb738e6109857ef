// Package graph builds and queries the in-memory directed graph derived
// from the Document Cache's node set and each node's outgoing links.
package graph

import (
	"container/heap"
	"sort"
)

// Direction selects which adjacency a neighbors query traverses.
type Direction string

const (
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionBoth Direction = "both"
)

// Metric selects which degree a hubs query ranks by.
type Metric string

const (
	MetricInDegree  Metric = "in_degree"
	MetricOutDegree Metric = "out_degree"
)

// Degrees is the in/out degree pair compute_centrality emits for one id.
type Degrees struct {
	InDegree  int
	OutDegree int
}

// Graph is an in-memory directed graph over node ids, rebuilt wholesale from
// the cache on every sync or reconciliation pass. It is not authoritative
// over node content; it is a derived index.
type Graph struct {
	out map[string][]string
	in  map[string][]string
	ids map[string]bool
}

// NodeLinks is one node's id paired with its raw outgoing links, the input
// shape Build consumes from the Document Cache.
type NodeLinks struct {
	ID            string
	OutgoingLinks []string
}

// Build constructs a graph from the full node set. Edges whose target is not
// itself a node id are skipped; duplicate targets from the same source are
// deduplicated.
func Build(nodes []NodeLinks) *Graph {
	g := &Graph{
		out: make(map[string][]string, len(nodes)),
		in:  make(map[string][]string, len(nodes)),
		ids: make(map[string]bool, len(nodes)),
	}
	for _, n := range nodes {
		g.ids[n.ID] = true
	}
	for _, n := range nodes {
		seen := make(map[string]bool, len(n.OutgoingLinks))
		for _, target := range n.OutgoingLinks {
			if !g.ids[target] || seen[target] {
				continue
			}
			seen[target] = true
			g.out[n.ID] = append(g.out[n.ID], target)
			g.in[target] = append(g.in[target], n.ID)
		}
	}
	return g
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.ids)
}

// Has reports whether id is a node in the graph.
func (g *Graph) Has(id string) bool {
	return g.ids[id]
}

// Neighbors returns up to limit neighbor ids of id in the given direction,
// in the graph's internal iteration order. Returns nil for an unknown id or
// a non-positive limit.
func (g *Graph) Neighbors(id string, direction Direction, limit int) []string {
	if limit <= 0 || !g.ids[id] {
		return nil
	}

	var out []string
	appendUpTo := func(ids []string) {
		for _, n := range ids {
			if len(out) >= limit {
				return
			}
			out = append(out, n)
		}
	}

	switch direction {
	case DirectionIn:
		appendUpTo(g.in[id])
	case DirectionOut:
		appendUpTo(g.out[id])
	default: // both
		appendUpTo(g.out[id])
		if len(out) < limit {
			appendUpTo(g.in[id])
		}
	}
	return out
}

// FindPath returns a shortest id sequence from source to target via
// bidirectional BFS, or nil if no path exists. source == target returns a
// single-element path.
func (g *Graph) FindPath(source, target string) []string {
	if !g.ids[source] || !g.ids[target] {
		return nil
	}
	if source == target {
		return []string{source}
	}

	fwdParent := map[string]string{source: ""}
	bwdParent := map[string]string{target: ""}
	fwdFrontier := []string{source}
	bwdFrontier := []string{target}

	for len(fwdFrontier) > 0 && len(bwdFrontier) > 0 {
		if meeting, ok := expandFrontier(&fwdFrontier, fwdParent, bwdParent, g.out); ok {
			return joinPaths(meeting, fwdParent, bwdParent)
		}
		if meeting, ok := expandFrontier(&bwdFrontier, bwdParent, fwdParent, g.in); ok {
			return joinPaths(meeting, fwdParent, bwdParent)
		}
	}
	return nil
}

func expandFrontier(frontier *[]string, ownParent, otherParent map[string]string, adj map[string][]string) (string, bool) {
	var next []string
	for _, cur := range *frontier {
		for _, nbr := range adj[cur] {
			if _, visited := ownParent[nbr]; visited {
				continue
			}
			ownParent[nbr] = cur
			if _, met := otherParent[nbr]; met {
				return nbr, true
			}
			next = append(next, nbr)
		}
	}
	*frontier = next
	return "", false
}

// joinPaths reconstructs the full path through meeting, given the two
// parent maps built by expandFrontier (source-rooted and target-rooted,
// each with its root mapped to the sentinel "").
func joinPaths(meeting string, fwdParent, bwdParent map[string]string) []string {
	var fwd []string
	for cur := meeting; ; {
		fwd = append([]string{cur}, fwd...)
		parent, ok := fwdParent[cur]
		if !ok || parent == "" {
			break
		}
		cur = parent
	}

	var bwd []string
	for cur := meeting; ; {
		parent, ok := bwdParent[cur]
		if !ok || parent == "" {
			break
		}
		bwd = append(bwd, parent)
		cur = parent
	}
	return append(fwd, bwd...)
}

// hubHeap is a k-sized min-heap over (id, degree), keeping the top-k by
// degree (ties broken by ascending id) without a full sort.
type hubEntry struct {
	id     string
	degree int
}

type hubHeap []hubEntry

func (h hubHeap) Len() int { return len(h) }
func (h hubHeap) Less(i, j int) bool {
	if h[i].degree != h[j].degree {
		return h[i].degree < h[j].degree
	}
	return h[i].id > h[j].id // min-heap pops the weakest-ranked entry first
}
func (h hubHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hubHeap) Push(x any)        { *h = append(*h, x.(hubEntry)) }
func (h *hubHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Hub is one ranked result from a hubs query.
type Hub struct {
	ID     string
	Degree int
}

// Hubs returns the top-limit ids by the given degree metric, ties broken by
// ascending id, using a k-sized min-heap to bound memory.
func (g *Graph) Hubs(metric Metric, limit int) []Hub {
	if limit <= 0 {
		return nil
	}

	degreeOf := func(id string) int {
		if metric == MetricInDegree {
			return len(g.in[id])
		}
		return len(g.out[id])
	}

	h := &hubHeap{}
	heap.Init(h)
	for id := range g.ids {
		entry := hubEntry{id: id, degree: degreeOf(id)}
		if h.Len() < limit {
			heap.Push(h, entry)
			continue
		}
		if entry.degree > (*h)[0].degree || (entry.degree == (*h)[0].degree && entry.id < (*h)[0].id) {
			heap.Pop(h)
			heap.Push(h, entry)
		}
	}

	out := make([]Hub, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		e := heap.Pop(h).(hubEntry)
		out[i] = Hub{ID: e.id, Degree: e.degree}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ComputeCentrality returns the in/out degree of every node in the graph.
func (g *Graph) ComputeCentrality() map[string]Degrees {
	out := make(map[string]Degrees, len(g.ids))
	for id := range g.ids {
		out[id] = Degrees{InDegree: len(g.in[id]), OutDegree: len(g.out[id])}
	}
	return out
}
