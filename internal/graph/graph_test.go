package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linksOf(pairs ...[2]string) []NodeLinks {
	byID := map[string][]string{}
	var order []string
	for _, p := range pairs {
		if _, seen := byID[p[0]]; !seen {
			order = append(order, p[0])
		}
		if p[1] != "" {
			byID[p[0]] = append(byID[p[0]], p[1])
		}
	}
	out := make([]NodeLinks, 0, len(order))
	for _, id := range order {
		out = append(out, NodeLinks{ID: id, OutgoingLinks: byID[id]})
	}
	return out
}

func TestBuild_SkipsEdgesToUnknownTargets(t *testing.T) {
	g := Build([]NodeLinks{
		{ID: "a", OutgoingLinks: []string{"b", "missing"}},
		{ID: "b"},
	})
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, []string{"b"}, g.Neighbors("a", DirectionOut, 10))
}

func TestBuild_DedupsDuplicateTargets(t *testing.T) {
	g := Build([]NodeLinks{
		{ID: "a", OutgoingLinks: []string{"b", "b", "b"}},
		{ID: "b"},
	})
	assert.Equal(t, []string{"b"}, g.Neighbors("a", DirectionOut, 10))
}

func TestNeighbors_Direction(t *testing.T) {
	g := Build([]NodeLinks{
		{ID: "a", OutgoingLinks: []string{"b"}},
		{ID: "b", OutgoingLinks: []string{"c"}},
		{ID: "c"},
	})
	assert.Equal(t, []string{"c"}, g.Neighbors("b", DirectionOut, 10))
	assert.Equal(t, []string{"a"}, g.Neighbors("b", DirectionIn, 10))
	assert.ElementsMatch(t, []string{"a", "c"}, g.Neighbors("b", DirectionBoth, 10))
}

func TestNeighbors_RespectsLimit(t *testing.T) {
	g := Build([]NodeLinks{
		{ID: "a", OutgoingLinks: []string{"b", "c", "d"}},
		{ID: "b"}, {ID: "c"}, {ID: "d"},
	})
	assert.Len(t, g.Neighbors("a", DirectionOut, 2), 2)
}

func TestNeighbors_UnknownIDReturnsNil(t *testing.T) {
	g := Build(nil)
	assert.Nil(t, g.Neighbors("nope", DirectionOut, 10))
}

func TestFindPath_SourceEqualsTarget(t *testing.T) {
	g := Build([]NodeLinks{{ID: "a"}})
	assert.Equal(t, []string{"a"}, g.FindPath("a", "a"))
}

func TestFindPath_DirectEdge(t *testing.T) {
	g := Build([]NodeLinks{
		{ID: "a", OutgoingLinks: []string{"b"}},
		{ID: "b"},
	})
	assert.Equal(t, []string{"a", "b"}, g.FindPath("a", "b"))
}

func TestFindPath_MultiHop(t *testing.T) {
	g := Build([]NodeLinks{
		{ID: "a", OutgoingLinks: []string{"b"}},
		{ID: "b", OutgoingLinks: []string{"c"}},
		{ID: "c", OutgoingLinks: []string{"d"}},
		{ID: "d"},
	})
	assert.Equal(t, []string{"a", "b", "c", "d"}, g.FindPath("a", "d"))
}

func TestFindPath_NoPath(t *testing.T) {
	g := Build([]NodeLinks{
		{ID: "a"},
		{ID: "b"},
	})
	assert.Nil(t, g.FindPath("a", "b"))
}

func TestFindPath_UnknownIDs(t *testing.T) {
	g := Build([]NodeLinks{{ID: "a"}})
	assert.Nil(t, g.FindPath("a", "nope"))
	assert.Nil(t, g.FindPath("nope", "a"))
}

func TestFindPath_ShortestOfMultipleRoutes(t *testing.T) {
	g := Build([]NodeLinks{
		{ID: "a", OutgoingLinks: []string{"b", "c"}},
		{ID: "b", OutgoingLinks: []string{"d"}},
		{ID: "c", OutgoingLinks: []string{"d"}},
		{ID: "d", OutgoingLinks: []string{"e"}},
	})
	path := g.FindPath("a", "e")
	require.Len(t, path, 4)
	assert.Equal(t, "a", path[0])
	assert.Equal(t, "e", path[3])
}

func TestHubs_RanksByDegreeTiesByID(t *testing.T) {
	g := Build([]NodeLinks{
		{ID: "a", OutgoingLinks: []string{"x", "y"}},
		{ID: "b", OutgoingLinks: []string{"x"}},
		{ID: "x"}, {ID: "y"},
	})
	hubs := g.Hubs(MetricInDegree, 2)
	require.Len(t, hubs, 2)
	assert.Equal(t, "x", hubs[0].ID)
	assert.Equal(t, 2, hubs[0].Degree)
}

func TestHubs_TieBreakAscendingID(t *testing.T) {
	g := Build([]NodeLinks{{ID: "b"}, {ID: "a"}, {ID: "c"}})
	hubs := g.Hubs(MetricOutDegree, 3)
	require.Len(t, hubs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{hubs[0].ID, hubs[1].ID, hubs[2].ID})
}

func TestHubs_NonPositiveLimit(t *testing.T) {
	g := Build([]NodeLinks{{ID: "a"}})
	assert.Nil(t, g.Hubs(MetricInDegree, 0))
}

func TestComputeCentrality(t *testing.T) {
	g := Build([]NodeLinks{
		{ID: "a", OutgoingLinks: []string{"b"}},
		{ID: "b"},
	})
	degrees := g.ComputeCentrality()
	assert.Equal(t, Degrees{InDegree: 0, OutDegree: 1}, degrees["a"])
	assert.Equal(t, Degrees{InDegree: 1, OutDegree: 0}, degrees["b"])
}
