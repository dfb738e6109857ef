package coordinator

import (
	"time"

	"github.com/rouxgraph/roux/internal/graph"
	"github.com/rouxgraph/roux/internal/resolver"
)

// reresolveAndRebuild runs the link resolver over the full current cache
// contents, applies its result atomically, and rebuilds the graph index
// plus centrality records from the result — §4.8.1 steps 5-6, reused
// verbatim by incremental reconciliation (§4.8.2 step 6) and by every CRUD
// mutation. Callers must hold c.mu.
func (c *Coordinator) reresolveAndRebuild() error {
	nodes, err := c.cache.ListAll()
	if err != nil {
		return err
	}

	resolverNodes := make([]resolver.Node, 0, len(nodes))
	for _, n := range nodes {
		rel := ""
		if !n.IsGhost {
			rel = relPath(c.cfg.RootDir, n.Source.AbsolutePath)
		}
		resolverNodes = append(resolverNodes, resolver.Node{
			ID:             n.ID,
			Title:          n.Title,
			IsGhost:        n.IsGhost,
			RelativePath:   rel,
			RawLinkTargets: c.rawLinks[n.ID],
		})
	}

	result := resolver.Resolve(c.logger, resolverNodes)

	rewriteByID := make(map[string][]string, len(result.Rewrites))
	for _, rw := range result.Rewrites {
		rewriteByID[rw.ID] = rw.OutgoingLinks
		if err := c.cache.UpdateOutgoingLinks(rw.ID, rw.OutgoingLinks); err != nil {
			return err
		}
	}

	for _, g := range result.GhostsToAdd {
		if err := c.cache.UpsertGhost(g); err != nil {
			return err
		}
	}

	dropped := make(map[string]bool, len(result.GhostsToDrop))
	for _, id := range result.GhostsToDrop {
		dropped[id] = true
		if err := c.cache.Delete(id); err != nil {
			return err
		}
		if err := c.vectors.Delete(id); err != nil {
			c.logger.Warn("coordinator: delete vector for dropped ghost", "id", id, "error", err)
		}
		delete(c.rawLinks, id)
	}

	links := make([]graph.NodeLinks, 0, len(nodes)+len(result.GhostsToAdd))
	for _, n := range nodes {
		if dropped[n.ID] {
			continue
		}
		out := n.OutgoingLinks
		if rw, ok := rewriteByID[n.ID]; ok {
			out = rw
		}
		links = append(links, graph.NodeLinks{ID: n.ID, OutgoingLinks: out})
	}
	for _, g := range result.GhostsToAdd {
		links = append(links, graph.NodeLinks{ID: g.ID, OutgoingLinks: nil})
	}

	c.graph = graph.Build(links)

	now := time.Now()
	for id, deg := range c.graph.ComputeCentrality() {
		if err := c.cache.StoreCentrality(id, 0, deg.InDegree, deg.OutDegree, now); err != nil {
			return err
		}
	}

	return nil
}

// dropNode removes a node's cache entry, vector record, and raw-link
// bookkeeping together. Callers must hold c.mu.
func (c *Coordinator) dropNode(id string) error {
	if err := c.cache.Delete(id); err != nil {
		return err
	}
	if err := c.vectors.Delete(id); err != nil {
		c.logger.Warn("coordinator: delete vector", "id", id, "error", err)
	}
	delete(c.rawLinks, id)
	return nil
}

// upsertParsed stores a freshly parsed node and its raw link targets, ready
// for the next reresolveAndRebuild. Callers must hold c.mu.
func (c *Coordinator) upsertParsed(pf parsedFile) error {
	if err := c.cache.Upsert(pf.node); err != nil {
		return err
	}
	c.rawLinks[pf.node.ID] = pf.rawLinks
	return nil
}
