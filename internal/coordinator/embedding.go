package coordinator

import (
	"context"
	"runtime"
	"sync"

	"github.com/rouxgraph/roux/internal/store"
)

// embedMissing embeds every real node lacking a vector record, using a
// bounded worker pool so a large bulk sync doesn't serialize embedding
// calls one at a time — §4.8.3 and the domain stack's background embedding
// worker. A per-node failure is logged, not fatal: the node simply remains
// un-embedded until the next sync or change notices it again.
func (c *Coordinator) embedMissing(ctx context.Context) {
	embedder := c.embeds.Active()
	if embedder == nil {
		return
	}

	nodes, err := c.cache.ListAll()
	if err != nil {
		c.logger.Warn("coordinator: embedding: list nodes", "error", err)
		return
	}

	var pending []store.Node
	for _, n := range nodes {
		if n.IsGhost {
			continue
		}
		has, err := c.vectors.HasEmbedding(n.ID)
		if err != nil {
			c.logger.Warn("coordinator: embedding: check existing", "id", n.ID, "error", err)
			continue
		}
		if !has {
			pending = append(pending, n)
		}
	}
	if len(pending) == 0 {
		return
	}

	workers := c.cfg.EmbedWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pending) {
		workers = len(pending)
	}

	jobs := make(chan store.Node)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				c.embedAndStore(ctx, embedder.ModelID(), n.ID, n.Content)
			}
		}()
	}
	for _, n := range pending {
		select {
		case jobs <- n:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()
}

// embedOne re-embeds a single node, used by the watcher on-change callback
// (§4.8.3: "on watcher-driven changes, the on-change callback re-embeds the
// changed node's content").
func (c *Coordinator) embedOne(ctx context.Context, id, content string) {
	embedder := c.embeds.Active()
	if embedder == nil {
		return
	}
	c.embedAndStore(ctx, embedder.ModelID(), id, content)
}

func (c *Coordinator) embedAndStore(ctx context.Context, modelID, id, content string) {
	embedder := c.embeds.Active()
	if embedder == nil {
		return
	}
	vec, err := embedder.Embed(ctx, content)
	if err != nil {
		c.logger.Error("coordinator: embedding failed", "id", id, "error", err)
		return
	}
	if err := c.vectors.Store(id, vec, modelID); err != nil {
		c.logger.Error("coordinator: store embedding failed", "id", id, "error", err)
	}
}
