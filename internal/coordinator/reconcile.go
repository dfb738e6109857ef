package coordinator

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rouxgraph/roux/internal/scanner"
	"github.com/rouxgraph/roux/internal/watcher"
)

// HandleBatch applies one coalesced batch of filesystem events — §4.8.2.
// The coordinator pauses the watcher for the duration (mirroring Sync) and
// catches per-item errors so one bad file doesn't abort the whole batch.
func (c *Coordinator) HandleBatch(ctx context.Context, batch []watcher.Event) error {
	if err := c.lockProcess(); err != nil {
		return err
	}
	defer c.unlockProcess()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watch != nil {
		c.watch.Pause()
		defer c.watch.Resume()
	}

	c.expirePendingUnlinks()

	batchUnlinks := make(map[string]string) // id -> absolute path
	var adds, changes []watcher.Event
	for _, evt := range batch {
		abs := filepath.Join(c.cfg.RootDir, evt.RelativePath)
		switch evt.Op {
		case watcher.OpUnlink:
			if node, found, err := c.cache.GetByPath(abs); err == nil && found && !node.IsGhost {
				batchUnlinks[node.ID] = abs
			}
		case watcher.OpAdd:
			adds = append(adds, evt)
		case watcher.OpChange:
			changes = append(changes, evt)
		}
	}

	var touched []string
	changed := false

	for _, evt := range adds {
		abs := filepath.Join(c.cfg.RootDir, evt.RelativePath)
		pf, err := c.parseFileAt(abs, evt.RelativePath)
		if err != nil {
			c.logger.Warn("coordinator: reconcile: parse add", "path", evt.RelativePath, "error", err)
			continue
		}
		id := pf.node.ID

		_, renamedWithinBatch := batchUnlinks[id]
		switch {
		case renamedWithinBatch:
			delete(batchUnlinks, id)
		case c.hasPendingUnlink(id):
			delete(c.pendingUnlinks, id)
		default:
			if existing, found, err := c.cache.GetByPath(abs); err == nil && found && existing.ID != id {
				if err := c.dropNode(existing.ID); err != nil {
					c.logger.Warn("coordinator: reconcile: drop stale path owner", "path", abs, "error", err)
				}
			}
		}
		if err := c.upsertParsed(pf); err != nil {
			c.logger.Warn("coordinator: reconcile: upsert add", "path", evt.RelativePath, "error", err)
			continue
		}
		touched = append(touched, id)
		changed = true
	}

	for _, evt := range changes {
		abs := filepath.Join(c.cfg.RootDir, evt.RelativePath)
		pf, err := c.parseFileAt(abs, evt.RelativePath)
		if err != nil {
			c.logger.Warn("coordinator: reconcile: parse change", "path", evt.RelativePath, "error", err)
			continue
		}
		if existing, found, err := c.cache.GetByPath(abs); err == nil && found && existing.ID != pf.node.ID {
			if err := c.dropNode(existing.ID); err != nil {
				c.logger.Warn("coordinator: reconcile: drop superseded id", "path", abs, "error", err)
			}
		}
		if err := c.upsertParsed(pf); err != nil {
			c.logger.Warn("coordinator: reconcile: upsert change", "path", evt.RelativePath, "error", err)
			continue
		}
		touched = append(touched, pf.node.ID)
		changed = true
	}

	for id, path := range batchUnlinks {
		if err := c.deleteCacheEntryOnly(id); err != nil {
			c.logger.Warn("coordinator: reconcile: delete unlinked", "id", id, "error", err)
			continue
		}
		c.pendingUnlinks[id] = pendingUnlink{path: path, at: time.Now()}
		touched = append(touched, id)
		changed = true
	}

	if !changed {
		return nil
	}

	if err := c.reresolveAndRebuild(); err != nil {
		return err
	}

	for _, id := range touched {
		if node, found, err := c.cache.Get(id); err == nil && found && !node.IsGhost {
			c.embedOne(ctx, id, node.Content)
		}
	}

	if c.onChange != nil {
		c.onChange(ctx, touched)
	}
	return nil
}

// parseFileAt parses a file freshly touched by the watcher, stat-ing its
// current mtime since watcher events don't carry one.
func (c *Coordinator) parseFileAt(abs, rel string) (parsedFile, error) {
	mt, err := scanner.ModTime(abs)
	if err != nil {
		return parsedFile{}, err
	}
	return c.parseFile(abs, rel, mt)
}

// expirePendingUnlinks deletes the vector record for any pending unlink
// whose grace period has elapsed — §4.8.2 step 1. The cache entry was
// already removed when the unlink was first observed; only the vector
// deletion is deferred, to absorb a rename expressed as delete-then-add
// across a batch boundary.
func (c *Coordinator) expirePendingUnlinks() {
	now := time.Now()
	for id, pu := range c.pendingUnlinks {
		if now.Sub(pu.at) < c.cfg.GracePeriod {
			continue
		}
		if err := c.vectors.Delete(id); err != nil {
			c.logger.Warn("coordinator: expire pending unlink: delete vector", "id", id, "error", err)
		}
		delete(c.pendingUnlinks, id)
	}
}

func (c *Coordinator) hasPendingUnlink(id string) bool {
	_, ok := c.pendingUnlinks[id]
	return ok
}

// deleteCacheEntryOnly removes the cache row and raw-link bookkeeping but
// deliberately leaves the vector record in place for the grace period.
func (c *Coordinator) deleteCacheEntryOnly(id string) error {
	if err := c.cache.Delete(id); err != nil {
		return err
	}
	delete(c.rawLinks, id)
	return nil
}
