package coordinator

import (
	"context"
	"fmt"

	"github.com/rouxgraph/roux/internal/scanner"
)

// Sync brings the cache and indexes into agreement with the current
// filesystem state — §4.8.1.
func (c *Coordinator) Sync(ctx context.Context) error {
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

	results, err := c.scan.Scan(ctx, scanner.Options{
		RootDir:    c.cfg.RootDir,
		Extensions: c.readers.Extensions(),
	})
	if err != nil {
		return fmt.Errorf("coordinator: sync: scan: %w", err)
	}

	seenPaths := make(map[string]bool)
	seenIDsThisSync := make(map[string]string) // id -> first-seen path

	for res := range results {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if res.Error != nil {
			c.logger.Warn("coordinator: sync: scan error", "error", res.Error)
			continue
		}
		f := res.File
		seenPaths[f.AbsPath] = true

		cached, found, err := c.cache.GetByPath(f.AbsPath)
		if err != nil {
			return fmt.Errorf("coordinator: sync: lookup %s: %w", f.RelativePath, err)
		}
		if found && !f.ModTime.After(cached.Source.ModTime) {
			continue // unchanged since the last sync
		}

		pf, err := c.parseFile(f.AbsPath, f.RelativePath, f.ModTime)
		if err != nil {
			c.logger.Warn("coordinator: sync: parse", "path", f.RelativePath, "error", err)
			continue
		}

		if firstPath, dup := seenIDsThisSync[pf.node.ID]; dup {
			c.logger.Warn("coordinator: sync: duplicate id within sync, keeping first",
				"id", pf.node.ID, "kept_path", firstPath, "dropped_path", f.RelativePath)
			continue
		}
		seenIDsThisSync[pf.node.ID] = f.RelativePath

		if found && cached.ID != pf.node.ID {
			if err := c.dropNode(cached.ID); err != nil {
				c.logger.Warn("coordinator: sync: drop stale path owner", "path", f.RelativePath, "error", err)
			}
		}

		if err := c.upsertParsed(pf); err != nil {
			return fmt.Errorf("coordinator: sync: upsert %s: %w", f.RelativePath, err)
		}
	}

	tracked, err := c.cache.ListAllTrackedPaths()
	if err != nil {
		return fmt.Errorf("coordinator: sync: list tracked: %w", err)
	}
	for _, abs := range tracked {
		if seenPaths[abs] {
			continue
		}
		node, found, err := c.cache.GetByPath(abs)
		if err != nil {
			return fmt.Errorf("coordinator: sync: lookup removed path: %w", err)
		}
		if !found || node.IsGhost {
			continue
		}
		if err := c.dropNode(node.ID); err != nil {
			return fmt.Errorf("coordinator: sync: drop %s: %w", abs, err)
		}
	}

	if err := c.reresolveAndRebuild(); err != nil {
		return fmt.Errorf("coordinator: sync: resolve: %w", err)
	}

	c.embedMissing(ctx)

	return nil
}
