package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	rouxerrors "github.com/rouxgraph/roux/internal/errors"
	"github.com/rouxgraph/roux/internal/graph"
	"github.com/rouxgraph/roux/internal/ids"
	"github.com/rouxgraph/roux/internal/reader"
	"github.com/rouxgraph/roux/internal/scanner"
	"github.com/rouxgraph/roux/internal/store"
)

// CreateRequest is the coordinator-level shape of a create_node mutation —
// §4.8.4. RelativePath must end in an extension the reader registry knows.
type CreateRequest struct {
	RelativePath string
	Title        string
	Content      string
	Tags         []string
}

// CreateNode writes a new source file with a fresh identifier, upserts it,
// and re-resolves/rebuilds — §4.8.4 create.
func (c *Coordinator) CreateNode(ctx context.Context, req CreateRequest) (store.Node, error) {
	if err := c.lockProcess(); err != nil {
		return store.Node{}, err
	}
	defer c.unlockProcess()

	c.mu.Lock()
	defer c.mu.Unlock()

	ext := strings.ToLower(filepath.Ext(req.RelativePath))
	if _, ok := c.readers.Lookup(ext); !ok {
		return store.Node{}, rouxerrors.InvalidParams("create_node: unregistered extension " + ext)
	}

	abs, err := scanner.ResolveSafe(c.cfg.RootDir, req.RelativePath)
	if err != nil {
		return store.Node{}, rouxerrors.New(rouxerrors.ErrCodePathTraversal, err.Error(), err)
	}

	tracked, err := c.cache.ListAllTrackedPaths()
	if err != nil {
		return store.Node{}, err
	}
	for _, p := range tracked {
		if strings.EqualFold(p, abs) {
			return store.Node{}, rouxerrors.NodeExists("create_node: a node already exists at this path")
		}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return store.Node{}, rouxerrors.IOError("create_node: create directories", err)
	}

	newID, err := ids.New()
	if err != nil {
		return store.Node{}, rouxerrors.InternalError("create_node: generate id", err)
	}
	rendered := reader.RenderFrontmatter(newID, req.Title, req.Tags, nil, req.Content)
	if err := os.WriteFile(abs, rendered, 0o644); err != nil {
		return store.Node{}, rouxerrors.IOError("create_node: write file", err)
	}

	mt, err := scanner.ModTime(abs)
	if err != nil {
		return store.Node{}, rouxerrors.Wrap(rouxerrors.ErrCodeIOMissing, err)
	}

	pf, err := c.parseFile(abs, req.RelativePath, mt)
	if err != nil {
		return store.Node{}, err
	}
	if err := c.upsertParsed(pf); err != nil {
		return store.Node{}, err
	}
	if err := c.reresolveAndRebuild(); err != nil {
		return store.Node{}, err
	}
	c.embedOne(ctx, pf.node.ID, pf.node.Content)

	return pf.node, nil
}

// NodeUpdates carries the fields an update_node call wants to change; a nil
// pointer means "leave as-is".
type NodeUpdates struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// UpdateNode rewrites an existing real node's source file, preserving its
// id, then re-resolves/rebuilds — §4.8.4 update.
func (c *Coordinator) UpdateNode(ctx context.Context, id string, updates NodeUpdates) (store.Node, error) {
	if err := c.lockProcess(); err != nil {
		return store.Node{}, err
	}
	defer c.unlockProcess()

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, found, err := c.cache.Get(id)
	if err != nil {
		return store.Node{}, err
	}
	if !found {
		return store.Node{}, rouxerrors.NotFound("update_node: no such node")
	}
	if existing.IsGhost {
		return store.Node{}, rouxerrors.InvalidParams("update_node: cannot update a ghost node")
	}

	title := existing.Title
	if updates.Title != nil {
		title = *updates.Title
	}
	content := existing.Content
	if updates.Content != nil {
		content = *updates.Content
	}
	tags := existing.Tags
	if updates.Tags != nil {
		tags = *updates.Tags
	}

	if updates.Title != nil {
		if incoming := c.graph.Neighbors(id, graph.DirectionIn, 1); len(incoming) > 0 {
			return store.Node{}, rouxerrors.LinkIntegrity("update_node: cannot change title of a node with incoming links")
		}
	}

	rendered := reader.RenderFrontmatter(id, title, tags, existing.Properties, content)
	if err := os.WriteFile(existing.Source.AbsolutePath, rendered, 0o644); err != nil {
		return store.Node{}, rouxerrors.IOError("update_node: write file", err)
	}

	mt, err := scanner.ModTime(existing.Source.AbsolutePath)
	if err != nil {
		return store.Node{}, rouxerrors.Wrap(rouxerrors.ErrCodeIOMissing, err)
	}

	rel := relPath(c.cfg.RootDir, existing.Source.AbsolutePath)
	pf, err := c.parseFile(existing.Source.AbsolutePath, rel, mt)
	if err != nil {
		return store.Node{}, err
	}
	if err := c.upsertParsed(pf); err != nil {
		return store.Node{}, err
	}
	if err := c.reresolveAndRebuild(); err != nil {
		return store.Node{}, err
	}
	if updates.Content != nil {
		c.embedOne(ctx, id, pf.node.Content)
	}

	return pf.node, nil
}

// DeleteNode removes a real node's source file plus its cache and vector
// records — §4.8.4 delete.
func (c *Coordinator) DeleteNode(id string) (bool, error) {
	if err := c.lockProcess(); err != nil {
		return false, err
	}
	defer c.unlockProcess()

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, found, err := c.cache.Get(id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if !existing.IsGhost {
		if err := os.Remove(existing.Source.AbsolutePath); err != nil && !os.IsNotExist(err) {
			return false, rouxerrors.IOError("delete_node: remove file", err)
		}
	}

	if err := c.dropNode(id); err != nil {
		return false, err
	}
	if err := c.reresolveAndRebuild(); err != nil {
		return false, err
	}
	return true, nil
}
