// Package resolver turns raw wiki-link strings recorded on real nodes into
// stable node ids, materializing ghost nodes for unresolved targets and
// pruning ghosts no longer referenced by anything.
package resolver

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/rouxgraph/roux/internal/ids"
	"github.com/rouxgraph/roux/internal/store"
)

// Node is the minimal shape the resolver needs from a cache entry: enough
// to partition real/ghost, index filenames/paths/titles, and rewrite links.
type Node struct {
	ID             string
	Title          string
	IsGhost        bool
	RelativePath   string // empty for ghosts
	RawLinkTargets []string
}

// Rewrite is one real node's resolved outgoing links, keyed by id.
type Rewrite struct {
	ID            string
	OutgoingLinks []string
}

// Result is the full output of one resolution pass.
type Result struct {
	Rewrites     []Rewrite
	GhostsToAdd  []store.Node // newly materialized ghosts, not yet in the cache
	GhostsToDrop []string     // ghost ids no longer referenced by anything
}

// Resolve runs the full link resolution algorithm over the given node set.
// It never mutates the cache itself; callers apply Result atomically.
func Resolve(logger *slog.Logger, nodes []Node) Result {
	if logger == nil {
		logger = slog.Default()
	}

	var real, ghosts []Node
	for _, n := range nodes {
		if n.IsGhost {
			ghosts = append(ghosts, n)
		} else {
			real = append(real, n)
		}
	}

	filenameIndex := buildFilenameIndex(logger, real)
	pathIndex := buildPathIndex(real)
	knownIDs := buildKnownIDSet(nodes)
	ghostRedirect := buildGhostRedirect(logger, real, ghosts)

	existingGhostsByID := make(map[string]Node, len(ghosts))
	for _, g := range ghosts {
		existingGhostsByID[g.ID] = g
	}

	var rewrites []Rewrite
	materialized := make(map[string]store.Node)
	referenced := make(map[string]bool)

	for _, n := range real {
		resolved := make([]string, 0, len(n.RawLinkTargets))
		seen := make(map[string]bool, len(n.RawLinkTargets))
		for _, raw := range n.RawLinkTargets {
			id := resolveOne(raw, knownIDs, ghostRedirect, pathIndex, filenameIndex, existingGhostsByID, materialized)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			resolved = append(resolved, id)
			if ids.IsGhost(id) {
				referenced[id] = true
			}
		}
		rewrites = append(rewrites, Rewrite{ID: n.ID, OutgoingLinks: resolved})
	}

	var ghostsToAdd []store.Node
	for id, g := range materialized {
		if referenced[id] {
			ghostsToAdd = append(ghostsToAdd, g)
		}
	}
	sort.Slice(ghostsToAdd, func(i, j int) bool { return ghostsToAdd[i].ID < ghostsToAdd[j].ID })

	var ghostsToDrop []string
	for _, g := range ghosts {
		if !referenced[g.ID] {
			ghostsToDrop = append(ghostsToDrop, g.ID)
		}
	}
	sort.Strings(ghostsToDrop)

	return Result{Rewrites: rewrites, GhostsToAdd: ghostsToAdd, GhostsToDrop: ghostsToDrop}
}

// buildFilenameIndex keys case-insensitively by title and by source filename
// without extension. On a collision it keeps the lexicographically-first id
// by relative path and logs a warning, mirroring the keep-first-warn rule
// used elsewhere for duplicate ids.
func buildFilenameIndex(logger *slog.Logger, real []Node) map[string]string {
	type candidate struct {
		id   string
		path string
	}
	raw := make(map[string][]candidate)
	add := func(key string, n Node) {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		raw[key] = append(raw[key], candidate{id: n.ID, path: n.RelativePath})
	}
	for _, n := range real {
		add(n.Title, n)
		add(stemOf(n.RelativePath), n)
	}

	index := make(map[string]string, len(raw))
	for key, cands := range raw {
		sort.Slice(cands, func(i, j int) bool { return cands[i].path < cands[j].path })
		index[key] = cands[0].id
		if len(cands) > 1 {
			ids := make([]string, len(cands))
			for i, c := range cands {
				ids[i] = c.id
			}
			logger.Warn("link resolver: ambiguous filename index entry",
				"key", key, "candidates", ids, "chosen", cands[0].id)
		}
	}
	return index
}

func stemOf(relativePath string) string {
	if relativePath == "" {
		return ""
	}
	base := path.Base(relativePath)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// buildPathIndex keys by source path relative to the source root, lowercase
// with forward slashes, as stored in outgoing_links.
func buildPathIndex(real []Node) map[string]string {
	index := make(map[string]string, len(real))
	for _, n := range real {
		key := normalizePath(n.RelativePath)
		if key == "" {
			continue
		}
		index[key] = n.ID
	}
	return index
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.ToLower(strings.TrimSpace(p))
}

func buildKnownIDSet(nodes []Node) map[string]bool {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	return known
}

// buildGhostRedirect maps a ghost's id to a real node's id whenever a real
// node's (trimmed, case-insensitive) title matches the ghost's title.
func buildGhostRedirect(logger *slog.Logger, real, ghosts []Node) map[string]string {
	titleToReal := make(map[string]string, len(real))
	for _, n := range real {
		key := strings.ToLower(strings.TrimSpace(n.Title))
		if key == "" {
			continue
		}
		if existing, ok := titleToReal[key]; ok && existing != n.ID {
			logger.Warn("link resolver: ambiguous real-node title", "title", key, "kept", existing)
			continue
		}
		titleToReal[key] = n.ID
	}

	redirect := make(map[string]string)
	for _, g := range ghosts {
		key := strings.ToLower(strings.TrimSpace(g.Title))
		if realID, ok := titleToReal[key]; ok {
			redirect[g.ID] = realID
		}
	}
	return redirect
}

// resolveOne resolves a single raw wiki-link target through the full
// precedence chain, materializing a ghost as a last resort. materialized
// accumulates newly-created ghosts across the whole pass so a link target
// repeated across nodes reuses the same ghost id.
func resolveOne(
	raw string,
	knownIDs map[string]bool,
	ghostRedirect map[string]string,
	pathIndex map[string]string,
	filenameIndex map[string]string,
	existingGhosts map[string]Node,
	materialized map[string]store.Node,
) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if knownIDs[raw] {
		if redirected, ok := ghostRedirect[raw]; ok {
			return redirected
		}
		return raw
	}

	if strings.Contains(raw, "/") {
		if id, ok := pathIndex[normalizePath(raw)]; ok {
			return id
		}
	}

	stripped := stripFragmentAndExt(raw)
	if id, ok := filenameIndex[strings.ToLower(stripped)]; ok {
		return id
	}
	if id, ok := filenameIndex[strings.ToLower(swapSpaceDash(stripped))]; ok {
		return id
	}

	return materializeGhost(raw, existingGhosts, materialized)
}

func stripFragmentAndExt(s string) string {
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ".md")
	return strings.TrimSpace(s)
}

func swapSpaceDash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ':
			b.WriteRune('-')
		case '-':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func materializeGhost(rawTitle string, existingGhosts map[string]Node, materialized map[string]store.Node) string {
	id := ids.Ghost(rawTitle)
	if _, ok := existingGhosts[id]; ok {
		return id
	}
	if _, ok := materialized[id]; !ok {
		materialized[id] = store.Node{ID: id, Title: rawTitle, IsGhost: true}
	}
	return id
}
