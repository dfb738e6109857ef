// Package coordinator is the sole write authority over the document cache,
// vector index, and graph index: it serializes every mutation, whether
// originated by the query façade or delivered by the file watcher, and
// keeps the three stores in agreement with the filesystem and with each
// other.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/rouxgraph/roux/internal/embed"
	"github.com/rouxgraph/roux/internal/graph"
	"github.com/rouxgraph/roux/internal/reader"
	"github.com/rouxgraph/roux/internal/scanner"
	"github.com/rouxgraph/roux/internal/store"
	"github.com/rouxgraph/roux/internal/watcher"
)

// Config configures a Coordinator.
type Config struct {
	RootDir        string
	CacheDir       string // defaults to RootDir/.roux
	Extensions     []string
	WatcherOptions watcher.Options
	GracePeriod    time.Duration // pending-unlink grace period, §5
	EmbedWorkers   int           // background embedding concurrency, 0 picks runtime.NumCPU()
}

// pendingUnlink is a deletion awaiting its grace period, §4.8.2 step 1/5.
type pendingUnlink struct {
	path string
	at   time.Time
}

// Coordinator owns write serialization across the cache, vector index, and
// graph index, per spec §4.8.5: a mutex around the mutation path plus the
// watcher's own pause/resume prevents concurrent mutation from two sources.
type Coordinator struct {
	cfg     Config
	cache   *store.Cache
	vectors *store.VectorIndex
	readers *reader.Registry
	scan    *scanner.Scanner
	watch   *watcher.Watcher
	embeds  *embed.Registry
	logger  *slog.Logger

	procLock *flock.Flock

	mu     sync.Mutex
	graph  *graph.Graph
	// rawLinks holds each real node's unresolved [[wiki-link]] targets as
	// extracted at parse time, keyed by node id. The cache only durably
	// stores resolved outgoing_links (ids), so this in-memory map is what
	// lets the resolver be rerun later — e.g. when a new file arrives that
	// satisfies a target that previously materialized a ghost. It is
	// rebuilt wholesale by Sync and updated incrementally by reconciliation
	// and CRUD, so losing it across a process restart is harmless: the
	// next Sync reconstructs it by reparsing every file.
	rawLinks       map[string][]string
	pendingUnlinks map[string]pendingUnlink

	onChange func(ctx context.Context, touched []string)
}

// New constructs a Coordinator. cache and vectors must already be open;
// readers should have at least the markdown parser registered.
func New(cfg Config, cache *store.Cache, vectors *store.VectorIndex, readers *reader.Registry, embeds *embed.Registry, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.RootDir, ".roux")
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 5 * time.Second
	}
	if cfg.WatcherOptions.RootDir == "" {
		cfg.WatcherOptions.RootDir = cfg.RootDir
	}
	if len(cfg.WatcherOptions.Extensions) == 0 {
		cfg.WatcherOptions.Extensions = readers.Extensions()
	}

	return &Coordinator{
		cfg:            cfg,
		cache:          cache,
		vectors:        vectors,
		readers:        readers,
		scan:           scanner.New(),
		embeds:         embeds,
		logger:         logger,
		procLock:       flock.New(filepath.Join(cfg.CacheDir, "coordinator.lock")),
		graph:          graph.Build(nil),
		rawLinks:       make(map[string][]string),
		pendingUnlinks: make(map[string]pendingUnlink),
	}
}

// OnChange registers the callback invoked with the ids touched by a
// reconciliation pass, per §4.8.2 step 6.
func (c *Coordinator) OnChange(fn func(ctx context.Context, touched []string)) {
	c.onChange = fn
}

// Embeds exposes the embedder registry so callers outside the coordinator
// (the query façade's search and semantic resolution) can reach the active
// embedder without duplicating the reference.
func (c *Coordinator) Embeds() *embed.Registry {
	return c.embeds
}

// Graph returns the current in-memory graph snapshot. Safe to call
// concurrently with mutation: the coordinator swaps the pointer atomically
// under its own mutex, and this read observes the version as of the call.
func (c *Coordinator) Graph() *graph.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph
}

// lockProcess acquires the cross-process file lock guarding the mutation
// path (§B of the domain stack: one process-wide exclusive lock file,
// underneath the in-process mutex, serializing multiple roux processes
// pointed at the same vault).
func (c *Coordinator) lockProcess() error {
	if err := os.MkdirAll(c.cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("coordinator: create cache dir: %w", err)
	}
	if err := c.procLock.Lock(); err != nil {
		return fmt.Errorf("coordinator: acquire process lock: %w", err)
	}
	return nil
}

func (c *Coordinator) unlockProcess() {
	if err := c.procLock.Unlock(); err != nil {
		c.logger.Warn("coordinator: release process lock", "error", err)
	}
}

// AttachWatcher wires a started Watcher's event stream into incremental
// reconciliation, and its error stream into the logger. Call after Sync.
func (c *Coordinator) AttachWatcher(ctx context.Context, w *watcher.Watcher) {
	c.watch = w
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-w.Events():
				if !ok {
					return
				}
				if err := c.HandleBatch(ctx, batch); err != nil {
					c.logger.Error("coordinator: reconcile batch", "error", err)
				}
			case err, ok := <-w.Errors():
				if !ok {
					continue
				}
				c.logger.Warn("coordinator: watcher error", "error", err)
			}
		}
	}()
}

func relPath(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}
