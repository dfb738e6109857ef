package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// excludedDirs mirrors the scanner's fixed exclusion set (§4.6); the
// watcher applies it independently since it sees raw filesystem paths the
// scanner never revisits.
var excludedDirs = map[string]bool{
	".roux":        true,
	"node_modules": true,
	".git":         true,
	".obsidian":    true,
}

// Watcher is a debounced fsnotify-backed event producer, falling back to
// polling if fsnotify cannot be initialized.
type Watcher struct {
	opts       Options
	extensions map[string]bool
	debouncer  *debouncer
	logger     *slog.Logger

	fsw  *fsnotify.Watcher
	poll *pollingWatcher

	mu      sync.RWMutex
	paused  bool
	errors  chan error
	stopCh  chan struct{}
	stopped bool
}

// New creates a Watcher. It does not begin watching until Start is called.
func New(opts Options, logger *slog.Logger) *Watcher {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Watcher{
		opts:       opts,
		extensions: exts,
		debouncer:  newDebouncer(opts.Debounce),
		logger:     logger,
		errors:     make(chan error, 16),
		stopCh:     make(chan struct{}),
	}
}

// Start begins watching. It blocks until ctx is cancelled or Stop is
// called; run it in its own goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		if isFDExhaustion(err) {
			w.logger.Error("watcher: file descriptor limit reached, falling back to polling",
				"hint", "raise the process file-descriptor limit (ulimit -n) or reduce vault size", "error", err)
		} else {
			w.logger.Warn("watcher: fsnotify unavailable, falling back to polling", "error", err)
		}
		w.poll = newPollingWatcher(w.opts, w.logger)
		return w.runPolling(ctx)
	}
	w.fsw = fsw
	defer fsw.Close()

	if err := w.addRecursive(w.opts.RootDir); err != nil {
		return fmt.Errorf("watcher: initial directory registration: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case evt, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleFsEvent(evt)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) runPolling(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	err := w.poll.Run(ctx, w.debouncer, w.isPaused, w.reportError)
	select {
	case <-w.stopCh:
		return nil
	default:
		return err
	}
}

func isFDExhaustion(err error) bool {
	return errors.Is(err, fs.ErrClosed) || strings.Contains(strings.ToLower(err.Error()), "too many open files")
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && excludedDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

func (w *Watcher) handleFsEvent(evt fsnotify.Event) {
	rel, err := filepath.Rel(w.opts.RootDir, evt.Name)
	if err != nil {
		return
	}
	if crossesExcludedDir(rel) {
		return
	}

	info, statErr := os.Stat(evt.Name)
	isDir := statErr == nil && info.IsDir()

	if isDir {
		if evt.Op&fsnotify.Create != 0 && w.fsw != nil {
			_ = w.addRecursive(evt.Name)
		}
		return
	}

	if !w.extensions[strings.ToLower(filepath.Ext(evt.Name))] {
		return
	}

	var op Op
	switch {
	case evt.Op&fsnotify.Create != 0:
		op = OpAdd
	case evt.Op&fsnotify.Write != 0:
		op = OpChange
	case evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op = OpUnlink
	case evt.Op&fsnotify.Chmod != 0:
		return
	default:
		return
	}

	w.mu.RLock()
	paused := w.paused
	w.mu.RUnlock()
	if paused {
		return
	}

	w.debouncer.Add(Event{
		RelativePath: normalizeRelPath(rel),
		Op:           op,
		Timestamp:    time.Now(),
	})
}

func crossesExcludedDir(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if excludedDirs[part] {
			return true
		}
	}
	return false
}

func (w *Watcher) reportError(err error) {
	if isFDExhaustion(err) {
		w.logger.Error("watcher: file descriptor exhaustion", "hint", "raise ulimit -n", "error", err)
	} else {
		w.logger.Warn("watcher: error after ready", "error", err)
	}
	select {
	case w.errors <- err:
	default:
	}
}

func (w *Watcher) isPaused() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.paused
}

// Pause drops all subsequently observed events and any pending debounced
// batch, per the coordinator's bulk-sync/batch-processing re-entry guard.
func (w *Watcher) Pause() {
	w.mu.Lock()
	w.paused = true
	w.mu.Unlock()
	w.debouncer.Pause()
}

// Resume re-enables event delivery.
func (w *Watcher) Resume() {
	w.mu.Lock()
	w.paused = false
	w.mu.Unlock()
	w.debouncer.Resume()
}

// Flush forces immediate emission of any pending debounced batch.
func (w *Watcher) Flush() {
	w.debouncer.Flush()
}

// Events returns the channel of coalesced, filtered event batches.
func (w *Watcher) Events() <-chan []Event {
	return w.debouncer.Output()
}

// Errors returns the channel of non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher. Safe to call once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopCh)
}
