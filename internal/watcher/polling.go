package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// pollingWatcher is the fallback used when fsnotify cannot be initialized
// (e.g. inotify descriptor exhaustion), trading latency for portability.
type pollingWatcher struct {
	opts   Options
	logger *slog.Logger
	state  map[string]time.Time
}

func newPollingWatcher(opts Options, logger *slog.Logger) *pollingWatcher {
	return &pollingWatcher{opts: opts, logger: logger, state: make(map[string]time.Time)}
}

func (p *pollingWatcher) Run(ctx context.Context, d *debouncer, isPaused func() bool, onError func(error)) error {
	if err := p.scan(func(rel string, mt time.Time) {
		p.state[rel] = mt
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if isPaused() {
				continue
			}
			p.tick(d, onError)
		}
	}
}

func (p *pollingWatcher) tick(d *debouncer, onError func(error)) {
	seen := make(map[string]time.Time, len(p.state))
	err := p.scan(func(rel string, mt time.Time) {
		seen[rel] = mt
		prev, existed := p.state[rel]
		switch {
		case !existed:
			d.Add(Event{RelativePath: rel, Op: OpAdd, Timestamp: time.Now()})
		case !prev.Equal(mt):
			d.Add(Event{RelativePath: rel, Op: OpChange, Timestamp: time.Now()})
		}
	})
	if err != nil {
		onError(err)
		return
	}
	for rel := range p.state {
		if _, ok := seen[rel]; !ok {
			d.Add(Event{RelativePath: rel, Op: OpUnlink, Timestamp: time.Now()})
		}
	}
	p.state = seen
}

func (p *pollingWatcher) scan(record func(rel string, mt time.Time)) error {
	exts := make(map[string]bool, len(p.opts.Extensions))
	for _, e := range p.opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	return filepath.WalkDir(p.opts.RootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != p.opts.RootDir && excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, relErr := filepath.Rel(p.opts.RootDir, path)
		if relErr != nil {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		record(normalizeRelPath(rel), info.ModTime())
		return nil
	})
}
