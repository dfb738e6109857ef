// Package watcher is a debounced event producer over a vault's source
// tree: fsnotify primary, polling fallback, coalesced through a small
// per-path state machine before being handed to the Store Coordinator.
package watcher

import "time"

// Op is a logical filesystem event kind.
type Op string

const (
	OpAdd    Op = "add"
	OpChange Op = "change"
	OpUnlink Op = "unlink"
)

// Event is one coalesced, filtered file event ready for the coordinator.
type Event struct {
	// RelativePath is normalized: lowercase, forward slashes, relative to
	// the source root.
	RelativePath string
	Op           Op
	Timestamp    time.Time
}

// Options configures a Watcher.
type Options struct {
	RootDir      string
	Extensions   []string // registered extensions, case-insensitive, leading dot
	Debounce     time.Duration
	PollInterval time.Duration // used only if fsnotify fails to initialize
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	return o
}

func normalizeRelPath(p string) string {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '\\' {
			c = '/'
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
