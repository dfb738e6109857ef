package watcher

import (
	"sync"
	"time"
)

// debouncer coalesces per-path events within a sliding window per spec
// §4.7's coalescing table, emitting the accumulated batch in insertion
// order on timer expiry or an explicit flush.
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	order   []string
	pending map[string]Event
	timer   *time.Timer
	paused  bool
	output  chan []Event
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]Event),
		output:  make(chan []Event, 16),
	}
}

// Add records a new event for a path, coalescing with any pending event
// for that path, and (re)starts the debounce timer.
func (d *debouncer) Add(evt Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.paused {
		return
	}

	existing, had := d.pending[evt.RelativePath]
	if !had {
		d.pending[evt.RelativePath] = evt
		d.order = append(d.order, evt.RelativePath)
		d.resetTimer()
		return
	}

	result, drop := coalesce(existing.Op, evt.Op)
	if drop {
		delete(d.pending, evt.RelativePath)
		d.removeFromOrder(evt.RelativePath)
		if len(d.pending) == 0 && d.timer != nil {
			d.timer.Stop()
		}
		return
	}
	evt.Op = result
	d.pending[evt.RelativePath] = evt
	d.resetTimer()
}

// coalesce implements spec §4.7's per-path coalescing table.
func coalesce(existing, incoming Op) (result Op, drop bool) {
	switch existing {
	case OpAdd:
		switch incoming {
		case OpChange:
			return OpAdd, false
		case OpUnlink:
			return "", true
		default:
			return incoming, false
		}
	case OpChange:
		switch incoming {
		case OpUnlink:
			return OpUnlink, false
		case OpAdd:
			return OpAdd, false
		default:
			return incoming, false
		}
	case OpUnlink:
		switch incoming {
		case OpAdd:
			return OpAdd, false
		case OpChange:
			return OpUnlink, false
		default:
			return incoming, false
		}
	default:
		return incoming, false
	}
}

func (d *debouncer) removeFromOrder(path string) {
	for i, p := range d.order {
		if p == path {
			d.order = append(d.order[:i], d.order[i+1:]...)
			return
		}
	}
}

func (d *debouncer) resetTimer() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.Flush)
}

// Flush forces immediate emission of the accumulated batch, in insertion
// order, clearing pending state. Safe to call concurrently with Add.
func (d *debouncer) Flush() {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := make([]Event, 0, len(d.order))
	for _, path := range d.order {
		batch = append(batch, d.pending[path])
	}
	d.pending = make(map[string]Event)
	d.order = nil
	d.mu.Unlock()

	// Dropping a full batch here would silently lose filesystem events, so
	// block until the coordinator drains it rather than discard.
	d.output <- batch
}

// Pause drops all pending state and further Add calls until Resume.
func (d *debouncer) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = make(map[string]Event)
	d.order = nil
}

// Resume re-enables Add.
func (d *debouncer) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
}

// Output returns the channel of emitted batches.
func (d *debouncer) Output() <-chan []Event {
	return d.output
}
