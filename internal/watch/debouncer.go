package watch

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Debouncer collects changed paths and emits them as one batch after a
// quiet period. Repeated changes to a path within the window collapse.
type Debouncer struct {
	interval time.Duration
	paths    map[string]struct{}
	mu       sync.Mutex
	timer    *time.Timer
	output   chan []string
}

// NewDebouncer creates a debouncer with the specified quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		paths:    make(map[string]struct{}),
		output:   make(chan []string, 1),
	}
}

// Output returns the channel that receives batches, sorted by path.
func (d *Debouncer) Output() <-chan []string {
	return d.output
}

// Add records a changed path and restarts the quiet period.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.paths[path] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// Stop cancels a pending flush.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.paths) == 0 {
		return
	}

	batch := make([]string, 0, len(d.paths))
	for p := range d.paths {
		batch = append(batch, p)
	}
	sort.Strings(batch)

	select {
	case d.output <- batch:
		d.paths = make(map[string]struct{})
	default:
		// A batch is still pending; keep the paths for the next flush
		slog.Debug("Change batch pending, deferring", "paths", len(batch))
		d.timer = time.AfterFunc(d.interval, d.flush)
	}
}
