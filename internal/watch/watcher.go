// Package watch re-runs the index pass when files in the working tree change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultInterval is the quiet period before a batch of changes is handled.
const DefaultInterval = 100 * time.Millisecond

// IgnoreChecker decides which paths are not watched.
type IgnoreChecker interface {
	IsIgnored(ctx context.Context, path string, isDir bool) bool
}

// Watcher provides recursive file system watching with debouncing.
type Watcher struct {
	ctx       context.Context
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	ignore    IgnoreChecker
	root      string
	skipDir   string
}

// New creates a recursive watcher on root. Ignored directories and skipDir
// are not watched.
func New(ctx context.Context, root, skipDir string, ignore IgnoreChecker, interval time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		ctx:       ctx,
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(interval),
		ignore:    ignore,
		root:      root,
		skipDir:   skipDir,
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries that can't be read
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipPath(path, true) {
			return filepath.SkipDir
		}
		if watchErr := fsWatcher.Add(path); watchErr != nil {
			slog.Warn("Failed to watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
	if err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Events returns the channel that receives debounced batches of changed paths.
func (w *Watcher) Events() <-chan []string {
	return w.debouncer.Output()
}

// Start handles file system events until the watcher is closed.
// Call this in a goroutine.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.skipPath(path, true) {
				return
			}
			if err := w.fsWatcher.Add(path); err != nil {
				slog.Warn("Failed to watch new directory", "path", path, "error", err)
			}
			// Files created together with the directory may predate the watch
			w.debouncer.Add(path)
			return
		}
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.skipPath(path, false) {
		return
	}

	w.debouncer.Add(path)
}

func (w *Watcher) skipPath(path string, isDir bool) bool {
	if w.skipDir != "" && (path == w.skipDir || filepath.Dir(path) == w.skipDir) {
		return true
	}
	return w.ignore.IsIgnored(w.ctx, path, isDir)
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}

// Run performs pass once, then again after every batch of changes, until
// ctx is done. A failing pass is logged and watching continues.
func Run(ctx context.Context, w *Watcher, pass func(context.Context) error) error {
	defer func() {
		if err := w.Close(); err != nil {
			slog.Error("Failed to close watcher", "error", err)
		}
	}()

	if err := pass(ctx); err != nil {
		slog.Error("Index pass failed", "error", err)
	}

	go w.Start()

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-w.Events():
			slog.Info("Changes detected", "paths", len(batch))
			if err := pass(ctx); err != nil {
				slog.Error("Index pass failed", "error", err)
			}
		}
	}
}
