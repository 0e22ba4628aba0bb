// Package todos implements the incremental TODO index: walking a working
// tree, scanning changed files for markers, attributing them with blame and
// persisting the result.
package todos

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sha1n/palpatine/internal/domain"
	"github.com/sha1n/palpatine/internal/gitrepo"
)

// Options configure a Runner.
type Options struct {
	// CacheDir is the cache directory name under the repository root.
	CacheDir string
	// Workers is the number of files indexed concurrently. Defaults to 1.
	Workers int
	// Exclude holds doublestar globs skipped in addition to ignored paths.
	Exclude []string
	// Now is the clock used for lastIndexed. Defaults to time.Now.
	Now func() time.Time
}

// Summary describes a completed run.
type Summary struct {
	// Updated is the number of files (re)scanned.
	Updated int
	// Visited is the number of files the walk produced.
	Visited int
	// Pruned is the number of rows dropped because their file was not visited.
	Pruned int
	// Index is the saved index.
	Index domain.Index
}

// Runner performs index runs over one repository.
type Runner struct {
	repo  gitrepo.Repository
	store *IndexStore
	opts  Options
}

// NewRunner creates a runner for repo.
func NewRunner(repo gitrepo.Repository, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		repo:  repo,
		store: NewIndexStore(repo.Root(), opts.CacheDir),
		opts:  opts,
	}
}

// Store returns the runner's index store.
func (r *Runner) Store() *IndexStore {
	return r.store
}

// Load returns the saved index, or an empty one.
func (r *Runner) Load() domain.Index {
	return r.store.Load()
}

// Run walks the tree, re-scans stale files and saves the index. Any fatal
// error aborts the run before anything is written.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	lock := NewFileLock(r.store.LockPath())
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Error("Failed to unlock", "error", err)
		}
	}()

	prior := r.store.Load()

	summary, err := r.index(ctx, prior)
	if err != nil {
		return nil, err
	}

	if err := r.store.Save(summary.Index); err != nil {
		return nil, err
	}

	slog.Info("Index saved",
		"path", r.store.Path(),
		"updated", summary.Updated,
		"visited", summary.Visited,
		"pruned", summary.Pruned)

	return summary, nil
}

// index runs the walk -> workers -> consumer pipeline. Workers only read
// prior; the consumer alone writes the next index.
func (r *Runner) index(ctx context.Context, prior domain.Index) (*Summary, error) {
	filter := NewIgnoreFilter(r.repo, r.opts.Exclude)
	walker := NewTreeWalker(r.repo.Root(), filter, r.store.Dir())
	indexer := NewIndexer(r.store.Path(), NewAttributionResolver(r.repo), r.opts.Now)

	g, gctx := errgroup.WithContext(ctx)
	entries := make(chan Entry)
	results := make(chan Result)

	g.Go(func() error {
		defer close(entries)
		return walker.Walk(gctx, entries)
	})

	var workers sync.WaitGroup
	for range r.opts.Workers {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for entry := range entries {
				result, err := indexer.IndexFile(gctx, prior, entry)
				if err != nil {
					return err
				}
				select {
				case results <- result:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		workers.Wait()
		close(results)
		return nil
	})

	next := domain.NewIndex()
	summary := &Summary{Index: next}
	for result := range results {
		applyResult(next, prior, result, summary)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for key := range prior {
		if _, ok := next[key]; !ok {
			slog.Debug("Pruning row", "path", key)
			summary.Pruned++
		}
	}

	return summary, nil
}

func applyResult(next, prior domain.Index, result Result, summary *Summary) {
	key := result.Entry.RelativePath

	switch result.Outcome {
	case SkippedCacheFile:
		return
	case Scanned:
		next[key] = result.Row
		summary.Updated++
	default:
		// Untouched rows are carried over as they were. A file that had a
		// row and is now skipped as non-text or unreadable keeps its old row;
		// only files never scanned end up without one.
		if row, ok := prior[key]; ok {
			next[key] = row
		}
	}
	summary.Visited++
}
