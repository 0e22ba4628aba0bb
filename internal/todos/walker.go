package todos

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sha1n/palpatine/internal/gitrepo"
)

// irregularMode covers entries whose contents cannot be read like a file.
const irregularMode = fs.ModeNamedPipe | fs.ModeSocket | fs.ModeDevice | fs.ModeCharDevice | fs.ModeIrregular

// Entry is a file found by the walk.
type Entry struct {
	// Path is the absolute path.
	Path string
	// RelativePath is slash separated and relative to the repository root.
	RelativePath string
}

// TreeWalker enumerates the files of a working tree depth-first, in
// pre-order, with directory entries visited in name order.
type TreeWalker struct {
	root    string
	filter  *IgnoreFilter
	skipDir string
}

// NewTreeWalker creates a walker over root. The skipDir directory, when set,
// is never entered.
func NewTreeWalker(root string, filter *IgnoreFilter, skipDir string) *TreeWalker {
	return &TreeWalker{
		root:    root,
		filter:  filter,
		skipDir: skipDir,
	}
}

// Walk sends every non-ignored file to out. It does not close out.
// A directory that cannot be read stops the walk with a *WalkError.
func (w *TreeWalker) Walk(ctx context.Context, out chan<- Entry) error {
	return w.walkDir(ctx, w.root, out)
}

func (w *TreeWalker) walkDir(ctx context.Context, dir string, out chan<- Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &WalkError{Path: dir, Err: err}
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())

		if path == w.skipDir {
			continue
		}
		if e.Type()&irregularMode != 0 {
			slog.Debug("Skipping irregular file", "path", path)
			continue
		}
		if w.filter.IsIgnored(ctx, path, e.IsDir()) {
			slog.Debug("Skipping ignored path", "path", path)
			continue
		}

		if e.IsDir() {
			if err := w.walkDir(ctx, path, out); err != nil {
				return err
			}
			continue
		}

		relPath, ok := gitrepo.RelativePath(w.root, path)
		if !ok {
			continue
		}
		select {
		case out <- Entry{Path: path, RelativePath: relPath}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
