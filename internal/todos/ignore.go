package todos

import (
	"context"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sha1n/palpatine/internal/gitrepo"
)

// IgnoreFilter decides which walk entries are skipped. The repository's
// ignore rules are authoritative; user exclude globs are layered on top.
type IgnoreFilter struct {
	repo    gitrepo.Repository
	exclude []string
}

// NewIgnoreFilter creates a filter for repo. Exclude patterns use doublestar
// syntax and are matched against the slash separated relative path.
func NewIgnoreFilter(repo gitrepo.Repository, exclude []string) *IgnoreFilter {
	return &IgnoreFilter{
		repo:    repo,
		exclude: exclude,
	}
}

// IsIgnored reports whether path should be skipped. A backend failure
// counts as not ignored.
func (f *IgnoreFilter) IsIgnored(ctx context.Context, path string, isDir bool) bool {
	ignored, err := f.repo.IsIgnored(ctx, path, isDir)
	if err != nil {
		slog.Debug("Ignore check failed, treating as not ignored", "path", path, "error", err)
		ignored = false
	}
	if ignored {
		return true
	}

	if len(f.exclude) == 0 {
		return false
	}
	relPath, ok := gitrepo.RelativePath(f.repo.Root(), path)
	if !ok {
		return false
	}
	for _, pattern := range f.exclude {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}
