package todos

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sha1n/palpatine/internal/gitrepo"
)

// AttributionResolver finds the contributor who introduced a line.
type AttributionResolver struct {
	repo gitrepo.Repository
}

// NewAttributionResolver creates a resolver backed by repo's blame.
func NewAttributionResolver(repo gitrepo.Repository) *AttributionResolver {
	return &AttributionResolver{repo: repo}
}

// Resolve returns the author of the 0-based row of relPath, if known.
func (r *AttributionResolver) Resolve(ctx context.Context, relPath string, row int) (string, bool) {
	return r.ForFile(ctx, relPath).Resolve(row)
}

// ForFile returns an attribution scoped to one file. Blame runs at most once
// per FileAttribution, on the first Resolve call.
func (r *AttributionResolver) ForFile(ctx context.Context, relPath string) *FileAttribution {
	return &FileAttribution{
		ctx:     ctx,
		repo:    r.repo,
		relPath: relPath,
	}
}

// FileAttribution caches the blame of a single file. Not safe for concurrent use.
type FileAttribution struct {
	ctx     context.Context
	repo    gitrepo.Repository
	relPath string

	loaded bool
	blame  *gitrepo.BlameResult
}

// Resolve returns the author of the 0-based row. Missing history, a missing
// name and blame failures all report false.
func (a *FileAttribution) Resolve(row int) (string, bool) {
	if !a.loaded {
		a.loaded = true
		blame, err := a.repo.Blame(a.ctx, a.relPath)
		switch {
		case errors.Is(err, gitrepo.ErrNoHistory):
			slog.Debug("No blame history", "path", a.relPath)
		case err != nil:
			slog.Warn("Could not get blame info", "path", a.relPath, "error", err)
		default:
			a.blame = blame
		}
	}
	return a.blame.AuthorAt(row)
}
