package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/diff"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// GoGitBackend answers version control questions in process using go-git.
type GoGitBackend struct {
	// IncludeGlobalExcludes also loads core.excludesfile and the system config excludes
	IncludeGlobalExcludes bool
}

// NewGoGitBackend creates a go-git backend that honors global excludes.
func NewGoGitBackend() *GoGitBackend {
	return &GoGitBackend{IncludeGlobalExcludes: true}
}

// Open discovers the repository by walking upward until a .git entry is found.
func (b *GoGitBackend) Open(_ context.Context, path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNoRepository, path)
		}
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no working tree to index
		return nil, fmt.Errorf("%w: %s (%v)", ErrNoRepository, path, err)
	}

	r := &goGitRepository{
		repo: repo,
		root: filepath.Clean(worktree.Filesystem.Root()),
	}

	patterns, err := gitignore.ReadPatterns(worktree.Filesystem, nil)
	if err != nil {
		// Kept so IsIgnored can report it and the filter can fail open
		r.ignoreErr = fmt.Errorf("failed to read ignore patterns: %w", err)
	}

	if b.IncludeGlobalExcludes {
		rootFS := osfs.New("/")
		if global, err := gitignore.LoadGlobalPatterns(rootFS); err == nil {
			patterns = append(global, patterns...)
		} else {
			slog.Debug("Failed to load global excludes", "error", err)
		}
		if system, err := gitignore.LoadSystemPatterns(rootFS); err == nil {
			patterns = append(system, patterns...)
		} else {
			slog.Debug("Failed to load system excludes", "error", err)
		}
	}

	r.matcher = gitignore.NewMatcher(patterns)
	return r, nil
}

type goGitRepository struct {
	repo      *git.Repository
	root      string
	matcher   gitignore.Matcher
	ignoreErr error

	// go-git repositories are not safe for concurrent object access
	mu sync.Mutex
}

func (r *goGitRepository) Root() string {
	return r.root
}

func (r *goGitRepository) IsIgnored(_ context.Context, path string, isDir bool) (bool, error) {
	relPath, ok := RelativePath(r.root, path)
	if !ok {
		return false, nil
	}
	if isGitMetadata(relPath) {
		return true, nil
	}
	if r.ignoreErr != nil {
		return false, r.ignoreErr
	}
	return r.matcher.Match(strings.Split(relPath, "/"), isDir), nil
}

// Blame attributes the file as it is on disk. Rows are blamed against HEAD and
// mapped through a line diff when the working copy differs; rows added or
// changed since HEAD have no author.
func (r *goGitRepository) Blame(_ context.Context, relPath string) (*BlameResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("%w: repository has no commits", ErrNoHistory)
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD commit: %w", err)
	}

	file, err := commit.File(relPath)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoHistory, relPath)
		}
		return nil, fmt.Errorf("failed to look up %s in HEAD: %w", relPath, err)
	}

	blame, err := git.Blame(commit, relPath)
	if err != nil {
		return nil, fmt.Errorf("git blame failed: %w", err)
	}

	result := &BlameResult{Lines: make([]BlameLine, len(blame.Lines))}
	for i, line := range blame.Lines {
		result.Lines[i] = BlameLine{
			Commit:      line.Hash.String(),
			AuthorName:  line.AuthorName,
			AuthorEmail: line.Author,
		}
	}

	working, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	if plumbing.ComputeHash(plumbing.BlobObject, working) == file.Hash {
		return result, nil
	}

	committed, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from HEAD: %w", relPath, err)
	}
	return mapWorkingRows(result, committed, string(working)), nil
}

// mapWorkingRows re-indexes a HEAD blame by working copy row. Inserted rows
// get an empty BlameLine.
func mapWorkingRows(head *BlameResult, committed, working string) *BlameResult {
	mapped := &BlameResult{}
	headRow := 0
	for _, d := range diff.Do(committed, working) {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for i := 0; i < n; i++ {
				line := BlameLine{}
				if headRow+i < len(head.Lines) {
					line = head.Lines[headRow+i]
				}
				mapped.Lines = append(mapped.Lines, line)
			}
			headRow += n
		case diffmatchpatch.DiffDelete:
			headRow += n
		case diffmatchpatch.DiffInsert:
			for i := 0; i < n; i++ {
				mapped.Lines = append(mapped.Lines, BlameLine{})
			}
		}
	}
	return mapped
}

// countLines counts text lines, including a last line without a newline.
func countLines(text string) int {
	n := strings.Count(text, "\n")
	if text != "" && !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
