// Package gitrepo locates git working trees and answers the questions the
// indexer asks of version control: is a path ignored, and who wrote a line.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotADirectory indicates the requested path does not reference a directory
	ErrNotADirectory = errors.New("not a directory")

	// ErrNoRepository indicates no git working tree encloses the requested path
	ErrNoRepository = errors.New("no enclosing git repository")

	// ErrNoHistory indicates the path has no committed history to blame
	ErrNoHistory = errors.New("no blame history")
)

// gitDirName is the repository metadata directory, ignored by default the
// same way git itself never tracks it.
const gitDirName = ".git"

// Backend opens working trees.
type Backend interface {
	// Open discovers the working tree enclosing path, walking upward.
	// Returns an error wrapping ErrNoRepository when none is found.
	Open(ctx context.Context, path string) (Repository, error)
}

// Repository is an opened working tree.
type Repository interface {
	// Root returns the absolute path of the working tree root.
	Root() string

	// IsIgnored reports whether the absolute path is excluded from version control.
	IsIgnored(ctx context.Context, path string, isDir bool) (bool, error)

	// Blame returns per-line attribution for a root relative, slash separated path.
	// Returns an error wrapping ErrNoHistory when the path was never committed.
	Blame(ctx context.Context, relPath string) (*BlameResult, error)
}

// BlameLine is the attribution of a single line.
type BlameLine struct {
	Commit      string
	AuthorName  string
	AuthorEmail string
}

// BlameResult holds the attribution of every line of a file, indexed by 0-based row.
type BlameResult struct {
	Lines []BlameLine
}

// AuthorAt returns the author name of the 0-based row.
// Returns false when the row is out of range or carries no name.
func (b *BlameResult) AuthorAt(row int) (string, bool) {
	if b == nil || row < 0 || row >= len(b.Lines) {
		return "", false
	}
	name := b.Lines[row].AuthorName
	if name == "" {
		return "", false
	}
	return name, true
}

// ResolvePath turns a user supplied path into an absolute, cleaned directory path.
// An empty path means the current working directory.
func ResolvePath(path string) (string, error) {
	if path == "" {
		path = "."
	}

	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}

	info, err := os.Stat(absolutePath)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotADirectory, absolutePath)
	}

	return absolutePath, nil
}

// Resolve resolves path and opens the repository enclosing it.
func Resolve(ctx context.Context, backend Backend, path string) (Repository, error) {
	dir, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	repo, err := backend.Open(ctx, dir)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// RelativePath strips root from path and returns a slash separated result.
// Returns false when path does not live under root.
func RelativePath(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// isGitMetadata reports whether a root relative path is or lives inside the
// repository metadata directory.
func isGitMetadata(relPath string) bool {
	first, _, _ := strings.Cut(relPath, "/")
	return first == gitDirName
}
