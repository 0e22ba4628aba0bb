package todos

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sha1n/palpatine/internal/domain"
)

const (
	// IndexFilename is the cache file name inside the cache directory
	IndexFilename = "index.json"

	// LockFilename is the run lock file name inside the cache directory
	LockFilename = "index.lock"
)

// IndexStore persists the index under <root>/<cacheDir>.
type IndexStore struct {
	dir string
}

// NewIndexStore creates a store for the repository at root.
func NewIndexStore(root, cacheDir string) *IndexStore {
	return &IndexStore{
		dir: filepath.Join(root, cacheDir),
	}
}

// Dir returns the cache directory.
func (s *IndexStore) Dir() string {
	return s.dir
}

// Path returns the cache file path.
func (s *IndexStore) Path() string {
	return filepath.Join(s.dir, IndexFilename)
}

// LockPath returns the run lock file path.
func (s *IndexStore) LockPath() string {
	return filepath.Join(s.dir, LockFilename)
}

// Exists reports whether the cache file is present.
func (s *IndexStore) Exists() (bool, error) {
	_, err := os.Stat(s.Path())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat index: %w", err)
}

// Load reads the index from disk. A missing, unreadable or corrupt cache
// yields an empty index.
func (s *IndexStore) Load() domain.Index {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read index, starting empty", "path", s.Path(), "error", err)
		}
		return domain.NewIndex()
	}

	var index domain.Index
	if err := json.Unmarshal(data, &index); err != nil {
		slog.Warn("Failed to parse index, starting empty", "path", s.Path(), "error", err)
		return domain.NewIndex()
	}

	// A literal null decodes to a nil map
	if index == nil {
		index = domain.NewIndex()
	}

	return index
}

// Save writes the index to disk atomically.
// Uses write-to-temp + rename so a reader never sees a partial file.
func (s *IndexStore) Save(index domain.Index) error {
	// Map keys are marshaled sorted, so equal indexes produce identical bytes
	data, err := json.MarshalIndent(normalize(index), "", "  ")
	if err != nil {
		return &StoreError{Op: "marshal", Path: s.Path(), Err: err}
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return &StoreError{Op: "create directory", Path: s.dir, Err: err}
	}

	tempPath := s.Path() + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return &StoreError{Op: "write", Path: tempPath, Err: err}
	}

	if err := os.Rename(tempPath, s.Path()); err != nil {
		_ = os.Remove(tempPath)
		return &StoreError{Op: "rename", Path: s.Path(), Err: err}
	}

	return nil
}

// Delete removes the cache directory and everything in it.
// A missing directory is not an error.
func (s *IndexStore) Delete() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return &DeleteError{Path: s.dir, Err: err}
	}
	return nil
}

// normalize returns a copy with timestamps in UTC and nil marker lists
// replaced by empty ones.
func normalize(index domain.Index) domain.Index {
	out := make(domain.Index, len(index))
	for key, row := range index {
		row.LastIndexed = row.LastIndexed.UTC()
		if row.Markers == nil {
			row.Markers = []domain.Marker{}
		}
		out[key] = row
	}
	return out
}
