package todos

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/sha1n/palpatine/internal/domain"
)

func sampleIndex() domain.Index {
	idx := domain.NewIndex()
	idx["a.py"] = domain.IndexedFile{
		Path:         "/repo/a.py",
		RelativePath: "a.py",
		Markers:      []domain.Marker{{Line: 3, Column: 2, Author: "Alice", Body: "fix parsing"}},
		LastIndexed:  time.Date(2024, 6, 1, 10, 0, 0, 123456789, time.UTC),
	}
	idx["src/lib.go"] = domain.IndexedFile{
		Path:         "/repo/src/lib.go",
		RelativePath: "src/lib.go",
		Markers:      []domain.Marker{},
		LastIndexed:  time.Date(2024, 6, 1, 10, 0, 1, 0, time.UTC),
	}
	return idx
}

func TestIndexStore_Paths(t *testing.T) {
	store := NewIndexStore("/repo", ".palpatine")

	if store.Dir() != filepath.FromSlash("/repo/.palpatine") {
		t.Errorf("Dir = %q", store.Dir())
	}
	if store.Path() != filepath.FromSlash("/repo/.palpatine/index.json") {
		t.Errorf("Path = %q", store.Path())
	}
	if store.LockPath() != filepath.FromSlash("/repo/.palpatine/index.lock") {
		t.Errorf("LockPath = %q", store.LockPath())
	}
}

func TestIndexStore_LoadMissing(t *testing.T) {
	store := NewIndexStore(t.TempDir(), ".palpatine")

	idx := store.Load()
	if idx == nil || len(idx) != 0 {
		t.Errorf("Expected empty index, got %v", idx)
	}
}

func TestIndexStore_LoadCorrupt(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".palpatine/index.json", "{not json")

	idx := NewIndexStore(root, ".palpatine").Load()
	if idx == nil || len(idx) != 0 {
		t.Errorf("Expected empty index, got %v", idx)
	}
}

func TestIndexStore_LoadNull(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".palpatine/index.json", "null")

	idx := NewIndexStore(root, ".palpatine").Load()
	if idx == nil {
		t.Error("Expected a non-nil index")
	}
}

func TestIndexStore_RoundTrip(t *testing.T) {
	store := NewIndexStore(t.TempDir(), ".palpatine")
	idx := sampleIndex()

	if err := store.Save(idx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := store.Load()
	if !reflect.DeepEqual(loaded.Paths(), idx.Paths()) {
		t.Fatalf("Paths = %v, want %v", loaded.Paths(), idx.Paths())
	}
	for key, want := range idx {
		got := loaded[key]
		if got.Path != want.Path || got.RelativePath != want.RelativePath {
			t.Errorf("%s: paths = (%q, %q), want (%q, %q)", key, got.Path, got.RelativePath, want.Path, want.RelativePath)
		}
		if !got.LastIndexed.Equal(want.LastIndexed) {
			t.Errorf("%s: LastIndexed = %v, want %v", key, got.LastIndexed, want.LastIndexed)
		}
		if !reflect.DeepEqual(got.Markers, want.Markers) {
			t.Errorf("%s: Markers = %+v, want %+v", key, got.Markers, want.Markers)
		}
	}
}

func TestIndexStore_SaveIsDeterministic(t *testing.T) {
	store := NewIndexStore(t.TempDir(), ".palpatine")

	if err := store.Save(sampleIndex()); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	first, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("Failed to read index: %v", err)
	}

	if err := store.Save(store.Load()); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	second, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("Failed to read index: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("Expected byte-identical files:\n%s\n---\n%s", first, second)
	}
	if !bytes.Contains(first, []byte(`"last_indexed": "2024-06-01T10:00:00.123456789Z"`)) {
		t.Errorf("Expected RFC 3339 UTC timestamp in:\n%s", first)
	}
}

func TestIndexStore_SaveNormalizesTimezoneAndNilMarkers(t *testing.T) {
	store := NewIndexStore(t.TempDir(), ".palpatine")
	idx := domain.NewIndex()
	idx["a.go"] = domain.IndexedFile{
		RelativePath: "a.go",
		LastIndexed:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
	}

	if err := store.Save(idx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("Failed to read index: %v", err)
	}

	if !bytes.Contains(data, []byte(`"last_indexed": "2024-06-01T10:00:00Z"`)) {
		t.Errorf("Expected UTC timestamp in:\n%s", data)
	}
	if !bytes.Contains(data, []byte(`"todos": []`)) {
		t.Errorf("Expected empty todos array in:\n%s", data)
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("Expected temp file to be gone after save")
	}
}

func TestIndexStore_SaveFailure(t *testing.T) {
	root := t.TempDir()
	// A regular file where the cache directory should be
	writeFile(t, root, ".palpatine", "")

	err := NewIndexStore(root, ".palpatine").Save(sampleIndex())

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Expected *StoreError, got %v", err)
	}
}

func TestIndexStore_ExistsAndDelete(t *testing.T) {
	store := NewIndexStore(t.TempDir(), ".palpatine")

	exists, err := store.Exists()
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Expected no index before save")
	}

	if err := store.Save(sampleIndex()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if exists, _ := store.Exists(); !exists {
		t.Error("Expected index after save")
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(store.Dir()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected cache directory to be removed, stat err = %v", err)
	}

	// Deleting again is fine
	if err := store.Delete(); err != nil {
		t.Errorf("Second Delete failed: %v", err)
	}
}
