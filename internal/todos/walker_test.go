package todos

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sha1n/palpatine/internal/gitrepo"
)

// collect runs the walker and returns the relative paths it emitted.
func collect(t *testing.T, w *TreeWalker) ([]string, error) {
	t.Helper()
	out := make(chan Entry)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		errCh <- w.Walk(context.Background(), out)
	}()

	var paths []string
	for e := range out {
		paths = append(paths, e.RelativePath)
	}
	return paths, <-errCh
}

func TestTreeWalker_PreOrderByName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.go", "")
	writeFile(t, root, "a/z.go", "")
	writeFile(t, root, "a/b/c.go", "")
	writeFile(t, root, "c.go", "")

	repo := gitrepo.NewFakeRepository(root)
	w := NewTreeWalker(root, NewIgnoreFilter(repo, nil), "")

	got, err := collect(t, w)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	want := []string{"a/b/c.go", "a/z.go", "b.go", "c.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk emitted %v, want %v", got, want)
	}
}

func TestTreeWalker_SkipsIgnoredAndCacheDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "")
	writeFile(t, root, "build/out.go", "")
	writeFile(t, root, ".git/HEAD", "")
	writeFile(t, root, ".palpatine/index.json", "{}")
	writeFile(t, root, "debug.log", "")

	repo := gitrepo.NewFakeRepository(root)
	repo.Ignored["build"] = true
	repo.Ignored["debug.log"] = true

	w := NewTreeWalker(root, NewIgnoreFilter(repo, nil), filepath.Join(root, ".palpatine"))

	got, err := collect(t, w)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	want := []string{"main.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk emitted %v, want %v", got, want)
	}
}

func TestTreeWalker_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "gone")
	repo := gitrepo.NewFakeRepository(root)
	w := NewTreeWalker(root, NewIgnoreFilter(repo, nil), "")

	_, err := collect(t, w)

	var walkErr *WalkError
	if !errors.As(err, &walkErr) {
		t.Fatalf("Expected *WalkError, got %v", err)
	}
	if walkErr.Path != root {
		t.Errorf("WalkError.Path = %q, want %q", walkErr.Path, root)
	}
}

func TestTreeWalker_Canceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "")

	repo := gitrepo.NewFakeRepository(root)
	w := NewTreeWalker(root, NewIgnoreFilter(repo, nil), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Walk(ctx, make(chan Entry))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
