package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// suffixIgnore ignores paths ending in any of its suffixes.
type suffixIgnore []string

func (s suffixIgnore) IsIgnored(_ context.Context, path string, _ bool) bool {
	for _, suffix := range s {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func newTestWatcher(t *testing.T, root string, ignore IgnoreChecker) *Watcher {
	t.Helper()
	w, err := New(context.Background(), root, filepath.Join(root, ".palpatine"), ignore, testInterval)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return w
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestWatcher_ReportsWrites(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "src"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	w := newTestWatcher(t, root, suffixIgnore{})
	defer func() { _ = w.Close() }()
	go w.Start()

	path := filepath.Join(root, "src", "main.go")
	write(t, path, "// TODO: x\n")

	batch := receiveBatch(t, w.Events(), 2*time.Second)
	found := false
	for _, p := range batch {
		if p == path {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected %s in batch %v", path, batch)
	}
}

func TestWatcher_SkipsIgnoredAndCacheDir(t *testing.T) {
	root := t.TempDir()
	cacheDir := filepath.Join(root, ".palpatine")
	if err := os.Mkdir(cacheDir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	w := newTestWatcher(t, root, suffixIgnore{".log"})
	defer func() { _ = w.Close() }()
	go w.Start()

	write(t, filepath.Join(root, "debug.log"), "x")
	write(t, filepath.Join(cacheDir, "index.json"), "{}")

	expectNoBatch(t, w.Events(), 5*testInterval)
}

func TestRun_PassesOnStartAndChange(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, suffixIgnore{})

	var passes atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, w, func(context.Context) error {
			passes.Add(1)
			return nil
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for passes.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if passes.Load() != 1 {
		t.Fatalf("Expected initial pass, got %d", passes.Load())
	}

	write(t, filepath.Join(root, "a.py"), "# TODO: x\n")

	for passes.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if passes.Load() < 2 {
		t.Errorf("Expected a pass after the change, got %d", passes.Load())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
