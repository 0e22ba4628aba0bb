package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// MockExecutor records commands and returns configured responses.
// This is exported for use in other packages' tests.
type MockExecutor struct {
	commands []MockCommand
	calls    []ExecutorCall
	mu       sync.Mutex
}

// MockCommand defines a mock response for a command prefix.
type MockCommand struct {
	NamePrefix string
	Output     []byte
	Err        error
}

// ExecutorCall records a command invocation.
type ExecutorCall struct {
	Dir  string
	Name string
	Args []string
}

// NewMockExecutor creates a new mock executor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		commands: make([]MockCommand, 0),
		calls:    make([]ExecutorCall, 0),
	}
}

// AddResponse adds a mock response for commands matching the given prefix.
func (m *MockExecutor) AddResponse(namePrefix string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, MockCommand{
		NamePrefix: namePrefix,
		Output:     output,
		Err:        err,
	})
}

// Run executes a command and returns the configured mock response.
func (m *MockExecutor) Run(_ context.Context, dir string, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := ExecutorCall{Dir: dir, Name: name, Args: args}
	m.calls = append(m.calls, call)

	// Build full command string for matching
	fullCmd := name + " " + strings.Join(args, " ")

	// Find matching response
	for i, cmd := range m.commands {
		if strings.HasPrefix(fullCmd, cmd.NamePrefix) {
			// Remove used response
			m.commands = append(m.commands[:i], m.commands[i+1:]...)
			return cmd.Output, cmd.Err
		}
	}

	return nil, errors.New("no mock response configured for: " + fullCmd)
}

// GetCalls returns all recorded command calls.
func (m *MockExecutor) GetCalls() []ExecutorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutorCall(nil), m.calls...)
}

// MustGetLastCall returns the last recorded call, fails the test if no calls were made.
func (m *MockExecutor) MustGetLastCall(t *testing.T) ExecutorCall {
	t.Helper()
	calls := m.GetCalls()
	if len(calls) == 0 {
		t.Fatal("Expected at least one command call")
	}
	return calls[len(calls)-1]
}

// ExitStatusError mimics a process exit status for mocked commands.
type ExitStatusError struct {
	Code int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode returns the mocked exit status.
func (e *ExitStatusError) ExitCode() int {
	return e.Code
}

// FakeRepository is an in-memory Repository for tests.
type FakeRepository struct {
	RootDir string

	// Ignored holds root relative paths reported as ignored
	Ignored map[string]bool
	// IgnoreErr, when set, is returned by every IsIgnored call
	IgnoreErr error

	// Authors maps a root relative path to its per-row author names
	Authors map[string][]string
	// BlameErr, when set, is returned by every Blame call
	BlameErr error

	mu         sync.Mutex
	blameCalls map[string]int
}

// NewFakeRepository creates a FakeRepository rooted at root.
func NewFakeRepository(root string) *FakeRepository {
	return &FakeRepository{
		RootDir:    root,
		Ignored:    make(map[string]bool),
		Authors:    make(map[string][]string),
		blameCalls: make(map[string]int),
	}
}

// Root returns the configured root.
func (f *FakeRepository) Root() string {
	return f.RootDir
}

// IsIgnored reports configured ignores; .git is always ignored.
func (f *FakeRepository) IsIgnored(_ context.Context, path string, _ bool) (bool, error) {
	if f.IgnoreErr != nil {
		return false, f.IgnoreErr
	}
	relPath, ok := RelativePath(f.RootDir, path)
	if !ok {
		return false, nil
	}
	if isGitMetadata(relPath) {
		return true, nil
	}
	return f.Ignored[relPath], nil
}

// Blame returns configured authors, or ErrNoHistory for unknown paths.
func (f *FakeRepository) Blame(_ context.Context, relPath string) (*BlameResult, error) {
	f.mu.Lock()
	f.blameCalls[relPath]++
	f.mu.Unlock()

	if f.BlameErr != nil {
		return nil, f.BlameErr
	}
	authors, ok := f.Authors[relPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, relPath)
	}
	result := &BlameResult{Lines: make([]BlameLine, len(authors))}
	for i, name := range authors {
		result.Lines[i] = BlameLine{AuthorName: name}
	}
	return result, nil
}

// BlameCalls returns how many times Blame was called for relPath.
func (f *FakeRepository) BlameCalls(relPath string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blameCalls[relPath]
}

// FakeBackend opens a fixed repository, or fails with Err.
type FakeBackend struct {
	Repo Repository
	Err  error
}

// Open returns the configured repository.
func (b *FakeBackend) Open(_ context.Context, path string) (Repository, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	if b.Repo == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRepository, path)
	}
	return b.Repo, nil
}

// TestRepo is a real on-disk git repository for tests.
type TestRepo struct {
	Root string
	repo *git.Repository
}

// NewTestRepo initializes an empty repository in a temporary directory.
func NewTestRepo(t testing.TB) *TestRepo {
	t.Helper()

	// Resolve symlinks so roots compare equal to what discovery reports
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}
	return &TestRepo{Root: dir, repo: repo}
}

// WriteFile writes a root relative file, creating parent directories.
func (r *TestRepo) WriteFile(t testing.TB, relPath, content string) string {
	t.Helper()
	path := filepath.Join(r.Root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", relPath, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", relPath, err)
	}
	return path
}

// Commit stages the given root relative paths and commits them as author.
func (r *TestRepo) Commit(t testing.TB, author string, relPaths ...string) {
	t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}
	for _, p := range relPaths {
		if _, err := wt.Add(p); err != nil {
			t.Fatalf("Failed to add %s: %v", p, err)
		}
	}
	_, err = wt.Commit("commit by "+author, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: strings.ToLower(author) + "@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}
