package testkit

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sha1n/palpatine/internal/app"
	"github.com/sha1n/palpatine/internal/gitrepo"
	"github.com/spf13/pflag"
)

// PropertyRoot is the property holding a started repository's root
const PropertyRoot = "root"

// Service represents a test service that can be started and stopped
type Service interface {
	Start() (map[string]any, error)
	Stop() error
	GetName() string
}

// TestEnvContext provides access to properties collected during environment startup
type TestEnvContext interface {
	GetProperties() map[string]any
	GetProperty(name string) (any, bool)
}

// TestEnv manages the lifecycle of test services
type TestEnv interface {
	Start() (map[string]any, error)
	Stop() error
	GetContext() TestEnvContext
}

type testEnvContextImpl struct {
	properties map[string]any
}

func (c *testEnvContextImpl) GetProperties() map[string]any {
	return c.properties
}

func (c *testEnvContextImpl) GetProperty(name string) (any, bool) {
	val, ok := c.properties[name]
	return val, ok
}

type testEnvImpl struct {
	services []Service
	context  *testEnvContextImpl
}

// NewTestEnv creates a new test environment with the given services
func NewTestEnv(services ...Service) TestEnv {
	return &testEnvImpl{
		services: services,
		context:  &testEnvContextImpl{properties: make(map[string]any)},
	}
}

func (e *testEnvImpl) Start() (map[string]any, error) {
	for _, s := range e.services {
		props, err := s.Start()
		if err != nil {
			return nil, err
		}
		for k, v := range props {
			e.context.properties[k] = v
		}
	}
	return e.context.properties, nil
}

func (e *testEnvImpl) Stop() error {
	var lastErr error
	// Stop in reverse order
	for i := len(e.services) - 1; i >= 0; i-- {
		if err := e.services[i].Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (e *testEnvImpl) GetContext() TestEnvContext {
	return e.context
}

// Commit is one commit of a RepoService history
type Commit struct {
	Author string
	// Files maps a root relative path to its content
	Files map[string]string
}

// RepoService creates a git repository fixture on Start. Untracked files are
// written after the last commit.
type RepoService struct {
	T         testing.TB
	Commits   []Commit
	Untracked map[string]string

	repo *gitrepo.TestRepo
}

// NewRepoService creates a repository fixture with the given history
func NewRepoService(t testing.TB, commits ...Commit) *RepoService {
	return &RepoService{T: t, Commits: commits}
}

// Start creates the repository and reports its root under PropertyRoot
func (s *RepoService) Start() (map[string]any, error) {
	if s.T == nil {
		return nil, errors.New("repo service needs a testing.TB")
	}

	s.repo = gitrepo.NewTestRepo(s.T)
	for _, c := range s.Commits {
		paths := make([]string, 0, len(c.Files))
		for relPath, content := range c.Files {
			s.repo.WriteFile(s.T, relPath, content)
			paths = append(paths, relPath)
		}
		s.repo.Commit(s.T, c.Author, paths...)
	}
	for relPath, content := range s.Untracked {
		s.repo.WriteFile(s.T, relPath, content)
	}

	return map[string]any{PropertyRoot: s.repo.Root}, nil
}

// Stop is a no-op, the repository lives in a test temp dir
func (s *RepoService) Stop() error {
	return nil
}

// GetName returns the service name
func (s *RepoService) GetName() string {
	return "git-repository"
}

// Repo returns the started repository, or nil before Start
func (s *RepoService) Repo() *gitrepo.TestRepo {
	return s.repo
}

// MustGetRoot returns the repository root collected by env, or fails the test
func MustGetRoot(t testing.TB, env TestEnv) string {
	t.Helper()
	val, ok := env.GetContext().GetProperty(PropertyRoot)
	if !ok {
		t.Fatal("Repository root property not set, was the environment started?")
	}
	root, ok := val.(string)
	if !ok {
		t.Fatalf("Repository root property has type %T", val)
	}
	return root
}

// FlagOptions configures NewTestFlags
type FlagOptions struct {
	Backend  string   // Defaults to "go-git"
	Workers  int      // Defaults to 1
	CacheDir string   // Defaults to the configured default
	Exclude  []string // Optional exclude globs
}

// NewTestFlags creates a configured pflag.FlagSet for testing
func NewTestFlags(t testing.TB, opts *FlagOptions) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	app.RegisterFlags(flags)

	backend := "go-git"
	workers := "1"

	if opts != nil {
		if opts.Backend != "" {
			backend = opts.Backend
		}
		if opts.Workers != 0 {
			workers = fmt.Sprintf("%d", opts.Workers)
		}
		if opts.CacheDir != "" {
			_ = flags.Set("cache-dir", opts.CacheDir)
		}
		if len(opts.Exclude) > 0 {
			_ = flags.Set("exclude", strings.Join(opts.Exclude, ","))
		}
	}

	_ = flags.Set("backend", backend)
	_ = flags.Set("workers", workers)
	_ = flags.Set("quiet", "true")

	return flags
}
