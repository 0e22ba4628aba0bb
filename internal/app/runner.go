package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/palpatine/internal/config"
	"github.com/sha1n/palpatine/internal/gitrepo"
	mcputil "github.com/sha1n/palpatine/internal/mcp"
	"github.com/sha1n/palpatine/internal/todos"
	"github.com/spf13/pflag"
)

// RunParams contains dependencies for the command functions
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	NewBackend        func(*config.Settings) gitrepo.Backend
	Stdin             io.Reader
	Stdout            io.Writer
	Stderr            io.Writer
	Now               func() time.Time // Optional: clock for lastIndexed
	CustomIOTransport mcp.Transport    // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		NewBackend:    NewBackend,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
	}
}

// NewBackend returns the version control backend selected by settings
func NewBackend(settings *config.Settings) gitrepo.Backend {
	if settings.Backend == config.BackendGit {
		return gitrepo.NewCLIBackend()
	}
	return gitrepo.NewGoGitBackend()
}

// session is a loaded configuration bound to one repository
type session struct {
	settings *config.Settings
	repo     gitrepo.Repository
	runner   *todos.Runner
}

// openSession loads settings, configures logging and opens the repository
// enclosing path.
func openSession(ctx context.Context, params RunParams, flags *pflag.FlagSet, path string) (*session, error) {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr, stdout carries command output
	stderr := params.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	slog.SetDefault(slog.New(config.NewLogHandler(stderr, settings.Log)))
	config.Log(settings)

	repo, err := gitrepo.Resolve(ctx, params.NewBackend(settings), path)
	if err != nil {
		return nil, err
	}
	slog.Debug("Repository resolved", "root", repo.Root())

	runner := todos.NewRunner(repo, todos.Options{
		CacheDir: settings.CacheDir,
		Workers:  settings.Workers,
		Exclude:  settings.Exclude,
		Now:      params.Now,
	})

	return &session{
		settings: settings,
		repo:     repo,
		runner:   runner,
	}, nil
}

// CreateMCPServer creates the MCP server with registered tools
func CreateMCPServer(settings *config.Settings, service mcputil.IndexService, version string) *mcp.Server {
	return mcputil.CreateServer(mcputil.ServerConfig{
		Name:       "palpatine",
		Version:    version,
		Service:    service,
		MaxResults: settings.Search.MaxResults,
	})
}
