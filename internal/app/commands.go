package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/palpatine/internal/report"
	"github.com/sha1n/palpatine/internal/search"
	"github.com/sha1n/palpatine/internal/todos"
	"github.com/sha1n/palpatine/internal/watch"
	"github.com/spf13/pflag"
)

// cleanLockTimeout bounds how long clean waits for a running index pass
const cleanLockTimeout = 5 * time.Second

// RunIndex updates the cache for the repository enclosing path
func RunIndex(ctx context.Context, params RunParams, flags *pflag.FlagSet, path string) error {
	s, err := openSession(ctx, params, flags, path)
	if err != nil {
		return err
	}

	summary, err := s.runner.Run(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(params.Stdout, "%d file(s) were updated\n", summary.Updated)
	return err
}

// RunReport prints the cached index
func RunReport(ctx context.Context, params RunParams, flags *pflag.FlagSet, path string) error {
	s, err := openSession(ctx, params, flags, path)
	if err != nil {
		return err
	}
	return report.Write(params.Stdout, s.runner.Load())
}

// RunClean deletes the cache after the user confirms on stdin
func RunClean(ctx context.Context, params RunParams, flags *pflag.FlagSet, path string) error {
	s, err := openSession(ctx, params, flags, path)
	if err != nil {
		return err
	}

	store := s.runner.Store()
	exists, err := store.Exists()
	if err != nil {
		return err
	}
	if !exists {
		_, err := fmt.Fprintln(params.Stdout, "No index file to delete")
		return err
	}

	display := filepath.ToSlash(filepath.Join(s.settings.CacheDir, todos.IndexFilename))
	if _, err := fmt.Fprintf(params.Stdout, "Are you sure? This will delete the cached index file at %s [y/n]\n", display); err != nil {
		return err
	}

	answer, err := readLine(params.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if answer != "y" && answer != "Y" {
		_, err := fmt.Fprintln(params.Stdout, "Clean aborted")
		return err
	}

	lock := todos.NewFileLock(store.LockPath())
	if err := lock.LockWithContext(ctx, cleanLockTimeout); err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Error("Failed to unlock", "error", err)
		}
	}()

	if err := store.Delete(); err != nil {
		return err
	}
	slog.Info("Cache deleted", "path", store.Dir())

	_, err = fmt.Fprintln(params.Stdout, "Clean succeeded")
	return err
}

// readLine reads one line and trims surrounding whitespace. End of input
// counts as an empty answer.
func readLine(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// RunSearch prints the cached markers matching text
func RunSearch(ctx context.Context, params RunParams, flags *pflag.FlagSet, text, path string) error {
	s, err := openSession(ctx, params, flags, path)
	if err != nil {
		return err
	}

	q := search.Query{
		Text:  text,
		Limit: s.settings.Search.MaxResults,
	}
	if flags != nil {
		q.Author, _ = flags.GetString("author")
		q.Language, _ = flags.GetString("language")
	}

	searcher, err := search.Build(s.runner.Load())
	if err != nil {
		return err
	}
	defer func() {
		if err := searcher.Close(); err != nil {
			slog.Error("Failed to close searcher", "error", err)
		}
	}()

	results, err := searcher.Search(q)
	if err != nil {
		return err
	}

	if len(results.Hits) == 0 {
		_, err := fmt.Fprintln(params.Stdout, report.EmptyMessage)
		return err
	}
	for _, hit := range results.Hits {
		if _, err := fmt.Fprintln(params.Stdout, search.FormatHit(hit)); err != nil {
			return err
		}
	}
	if results.Total > uint64(len(results.Hits)) {
		slog.Info("Results truncated", "shown", len(results.Hits), "total", results.Total)
	}
	return nil
}

// RunServe serves the index over MCP until the client disconnects or ctx is done
func RunServe(ctx context.Context, params RunParams, flags *pflag.FlagSet, path, version string) error {
	s, err := openSession(ctx, params, flags, path)
	if err != nil {
		return err
	}

	slog.Info("Starting palpatine MCP server", "version", version, "root", s.repo.Root())
	server := CreateMCPServer(s.settings, s.runner, version)

	// Use custom transport if provided (for testing), otherwise use stdio
	transport := params.CustomIOTransport
	if transport == nil {
		transport = &mcp.StdioTransport{}
	}
	return server.Run(ctx, transport)
}

// RunWatch indexes once, then again after every batch of file changes,
// until ctx is done
func RunWatch(ctx context.Context, params RunParams, flags *pflag.FlagSet, path string) error {
	s, err := openSession(ctx, params, flags, path)
	if err != nil {
		return err
	}

	filter := todos.NewIgnoreFilter(s.repo, s.settings.Exclude)
	w, err := watch.New(ctx, s.repo.Root(), s.runner.Store().Dir(), filter, watch.DefaultInterval)
	if err != nil {
		return err
	}

	slog.Info("Watching for changes", "root", s.repo.Root())
	return watch.Run(ctx, w, func(ctx context.Context) error {
		summary, err := s.runner.Run(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(params.Stdout, "%d file(s) were updated\n", summary.Updated)
		return err
	})
}
