package gitrepo

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// CLIBackend answers version control questions by running the git binary.
type CLIBackend struct {
	executor CommandExecutor
}

// NewCLIBackend creates a CLIBackend with the default command executor.
func NewCLIBackend() *CLIBackend {
	return &CLIBackend{
		executor: &DefaultExecutor{},
	}
}

// NewCLIBackendWithExecutor creates a CLIBackend with a custom executor (for testing).
func NewCLIBackendWithExecutor(executor CommandExecutor) *CLIBackend {
	return &CLIBackend{
		executor: executor,
	}
}

// Open locates the working tree root with rev-parse.
func (b *CLIBackend) Open(ctx context.Context, path string) (Repository, error) {
	output, err := b.executor.Run(ctx, path, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("git executable not found: %w", err)
		}
		return nil, fmt.Errorf("%w: %s (%v)", ErrNoRepository, path, err)
	}

	root := strings.TrimSpace(string(output))
	if root == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoRepository, path)
	}

	return &cliRepository{
		executor: b.executor,
		root:     filepath.Clean(filepath.FromSlash(root)),
	}, nil
}

type cliRepository struct {
	executor CommandExecutor
	root     string
}

func (r *cliRepository) Root() string {
	return r.root
}

// IsIgnored runs check-ignore. Exit status 1 means "not ignored"; any other
// failure is returned to the caller.
func (r *cliRepository) IsIgnored(ctx context.Context, path string, _ bool) (bool, error) {
	relPath, ok := RelativePath(r.root, path)
	if !ok {
		return false, nil
	}
	if isGitMetadata(relPath) {
		return true, nil
	}

	_, err := r.executor.Run(ctx, r.root, "git", "check-ignore", "-q", "--", relPath)
	if err == nil {
		return true, nil
	}

	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) && coded.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("git check-ignore failed: %w", err)
}

// Blame runs blame in porcelain mode over the working tree file.
func (r *cliRepository) Blame(ctx context.Context, relPath string) (*BlameResult, error) {
	output, err := r.executor.Run(ctx, r.root, "git", "blame", "--porcelain", "--", relPath)
	if err != nil {
		if strings.Contains(err.Error(), "no such path") {
			return nil, fmt.Errorf("%w: %s", ErrNoHistory, relPath)
		}
		return nil, fmt.Errorf("git blame failed: %w", err)
	}

	return ParsePorcelainBlame(output)
}

// ParsePorcelainBlame parses the output of git blame --porcelain.
// Lines not yet committed carry no author.
func ParsePorcelainBlame(output []byte) (*BlameResult, error) {
	type commitInfo struct {
		name  string
		email string
	}

	commits := make(map[string]*commitInfo)
	result := &BlameResult{}

	var current string
	var finalLine int

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "\t") {
			// Content line closes the current entry
			if current == "" || finalLine <= 0 {
				return nil, fmt.Errorf("malformed blame output: content before header")
			}
			for len(result.Lines) < finalLine {
				result.Lines = append(result.Lines, BlameLine{})
			}
			entry := BlameLine{Commit: current}
			if info := commits[current]; info != nil && !isZeroHash(current) {
				entry.AuthorName = info.name
				entry.AuthorEmail = info.email
			}
			result.Lines[finalLine-1] = entry
			current = ""
			continue
		}

		if current == "" {
			fields := strings.Fields(line)
			if len(fields) < 3 || !isHash(fields[0]) {
				return nil, fmt.Errorf("malformed blame header: %q", line)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("malformed blame line number %q: %w", fields[2], err)
			}
			current = fields[0]
			finalLine = n
			if commits[current] == nil {
				commits[current] = &commitInfo{}
			}
			continue
		}

		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "author":
			commits[current].name = value
		case "author-mail":
			commits[current].email = strings.Trim(value, "<>")
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read blame output: %w", err)
	}

	return result, nil
}

func isHash(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func isZeroHash(s string) bool {
	return strings.Trim(s, "0") == ""
}
