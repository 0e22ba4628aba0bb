package todos

import (
	"context"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/go-enry/go-enry/v2"
	"github.com/sha1n/palpatine/internal/domain"
)

// Outcome describes what IndexFile did with an entry.
type Outcome int

const (
	// Scanned means the file was read and its row replaced.
	Scanned Outcome = iota
	// UpToDate means the prior row is newer than the file.
	UpToDate
	// SkippedCacheFile means the entry is the cache file itself.
	SkippedCacheFile
	// SkippedUnreadable means the file could not be read.
	SkippedUnreadable
	// SkippedNonText means the file is binary or not valid UTF-8.
	SkippedNonText
)

func (o Outcome) String() string {
	switch o {
	case Scanned:
		return "scanned"
	case UpToDate:
		return "up-to-date"
	case SkippedCacheFile:
		return "cache-file"
	case SkippedUnreadable:
		return "unreadable"
	case SkippedNonText:
		return "non-text"
	default:
		return "unknown"
	}
}

// Result is the outcome of indexing one entry. Row is set only when
// Outcome is Scanned.
type Result struct {
	Entry   Entry
	Outcome Outcome
	Row     domain.IndexedFile
}

// Indexer decides whether a file needs scanning and produces its new row.
type Indexer struct {
	cachePath   string
	attribution *AttributionResolver
	now         func() time.Time
}

// NewIndexer creates an indexer. Entries at cachePath are never indexed.
func NewIndexer(cachePath string, attribution *AttributionResolver, now func() time.Time) *Indexer {
	if now == nil {
		now = time.Now
	}
	return &Indexer{
		cachePath:   cachePath,
		attribution: attribution,
		now:         now,
	}
}

// IndexFile indexes entry against the prior index, which it only reads.
// A stat failure is fatal and returned as a *MetadataError; unreadable and
// non-text files are skipped without error.
func (x *Indexer) IndexFile(ctx context.Context, prior domain.Index, entry Entry) (Result, error) {
	result := Result{Entry: entry}

	if entry.Path == x.cachePath {
		result.Outcome = SkippedCacheFile
		return result, nil
	}

	info, err := os.Stat(entry.Path)
	if err != nil {
		if _, lerr := os.Lstat(entry.Path); lerr != nil {
			return result, &MetadataError{Path: entry.Path, Err: err}
		}
		// Dangling symlink
		slog.Debug("Skipping unreadable file", "path", entry.RelativePath, "error", err)
		result.Outcome = SkippedUnreadable
		return result, nil
	}

	if row, ok := prior[entry.RelativePath]; ok && !row.LastIndexed.Before(info.ModTime()) {
		slog.Debug("Skipping, index is up to date", "path", entry.RelativePath)
		result.Outcome = UpToDate
		return result, nil
	}

	content, err := os.ReadFile(entry.Path)
	if err != nil {
		slog.Debug("Skipping unreadable file", "path", entry.RelativePath, "error", err)
		result.Outcome = SkippedUnreadable
		return result, nil
	}
	if !IsText(content) {
		slog.Debug("Skipping non-text file", "path", entry.RelativePath)
		result.Outcome = SkippedNonText
		return result, nil
	}

	slog.Debug("Indexing", "path", entry.RelativePath)

	candidates := ScanMarkers(string(content))
	markers := make([]domain.Marker, 0, len(candidates))
	if len(candidates) > 0 {
		authors := x.attribution.ForFile(ctx, entry.RelativePath)
		for _, c := range candidates {
			author, ok := authors.Resolve(c.Row)
			if !ok {
				author = domain.UnknownAuthor
			}
			markers = append(markers, domain.Marker{
				Line:   c.Row + 1,
				Column: c.Column,
				Author: author,
				Body:   c.Body,
			})
		}
	}

	result.Outcome = Scanned
	result.Row = domain.IndexedFile{
		Path:         entry.Path,
		RelativePath: entry.RelativePath,
		Markers:      markers,
		LastIndexed:  x.now().UTC().Round(0),
	}
	return result, nil
}

// IsText reports whether content is valid UTF-8 that go-enry does not
// consider binary.
func IsText(content []byte) bool {
	return utf8.Valid(content) && !enry.IsBinary(content)
}
