package domain

import (
	"sort"
	"time"
)

// UnknownAuthor is recorded when a marker cannot be attributed.
const UnknownAuthor = "Unknown"

// Marker is one TODO annotation found in a file.
type Marker struct {
	// Line is the 1-based line number within the file.
	Line int `json:"line"`

	// Column is the 0-based byte offset of the tag on its line.
	Column int `json:"col"`

	// Author is the blame display name, or UnknownAuthor.
	Author string `json:"author"`

	// Body is the trimmed text following the tag.
	Body string `json:"body"`
}

// IndexedFile is one cache row.
type IndexedFile struct {
	// Path is the absolute location at the time of the last scan.
	Path string `json:"path"`

	// RelativePath is the slash separated path relative to the repository
	// root. It is the cache key.
	RelativePath string `json:"relative_path"`

	// Markers are in scan order, top to bottom. May be empty.
	Markers []Marker `json:"todos"`

	// LastIndexed is the time of the scan that produced this row.
	LastIndexed time.Time `json:"last_indexed"`
}

// Index maps a relative path to its cache row.
type Index map[string]IndexedFile

// NewIndex creates an empty index.
func NewIndex() Index {
	return make(Index)
}

// Paths returns the relative paths in the index, sorted.
func (idx Index) Paths() []string {
	paths := make([]string, 0, len(idx))
	for p := range idx {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// MarkerCount returns the total number of markers across all rows.
func (idx Index) MarkerCount() int {
	n := 0
	for _, f := range idx {
		n += len(f.Markers)
	}
	return n
}

// MarkerDocument is a single marker as stored in the Bleve search index.
type MarkerDocument struct {
	// ID combines the relative path and line. Format: "src/main.go:12"
	ID string `json:"id"`

	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Author   string `json:"author"`

	// Language is the go-enry language name, lower-cased. Empty if unknown.
	Language string `json:"language"`

	Body string `json:"body"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	MarkerFieldID       = "id"
	MarkerFieldFilePath = "file_path"
	MarkerFieldLine     = "line"
	MarkerFieldAuthor   = "author"
	MarkerFieldLanguage = "language"
	MarkerFieldBody     = "body"
)
