// Package report renders the cached index as plain text.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/sha1n/palpatine/internal/domain"
)

// EmptyMessage is printed when no file has a marker.
const EmptyMessage = "No TODOs found"

// Write prints every file with at least one marker, sorted by path:
//
//	1 TODOs in a.py
//	    3: TODO(Alice): fix parsing
func Write(w io.Writer, index domain.Index) error {
	printed := 0
	for _, path := range index.Paths() {
		row := index[path]
		if len(row.Markers) == 0 {
			continue
		}

		if _, err := fmt.Fprintf(w, "%d TODOs in %s\n", len(row.Markers), path); err != nil {
			return err
		}
		for _, m := range row.Markers {
			if _, err := fmt.Fprintf(w, "    %s\n", FormatMarker(m)); err != nil {
				return err
			}
		}
		printed++
	}

	if printed == 0 {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}
	return nil
}

// String renders the report into a string.
func String(index domain.Index) string {
	var sb strings.Builder
	_ = Write(&sb, index)
	return sb.String()
}

// FormatMarker renders a marker as "<line>: TODO(<author>): <body>".
func FormatMarker(m domain.Marker) string {
	return fmt.Sprintf("%d: TODO(%s): %s", m.Line, m.Author, m.Body)
}

// FilterPrefix returns the rows whose relative path starts with prefix.
// An empty prefix returns index unchanged.
func FilterPrefix(index domain.Index, prefix string) domain.Index {
	prefix = strings.TrimPrefix(prefix, "./")
	if prefix == "" {
		return index
	}
	out := domain.NewIndex()
	for path, row := range index {
		if strings.HasPrefix(path, prefix) {
			out[path] = row
		}
	}
	return out
}
