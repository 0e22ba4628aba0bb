package todos

import (
	"strings"
)

// Tag is the marker every annotation starts with.
const Tag = "TODO:"

// commentPrefixes are recognized after trimming leading whitespace.
var commentPrefixes = []string{"#", "//"}

// Candidate is an accepted marker before attribution.
type Candidate struct {
	// Row is the 0-based line index.
	Row int
	// Column is the 0-based byte offset of Tag on the line.
	Column int
	Body   string
}

// ScanMarkers returns the markers in content, top to bottom. Only the first
// tag on a line counts. Lines that are not line comments and tags with an
// empty body are dropped.
func ScanMarkers(content string) []Candidate {
	var candidates []Candidate

	for row, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")

		col := strings.Index(line, Tag)
		if col < 0 {
			continue
		}
		if !IsComment(line) {
			continue
		}

		body := strings.TrimSpace(line[col+len(Tag):])
		if body == "" {
			continue
		}

		candidates = append(candidates, Candidate{
			Row:    row,
			Column: col,
			Body:   body,
		})
	}

	return candidates
}

// IsComment reports whether line starts with a line comment prefix once
// leading whitespace is removed.
func IsComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range commentPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
