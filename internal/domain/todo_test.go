package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestIndexedFile_JSONFieldNames(t *testing.T) {
	row := IndexedFile{
		Path:         "/repo/a.py",
		RelativePath: "a.py",
		Markers:      []Marker{{Line: 3, Column: 2, Author: "Alice", Body: "fix parsing"}},
		LastIndexed:  time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC),
	}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Failed to marshal IndexedFile: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal raw JSON: %v", err)
	}
	for _, key := range []string{"path", "relative_path", "todos", "last_indexed"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected key %q in %s", key, data)
		}
	}
	if raw["last_indexed"] != "2024-05-01T12:00:00.123456789Z" {
		t.Errorf("last_indexed = %v, want RFC 3339 with nanoseconds", raw["last_indexed"])
	}

	todos := raw["todos"].([]any)
	marker := todos[0].(map[string]any)
	for _, key := range []string{"line", "col", "author", "body"} {
		if _, ok := marker[key]; !ok {
			t.Errorf("Expected marker key %q in %s", key, data)
		}
	}
}

func TestIndexedFile_RoundTrip(t *testing.T) {
	row := IndexedFile{
		Path:         "/repo/src/lib.rs",
		RelativePath: "src/lib.rs",
		Markers: []Marker{
			{Line: 1, Column: 3, Author: "Bob", Body: "one"},
			{Line: 9, Column: 0, Author: UnknownAuthor, Body: "two"},
		},
		LastIndexed: time.Date(2024, 5, 1, 12, 0, 0, 1, time.UTC),
	}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var decoded IndexedFile
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if !decoded.LastIndexed.Equal(row.LastIndexed) {
		t.Errorf("LastIndexed = %v, want %v", decoded.LastIndexed, row.LastIndexed)
	}
	if !reflect.DeepEqual(decoded.Markers, row.Markers) {
		t.Errorf("Markers = %+v, want %+v", decoded.Markers, row.Markers)
	}
}

func TestIndex_PathsAndCount(t *testing.T) {
	idx := NewIndex()
	idx["b.go"] = IndexedFile{RelativePath: "b.go", Markers: []Marker{{Line: 1}}}
	idx["a.py"] = IndexedFile{RelativePath: "a.py", Markers: []Marker{{Line: 1}, {Line: 2}}}
	idx["c.txt"] = IndexedFile{RelativePath: "c.txt"}

	want := []string{"a.py", "b.go", "c.txt"}
	if got := idx.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
	if got := idx.MarkerCount(); got != 3 {
		t.Errorf("MarkerCount() = %d, want 3", got)
	}
}
