// Package search runs full-text queries over cached markers using an
// in-memory Bleve index.
package search

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/go-enry/go-enry/v2"

	"github.com/sha1n/palpatine/internal/domain"
)

const (
	// DefaultMaxResults is used when a query sets no limit
	DefaultMaxResults = 50

	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 100
)

// ErrEmptyQuery is returned for a blank query string.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Query selects markers. Author and Language are exact filters.
type Query struct {
	Text     string
	Author   string
	Language string
	Limit    int
}

// Hit is one matching marker.
type Hit struct {
	Path     string
	Line     int
	Author   string
	Language string
	Body     string
	Score    float64
}

// Results holds the returned hits and the total match count.
type Results struct {
	Total uint64
	Hits  []Hit
}

// Searcher answers queries over a snapshot of the index.
type Searcher struct {
	index bleve.Index
}

// CreateIndexMapping creates the Bleve index mapping for marker documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Body - analyzed for full-text search
	bodyField := bleve.NewTextFieldMapping()
	bodyField.Analyzer = standard.Name
	bodyField.Store = true
	docMapping.AddFieldMappingsAt(domain.MarkerFieldBody, bodyField)

	for _, name := range []string{domain.MarkerFieldFilePath, domain.MarkerFieldAuthor, domain.MarkerFieldLanguage} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = true
		docMapping.AddFieldMappingsAt(name, f)
	}

	lineField := bleve.NewNumericFieldMapping()
	lineField.Store = true
	docMapping.AddFieldMappingsAt(domain.MarkerFieldLine, lineField)

	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = true
	docMapping.AddFieldMappingsAt(domain.MarkerFieldID, idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Build indexes every marker of idx in memory.
func Build(idx domain.Index) (*Searcher, error) {
	index, err := bleve.NewMemOnly(CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	batch := index.NewBatch()
	for _, p := range idx.Paths() {
		row := idx[p]
		language := Language(p)
		for _, m := range row.Markers {
			doc := domain.MarkerDocument{
				ID:       p + ":" + strconv.Itoa(m.Line),
				FilePath: p,
				Line:     m.Line,
				Author:   m.Author,
				Language: language,
				Body:     m.Body,
			}
			if err := batch.Index(doc.ID, doc); err != nil {
				_ = index.Close()
				return nil, fmt.Errorf("failed to index %s: %w", doc.ID, err)
			}
			if batch.Size() >= MaxBatchSize {
				if err := index.Batch(batch); err != nil {
					_ = index.Close()
					return nil, fmt.Errorf("failed to execute batch: %w", err)
				}
				batch = index.NewBatch()
			}
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to execute batch: %w", err)
		}
	}

	return &Searcher{index: index}, nil
}

// Close releases the index.
func (s *Searcher) Close() error {
	return s.index.Close()
}

// Count returns the number of indexed markers.
func (s *Searcher) Count() (uint64, error) {
	return s.index.DocCount()
}

// Search runs q and returns hits ordered by score, then path and line.
func (s *Searcher) Search(q Query) (*Results, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}

	req := bleve.NewSearchRequest(buildQuery(q))
	req.Size = q.Limit
	if req.Size <= 0 {
		req.Size = DefaultMaxResults
	}
	req.Fields = []string{
		domain.MarkerFieldFilePath,
		domain.MarkerFieldLine,
		domain.MarkerFieldAuthor,
		domain.MarkerFieldLanguage,
		domain.MarkerFieldBody,
	}
	req.SortBy([]string{"-_score", domain.MarkerFieldFilePath, domain.MarkerFieldLine})

	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := &Results{Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		hit.Path, _ = h.Fields[domain.MarkerFieldFilePath].(string)
		hit.Author, _ = h.Fields[domain.MarkerFieldAuthor].(string)
		hit.Language, _ = h.Fields[domain.MarkerFieldLanguage].(string)
		hit.Body, _ = h.Fields[domain.MarkerFieldBody].(string)
		if line, ok := h.Fields[domain.MarkerFieldLine].(float64); ok {
			hit.Line = int(line)
		}
		results.Hits = append(results.Hits, hit)
	}
	return results, nil
}

// buildQuery constructs a Bleve query from search arguments.
func buildQuery(q Query) query.Query {
	bodyQuery := bleve.NewMatchQuery(q.Text)
	bodyQuery.SetField(domain.MarkerFieldBody)

	if q.Author == "" && q.Language == "" {
		return bodyQuery
	}

	must := []query.Query{bodyQuery}

	if q.Author != "" {
		authorQuery := bleve.NewTermQuery(q.Author)
		authorQuery.SetField(domain.MarkerFieldAuthor)
		must = append(must, authorQuery)
	}

	if q.Language != "" {
		langQuery := bleve.NewTermQuery(strings.ToLower(q.Language))
		langQuery.SetField(domain.MarkerFieldLanguage)
		must = append(must, langQuery)
	}

	return bleve.NewConjunctionQuery(must...)
}

// Language returns the lower-cased go-enry language for a file path, or ""
// when it cannot be told from the name alone.
func Language(relPath string) string {
	name := path.Base(relPath)
	if lang, ok := enry.GetLanguageByFilename(name); ok {
		return strings.ToLower(lang)
	}
	if lang, _ := enry.GetLanguageByExtension(name); lang != "" {
		return strings.ToLower(lang)
	}
	return ""
}

// FormatHit renders a hit as "<path>:<line>: TODO(<author>): <body>".
func FormatHit(h Hit) string {
	return fmt.Sprintf("%s:%d: TODO(%s): %s", h.Path, h.Line, h.Author, h.Body)
}
