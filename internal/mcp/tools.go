package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/palpatine/internal/report"
	"github.com/sha1n/palpatine/internal/search"
)

// errorResult builds a tool error response.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// ListArgs defines the input parameters for the list_todos tool.
type ListArgs struct {
	PathPrefix string `json:"pathPrefix,omitempty" jsonschema:"Only list files whose relative path starts with this prefix"`
}

// ListHandler renders the cached index as a report.
type ListHandler struct {
	service IndexService
}

// NewListHandler creates a new list handler.
func NewListHandler(service IndexService) *ListHandler {
	return &ListHandler{service: service}
}

// Handle processes a list_todos request.
func (h *ListHandler) Handle(_ context.Context, _ *mcp.CallToolRequest, args ListArgs) (*mcp.CallToolResult, any, error) {
	index := report.FilterPrefix(h.service.Load(), args.PathPrefix)
	return textResult(report.String(index)), nil, nil
}

// SearchArgs defines the input parameters for the search_todos tool.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"Full-text query matched against TODO bodies"`
	Author     string `json:"author,omitempty" jsonschema:"Only return TODOs by this author (exact name)"`
	Language   string `json:"language,omitempty" jsonschema:"Only return TODOs in files of this language (e.g. go, python)"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return"`
}

// SearchHandler runs full-text queries over the cached index.
type SearchHandler struct {
	service    IndexService
	maxResults int
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service IndexService, maxResults int) *SearchHandler {
	return &SearchHandler{
		service:    service,
		maxResults: maxResults,
	}
}

// Handle processes a search_todos request.
func (h *SearchHandler) Handle(_ context.Context, _ *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	searcher, err := search.Build(h.service.Load())
	if err != nil {
		return errorResult("Failed to build search index: %s", err), nil, nil
	}
	defer func() {
		if err := searcher.Close(); err != nil {
			slog.Error("Failed to close search index", "error", err)
		}
	}()

	limit := args.MaxResults
	if limit <= 0 {
		limit = h.maxResults
	}

	results, err := searcher.Search(search.Query{
		Text:     args.Query,
		Author:   args.Author,
		Language: args.Language,
		Limit:    limit,
	})
	if err != nil {
		return errorResult("Search failed: %s", err), nil, nil
	}

	return textResult(FormatSearchResults(results, args.Query)), nil, nil
}

// FormatSearchResults renders search results, one hit per line.
func FormatSearchResults(results *search.Results, query string) string {
	if results.Total == 0 {
		return fmt.Sprintf("No TODOs found for query: %s", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d TODOs for '%s':\n", results.Total, query)
	for _, hit := range results.Hits {
		sb.WriteString(search.FormatHit(hit))
		sb.WriteString("\n")
	}
	if results.Total > uint64(len(results.Hits)) {
		fmt.Fprintf(&sb, "... and %d more results\n", results.Total-uint64(len(results.Hits)))
	}
	return sb.String()
}

// ReindexArgs defines the (empty) input of the reindex tool.
type ReindexArgs struct{}

// ReindexHandler runs an index pass on demand.
type ReindexHandler struct {
	service IndexService
}

// NewReindexHandler creates a new reindex handler.
func NewReindexHandler(service IndexService) *ReindexHandler {
	return &ReindexHandler{service: service}
}

// Handle processes a reindex request.
func (h *ReindexHandler) Handle(ctx context.Context, _ *mcp.CallToolRequest, _ ReindexArgs) (*mcp.CallToolResult, any, error) {
	summary, err := h.service.Run(ctx)
	if err != nil {
		slog.Error("Reindex failed", "error", err)
		if errors.Is(err, context.Canceled) {
			return errorResult("Reindex canceled"), nil, nil
		}
		return errorResult("Reindex failed: %s", err), nil, nil
	}
	return textResult(fmt.Sprintf("%d file(s) were updated", summary.Updated)), nil, nil
}

// RegisterListTool registers list_todos with an MCP server.
func RegisterListTool(server *mcp.Server, service IndexService) {
	handler := NewListHandler(service)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_todos",
		Description: "List cached TODO comments grouped by file, with line numbers and blame authors",
	}, handler.Handle)
}

// RegisterSearchTool registers search_todos with an MCP server.
func RegisterSearchTool(server *mcp.Server, service IndexService, maxResults int) {
	handler := NewSearchHandler(service, maxResults)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_todos",
		Description: "Full-text search over cached TODO comments, optionally filtered by author or language",
	}, handler.Handle)
}

// RegisterReindexTool registers reindex with an MCP server.
func RegisterReindexTool(server *mcp.Server, service IndexService) {
	handler := NewReindexHandler(service)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reindex",
		Description: "Re-scan files changed since the last index pass and update the TODO cache",
	}, handler.Handle)
}
