// Package mcp exposes the TODO index as MCP tools.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/palpatine/internal/domain"
	"github.com/sha1n/palpatine/internal/todos"
)

// IndexService is what the tools need from the index.
type IndexService interface {
	// Load returns the saved index.
	Load() domain.Index
	// Run performs an index pass and saves the result.
	Run(ctx context.Context) (*todos.Summary, error)
}

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name       string
	Version    string
	Service    IndexService
	MaxResults int
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Service != nil {
		RegisterListTool(s, cfg.Service)
		RegisterSearchTool(s, cfg.Service, cfg.MaxResults)
		RegisterReindexTool(s, cfg.Service)
	}

	return s
}
