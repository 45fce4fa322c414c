// Package mcp provides an MCP (Model Context Protocol) server exposing the
// style-conversion backend as tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/utils"
)

// Backend is the part of the backend client the tools call.
type Backend interface {
	Convert(ctx context.Context, req backend.ConvertRequest) (*backend.ConvertResponse, error)
	Search(ctx context.Context, query string, topK int) (*backend.SearchResponse, error)
	Collections(ctx context.Context) ([]string, error)
	LoadedCollection(ctx context.Context) (string, error)
}

type Config struct {
	// Backend serves every tool call
	Backend Backend

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the conversion, search and
// collection tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "stylectl",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Backend == nil {
			return nil, errors.New("backend is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        convertToolName,
			Description: convertDescription,
		}, s.handleConvert)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        collectionsToolName,
			Description: collectionsDescription,
		}, s.handleCollections)
	}

	s.mcpServer = mcpServer

	// Stateless: every request carries its own session
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves a single session over t until the client disconnects or ctx is
// done.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcpServer.Run(ctx, t)
}

// RunStdio serves over the process's stdin and stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Connect starts a session over t without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// toolError reports a failed call to the model rather than as a protocol
// error, so the model can read and react to it.
func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// jsonResult mirrors structured output into a text block for clients that
// only read content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil
}
