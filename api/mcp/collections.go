package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	collectionsToolName    = "list_collections"
	collectionsDescription = "List the vector-store collections and report which one is loaded for search."
)

// CollectionsInput takes no arguments.
type CollectionsInput struct{}

// CollectionsOutput represents the output of the collections tool.
type CollectionsOutput struct {
	Collections []string `json:"collections"`
	Loaded      string   `json:"loaded,omitempty"`
}

func (s *Server) handleCollections(ctx context.Context, _ *mcp.CallToolRequest, _ CollectionsInput) (*mcp.CallToolResult, CollectionsOutput, error) {
	names, err := s.config.Backend.Collections(ctx)
	if err != nil {
		s.config.Logger.Error("listing collections failed", "error", err)
		return toolError("Failed to list collections: %v", err), CollectionsOutput{}, nil
	}

	loaded, err := s.config.Backend.LoadedCollection(ctx)
	if err != nil {
		s.config.Logger.Error("reading loaded collection failed", "error", err)
		return toolError("Failed to read loaded collection: %v", err), CollectionsOutput{}, nil
	}

	if names == nil {
		names = []string{}
	}
	output := CollectionsOutput{Collections: names, Loaded: loaded}
	result, err := jsonResult(output)
	if err != nil {
		return toolError("Failed to serialize collections: %v", err), CollectionsOutput{}, nil
	}
	return result, output, nil
}
