package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/utils"
)

const defaultTopK = 5

var (
	searchToolName    = "search_messages"
	searchDescription = "Search the loaded collection for past messages most similar to the query. Returns each hit's content, timestamp and similarity score."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5, max: 50)"`
}

// SearchResult represents a single search hit.
type SearchResult struct {
	Score     float64 `json:"score"`
	Timestamp string  `json:"timestamp"`
	Preview   string  `json:"preview"`
	Content   string  `json:"content"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Collection string         `json:"collection"`
	Query      string         `json:"query"`
	Results    []SearchResult `json:"results"`
	Count      int            `json:"count"`
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	if strings.TrimSpace(input.Query) == "" {
		return toolError("query is required"), SearchOutput{}, nil
	}

	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	topK = min(topK, backend.MaxTopK)

	logger.Debug("MCP search request", "query", input.Query, "top_k", topK)

	resp, err := s.config.Backend.Search(ctx, input.Query, topK)
	if err != nil {
		logger.Error("search failed", "error", err)
		return toolError("Failed to search: %v", err), SearchOutput{}, nil
	}

	output := buildSearchOutput(input.Query, resp)
	result, err := jsonResult(output)
	if err != nil {
		return toolError("Failed to serialize results: %v", err), SearchOutput{}, nil
	}
	return result, output, nil
}

func buildSearchOutput(query string, resp *backend.SearchResponse) SearchOutput {
	results := make([]SearchResult, 0, len(resp.Messages))
	for _, hit := range resp.Messages {
		results = append(results, SearchResult{
			Score:     hit.Score,
			Timestamp: hit.Timestamp,
			Preview:   utils.Truncate(hit.Content, 80),
			Content:   hit.Content,
		})
	}

	return SearchOutput{
		Collection: resp.CollectionName,
		Query:      query,
		Results:    results,
		Count:      len(results),
	}
}
