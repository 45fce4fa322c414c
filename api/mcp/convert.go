package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/message"
)

var (
	convertToolName    = "convert_style"
	convertDescription = "Rewrite a chat message in every conversational mood the backend supports. Optional context is prior conversation as CSV rows of timestamp,sender,content."
)

// ConvertInput represents the input arguments for the convert tool.
type ConvertInput struct {
	Query   string `json:"query" jsonschema:"the message to rewrite"`
	Context string `json:"context,omitempty" jsonschema:"prior conversation as CSV rows: timestamp (YYYY-MM-DD HH:MM:SS),sender,content"`
}

// Conversion is the query rewritten in one mood.
type Conversion struct {
	Mood string `json:"mood"`
	Text string `json:"text"`
}

// ConvertOutput represents the output of the convert tool.
type ConvertOutput struct {
	Query       string       `json:"query"`
	Conversions []Conversion `json:"conversions"`
}

func (s *Server) handleConvert(ctx context.Context, _ *mcp.CallToolRequest, input ConvertInput) (*mcp.CallToolResult, ConvertOutput, error) {
	logger := s.config.Logger

	if strings.TrimSpace(input.Query) == "" {
		return toolError("query is required"), ConvertOutput{}, nil
	}

	req := backend.ConvertRequest{Query: input.Query}
	if input.Context != "" {
		msgs, err := message.ParseContext(input.Context)
		if err != nil {
			return toolError("Invalid context: %v", err), ConvertOutput{}, nil
		}
		// Re-encode so the backend always gets its own timestamp layout.
		req.ContextMessages, err = message.EncodeContext(msgs)
		if err != nil {
			return toolError("Invalid context: %v", err), ConvertOutput{}, nil
		}
	}

	logger.Debug("MCP convert request", "query_len", len(input.Query), "has_context", req.ContextMessages != "")

	resp, err := s.config.Backend.Convert(ctx, req)
	if err != nil {
		logger.Error("convert failed", "error", err)
		return toolError("Failed to convert: %v", err), ConvertOutput{}, nil
	}

	output := ConvertOutput{
		Query:       input.Query,
		Conversions: make([]Conversion, 0, len(resp.Converted)),
	}
	for _, mood := range resp.Converted.Moods() {
		output.Conversions = append(output.Conversions, Conversion{Mood: mood, Text: resp.Converted[mood]})
	}

	result, err := jsonResult(output)
	if err != nil {
		return toolError("Failed to serialize conversions: %v", err), ConvertOutput{}, nil
	}
	return result, output, nil
}
