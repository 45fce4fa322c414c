package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Convert rewrites req.Query in the style of the user whose utterances are
// loaded in the backend's active collection.
func (c *Client) Convert(ctx context.Context, req ConvertRequest) (*ConvertResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("backend: query is required")
	}

	var out ConvertResponse
	if err := c.doJSON(ctx, http.MethodPost, c.apiURL("/convert", nil), req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
