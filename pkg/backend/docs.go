package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// OpenAPI fetches the backend's OpenAPI document.
func (c *Client) OpenAPI(ctx context.Context) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.apiURL("/openapi.json", nil), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading openapi document: %w", err)
	}
	return data, nil
}

// Health checks the backend's unversioned /health route.
func (c *Client) Health(ctx context.Context) error {
	var out healthResponse
	if err := c.doJSON(ctx, http.MethodGet, c.rootURL("/health", nil), nil, &out); err != nil {
		return err
	}
	if out.Status != "healthy" {
		return fmt.Errorf("backend: unhealthy status %q", out.Status)
	}
	return nil
}
