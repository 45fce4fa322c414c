// Package api provides the local console gateway. Backend status, the
// backend's OpenAPI document, the backend passthrough and the MCP tool
// endpoint share one listener.
package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// BackendURL is reported by /v1/status.
	BackendURL string

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler

	// BackendProxy is mounted at /v1/backend/* when set.
	BackendProxy fiber.Handler
}
