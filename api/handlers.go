package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/stylectl/pkg/utils"
)

const backendCallTimeout = 10 * time.Second

// ErrorResponse is the body of every failed gateway request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse reports what the gateway can reach.
type StatusResponse struct {
	Version          string `json:"version"`
	Backend          string `json:"backend"`
	Healthy          bool   `json:"healthy"`
	LoadedCollection string `json:"loaded_collection,omitempty"`
	Error            string `json:"error,omitempty"`
	MCP              bool   `json:"mcp"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStatus checks backend health and the loaded collection. An unhealthy
// backend answers 503 with the reason.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), backendCallTimeout)
	defer cancel()

	status := StatusResponse{
		Version: utils.Version,
		Backend: s.config.BackendURL,
		MCP:     s.config.MCPHandler != nil,
	}

	if err := s.backend.Health(ctx); err != nil {
		s.logger.Warn("backend health check failed", "error", err)
		status.Error = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	status.Healthy = true

	loaded, err := s.backend.LoadedCollection(ctx)
	if err != nil {
		s.logger.Warn("reading loaded collection failed", "error", err)
		status.Error = err.Error()
	}
	status.LoadedCollection = loaded

	return c.JSON(status)
}

// handleOpenAPI proxies the backend's OpenAPI document, fetched with the
// configured token so browsers never hold it.
func (s *Server) handleOpenAPI(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), backendCallTimeout)
	defer cancel()

	doc, err := s.backend.OpenAPI(ctx)
	if err != nil {
		s.logger.Error("fetching openapi document failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "failed to fetch backend openapi document"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(doc)
}
