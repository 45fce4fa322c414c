package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
)

// Backend is the part of the backend client the gateway calls.
type Backend interface {
	Health(ctx context.Context) error
	LoadedCollection(ctx context.Context) (string, error)
	OpenAPI(ctx context.Context) ([]byte, error)
}

// Server is the local console gateway.
type Server struct {
	config  Config
	backend Backend
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, b Backend, logger *slog.Logger) (*Server, error) {
	if b == nil {
		return nil, errors.New("backend is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:  config,
		backend: b,
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/status", s.handleStatus)
	app.Get("/v1/openapi.json", s.handleOpenAPI)

	if config.BackendProxy != nil {
		app.All("/v1/backend/*", config.BackendProxy)
	}

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server, waiting for in-flight
// requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
