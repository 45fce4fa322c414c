// Package servecmder provides the serve command, which runs the local console
// gateway and the MCP tool server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/api"
	"github.com/papercomputeco/stylectl/api/mcp"
	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/config"
	"github.com/papercomputeco/stylectl/pkg/logger"
	"github.com/papercomputeco/stylectl/proxy"
)

const (
	shutdownTimeout = 5 * time.Second
	logPrefix       = "gateway"
)

type serveCommander struct {
	backendFlags cmdutil.BackendFlags
	streamFlags  cmdutil.EventStreamFlags

	listen   string
	stdio    bool
	noMCP    bool
	jsonLogs bool
	logFile  string

	cfg    *config.Config
	logger *slog.Logger
}

var flagKeys = append(append([]string{config.FlagListen}, cmdutil.BackendFlagKeys...), cmdutil.EventStreamFlagKeys...)

const serveLongDesc string = `Run the local console gateway and MCP server.

The gateway proxies the backend for local tools:
  GET  /ping              Liveness
  GET  /v1/status         Backend health and the loaded collection
  GET  /v1/openapi.json   The backend's OpenAPI document, fetched with the token
  ALL  /v1/backend/*      Any backend route, forwarded with the token attached
  ALL  /mcp               MCP tools over streamable HTTP

Upload progress streamed through /v1/backend/* is published to the configured
event stream.

The MCP server exposes convert_style, search_messages and list_collections.
With --stdio it serves MCP over stdin/stdout instead, for agents that launch
stylectl as a subprocess.

Examples:
  stylectl serve
  stylectl serve --listen 127.0.0.1:9000 --json-logs
  stylectl serve --stdio`

const serveShortDesc string = "Run the local gateway and MCP server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.stdio && cmder.noMCP {
				return fmt.Errorf("--stdio and --no-mcp are mutually exclusive")
			}

			var err error
			cmder.cfg, err = cmdutil.LoadConfig(cmd, flagKeys...)
			if err != nil {
				return err
			}
			cmder.listen = cmder.cfg.Serve.Listen
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, closeLog, err := cmder.newLogger(cmd)
			if err != nil {
				return err
			}
			defer closeLog()
			cmder.logger = log

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
	}

	cmdutil.AddBackendFlags(cmd, &cmder.backendFlags)
	cmdutil.AddEventStreamFlags(cmd, &cmder.streamFlags)
	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	cmd.Flags().BoolVar(&cmder.stdio, "stdio", false, "Serve MCP over stdin/stdout instead of HTTP")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP server on /mcp")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Log JSON records instead of pretty output")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

// newLogger logs to stderr, which stays free of protocol traffic in stdio
// mode, and optionally to a JSON log file. Debug runs add source locations.
func (c *serveCommander) newLogger(cmd *cobra.Command) (*slog.Logger, func(), error) {
	debug, _ := cmd.Flags().GetBool(cmdutil.FlagDebug)

	base := []logger.Option{
		logger.WithDebug(debug),
		logger.WithSource(debug),
		logger.WithPrefix(logPrefix),
	}
	console := slices.Concat(base, []logger.Option{
		logger.WithJSON(c.jsonLogs),
		logger.WithPretty(!c.jsonLogs),
		logger.WithWriter(cmd.ErrOrStderr()),
	})
	if c.logFile == "" {
		return logger.New(console...), func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	closeFile := func() { _ = f.Close() }

	if c.jsonLogs {
		both := logger.New(slices.Concat(base, []logger.Option{
			logger.WithJSON(true),
			logger.WithWriters(cmd.ErrOrStderr(), f),
		})...)
		return both, closeFile, nil
	}

	file := logger.New(slices.Concat(base, []logger.Option{logger.WithJSON(true), logger.WithWriter(f)})...)
	return logger.Multi(logger.New(console...), file), closeFile, nil
}

func (c *serveCommander) run(ctx context.Context) error {
	client, err := cmdutil.NewClient(c.cfg.Backend, c.logger)
	if err != nil {
		return err
	}

	var mcpServer *mcp.Server
	if !c.noMCP {
		mcpServer, err = mcp.NewServer(mcp.Config{
			Backend: client,
			Logger:  c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
	}

	if c.stdio {
		c.logger.Info("serving MCP over stdio", "backend", client.BaseURL())
		if err := mcpServer.RunStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	}

	return c.runHTTP(ctx, client, mcpServer)
}

func (c *serveCommander) runHTTP(ctx context.Context, client *backend.Client, mcpServer *mcp.Server) error {
	timeout, err := c.cfg.Backend.TimeoutDuration()
	if err != nil {
		return err
	}

	publisher, err := cmdutil.NewPublisher(c.cfg.EventStream)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			c.logger.Warn("closing progress publisher", "error", err)
		}
	}()

	passthrough, err := proxy.New(proxy.Config{
		Target:    client.BaseURL(),
		Token:     c.cfg.Backend.Token,
		Timeout:   timeout,
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating backend passthrough: %w", err)
	}

	apiConfig := api.Config{
		ListenAddr:   c.listen,
		BackendURL:   client.BaseURL(),
		BackendProxy: passthrough.Handler,
	}
	if mcpServer != nil {
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	apiServer, err := api.NewServer(apiConfig, client, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting gateway",
		"listen", c.listen,
		"backend", client.BaseURL(),
		"mcp", mcpServer != nil,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
