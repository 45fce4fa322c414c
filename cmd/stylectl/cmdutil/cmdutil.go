// Package cmdutil holds the wiring shared by stylectl commands: resolved
// configuration, the CLI logger, the backend client and the progress
// publisher.
package cmdutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/config"
	"github.com/papercomputeco/stylectl/pkg/eventstream"
	"github.com/papercomputeco/stylectl/pkg/eventstream/kafka"
	"github.com/papercomputeco/stylectl/pkg/eventstream/nop"
	"github.com/papercomputeco/stylectl/pkg/logger"
)

// Persistent flags registered on the root command.
const (
	FlagDebug     = "debug"
	FlagConfigDir = "config-dir"
)

// BackendFlagKeys are the registry keys of the flags every backend-facing
// command carries.
var BackendFlagKeys = []string{
	config.FlagTarget,
	config.FlagAPIPrefix,
	config.FlagToken,
	config.FlagTimeout,
}

// EventStreamFlagKeys are the registry keys of the progress publisher flags.
var EventStreamFlagKeys = []string{
	config.FlagEventStreamProv,
	config.FlagEventStreamBroker,
	config.FlagEventStreamTopic,
}

// BackendFlags are the flag targets for BackendFlagKeys. Commands read the
// resolved values from LoadConfig, never from these fields.
type BackendFlags struct {
	target    string
	apiPrefix string
	token     string
	timeout   string
}

// AddBackendFlags registers the backend flags on cmd.
func AddBackendFlags(cmd *cobra.Command, f *BackendFlags) {
	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &f.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIPrefix, &f.apiPrefix)
	config.AddStringFlag(cmd, config.Flags, config.FlagToken, &f.token)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &f.timeout)
}

// EventStreamFlags are the flag targets for EventStreamFlagKeys.
type EventStreamFlags struct {
	provider string
	brokers  string
	topic    string
}

// AddEventStreamFlags registers the progress publisher flags on cmd.
func AddEventStreamFlags(cmd *cobra.Command, f *EventStreamFlags) {
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamProv, &f.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamBroker, &f.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamTopic, &f.topic)
}

// ConfigDir returns the --config-dir override, or "" when cmd has none.
func ConfigDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString(FlagConfigDir)
	return dir
}

// LoadConfig resolves the configuration for cmd with flag > env > file >
// default precedence. Only the flags named by keys take part.
func LoadConfig(cmd *cobra.Command, keys ...string) (*config.Config, error) {
	v, err := config.InitViper(ConfigDir(cmd))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, keys)
	return config.FromViper(v), nil
}

// NewLogger returns the pretty stderr logger of cmd, at debug level when
// --debug is set. opts are applied last.
func NewLogger(cmd *cobra.Command, opts ...logger.Option) *slog.Logger {
	debug, _ := cmd.Flags().GetBool(FlagDebug)
	return logger.New(append([]logger.Option{
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithWriter(cmd.ErrOrStderr()),
	}, opts...)...)
}

// NewClient builds a backend client from cfg.
func NewClient(cfg config.BackendConfig, log *slog.Logger) (*backend.Client, error) {
	if strings.TrimSpace(cfg.Target) == "" {
		return nil, fmt.Errorf("backend target is not configured, set --target or %s_BACKEND_TARGET", config.EnvPrefix)
	}

	client, err := backend.NewClient(backend.Config{
		BaseURL:   cfg.Target,
		APIPrefix: cfg.APIPrefix,
		Token:     cfg.Token,
		Logger:    log,
		Retry:     backend.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}
	return client, nil
}

// WithTimeout bounds ctx by the configured request timeout. Streaming
// uploads must not use it.
func WithTimeout(ctx context.Context, cfg config.BackendConfig) (context.Context, context.CancelFunc, error) {
	d, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, nil, err
	}
	if d <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, cancel, nil
}

// NewPublisher returns the upload progress publisher selected by cfg.
func NewPublisher(cfg config.EventStreamConfig) (eventstream.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.BrokerList(),
			Topic:   cfg.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown eventstream provider %q (valid: nop, kafka)", cfg.Provider)
	}
}
