package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent stylectl configuration stored as
// config.toml in the .stylectl/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Backend     BackendConfig     `toml:"backend"`
	Upload      UploadConfig      `toml:"upload"`
	Serve       ServeConfig       `toml:"serve"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// BackendConfig locates the conversion backend.
type BackendConfig struct {
	// Target is the backend root URL (scheme + host + port).
	Target    string `toml:"target,omitempty"`
	APIPrefix string `toml:"api_prefix,omitempty"`
	Token     string `toml:"token,omitempty"`

	// Timeout bounds non-streaming requests, as a Go duration string.
	Timeout string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (b BackendConfig) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(b.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(b.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid backend.timeout: %w", err)
	}
	return d, nil
}

// UploadConfig holds defaults for upload and watch.
type UploadConfig struct {
	Workers           uint   `toml:"workers,omitempty"`
	QueueSize         uint   `toml:"queue_size,omitempty"`
	DefaultUser       string `toml:"default_user,omitempty"`
	DefaultCollection string `toml:"default_collection,omitempty"`
}

// ServeConfig holds settings of the local gateway.
type ServeConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventStreamConfig selects where upload progress is published.
type EventStreamConfig struct {
	// Provider is "nop" (or empty) or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// BrokerList splits Brokers, dropping empty entries.
func (e EventStreamConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get    func(c *Config) string
	set    func(c *Config, v string) error
	secret bool
}

func parseUint(key, v string) (uint, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return uint(n), nil
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"backend.target": {
		get: func(c *Config) string { return c.Backend.Target },
		set: func(c *Config, v string) error { c.Backend.Target = v; return nil },
	},
	"backend.api_prefix": {
		get: func(c *Config) string { return c.Backend.APIPrefix },
		set: func(c *Config, v string) error { c.Backend.APIPrefix = v; return nil },
	},
	"backend.token": {
		get:    func(c *Config) string { return c.Backend.Token },
		set:    func(c *Config, v string) error { c.Backend.Token = v; return nil },
		secret: true,
	},
	"backend.timeout": {
		get: func(c *Config) string { return c.Backend.Timeout },
		set: func(c *Config, v string) error {
			if _, err := (BackendConfig{Timeout: v}).TimeoutDuration(); err != nil {
				return err
			}
			c.Backend.Timeout = v
			return nil
		},
	},
	"upload.workers": {
		get: func(c *Config) string { return formatUint(c.Upload.Workers) },
		set: func(c *Config, v string) error {
			n, err := parseUint("upload.workers", v)
			if err != nil {
				return err
			}
			c.Upload.Workers = n
			return nil
		},
	},
	"upload.queue_size": {
		get: func(c *Config) string { return formatUint(c.Upload.QueueSize) },
		set: func(c *Config, v string) error {
			n, err := parseUint("upload.queue_size", v)
			if err != nil {
				return err
			}
			c.Upload.QueueSize = n
			return nil
		},
	},
	"upload.default_user": {
		get: func(c *Config) string { return c.Upload.DefaultUser },
		set: func(c *Config, v string) error { c.Upload.DefaultUser = v; return nil },
	},
	"upload.default_collection": {
		get: func(c *Config) string { return c.Upload.DefaultCollection },
		set: func(c *Config, v string) error { c.Upload.DefaultCollection = v; return nil },
	},
	"serve.listen": {
		get: func(c *Config) string { return c.Serve.Listen },
		set: func(c *Config, v string) error { c.Serve.Listen = v; return nil },
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case "", "nop", "kafka":
				c.EventStream.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for eventstream.provider: %q (available: nop, kafka)", v)
			}
		},
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}
