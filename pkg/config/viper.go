package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/stylectl/pkg/dotdir"
)

// EnvPrefix prefixes every environment override, e.g. STYLECTL_BACKEND_TOKEN.
const EnvPrefix = "STYLECTL"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the STYLECTL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (STYLECTL_BACKEND_TARGET, STYLECTL_BACKEND_TOKEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the resolved configuration.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Backend: BackendConfig{
			Target:    v.GetString("backend.target"),
			APIPrefix: v.GetString("backend.api_prefix"),
			Token:     v.GetString("backend.token"),
			Timeout:   v.GetString("backend.timeout"),
		},
		Upload: UploadConfig{
			Workers:           v.GetUint("upload.workers"),
			QueueSize:         v.GetUint("upload.queue_size"),
			DefaultUser:       v.GetString("upload.default_user"),
			DefaultCollection: v.GetString("upload.default_collection"),
		},
		Serve: ServeConfig{
			Listen: v.GetString("serve.listen"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  v.GetString("eventstream.brokers"),
			Topic:    v.GetString("eventstream.topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. Every key gets a default, even an empty one, so
// AutomaticEnv can resolve it.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Backend
	v.SetDefault("backend.target", d.Backend.Target)
	v.SetDefault("backend.api_prefix", d.Backend.APIPrefix)
	v.SetDefault("backend.token", d.Backend.Token)
	v.SetDefault("backend.timeout", d.Backend.Timeout)

	// Upload
	v.SetDefault("upload.workers", d.Upload.Workers)
	v.SetDefault("upload.queue_size", d.Upload.QueueSize)
	v.SetDefault("upload.default_user", d.Upload.DefaultUser)
	v.SetDefault("upload.default_collection", d.Upload.DefaultCollection)

	// Serve
	v.SetDefault("serve.listen", d.Serve.Listen)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}
