package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --target
// on "stylectl convert", "stylectl upload" and "stylectl serve").
type Flag struct {
	// Name is the long flag name (e.g. "target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "t"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "backend.target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagTarget            = "target"
	FlagAPIPrefix         = "api-prefix"
	FlagToken             = "token"
	FlagTimeout           = "timeout"
	FlagWorkers           = "workers"
	FlagQueueSize         = "queue-size"
	FlagUser              = "user"
	FlagCollection        = "collection"
	FlagListen            = "listen"
	FlagEventStreamProv   = "eventstream-provider"
	FlagEventStreamBroker = "eventstream-brokers"
	FlagEventStreamTopic  = "eventstream-topic"
)

// Flags is the registry shared by all stylectl commands.
var Flags = FlagSet{
	FlagTarget: {
		Name:        "target",
		Shorthand:   "t",
		ViperKey:    "backend.target",
		Description: "Conversion backend URL",
	},
	FlagAPIPrefix: {
		Name:        "api-prefix",
		ViperKey:    "backend.api_prefix",
		Description: "Path prefix of versioned backend routes",
	},
	FlagToken: {
		Name:        "token",
		ViperKey:    "backend.token",
		Description: "Bearer token for the backend (prefer STYLECTL_BACKEND_TOKEN)",
	},
	FlagTimeout: {
		Name:        "timeout",
		ViperKey:    "backend.timeout",
		Description: "Timeout for non-streaming backend requests (e.g. 30s)",
	},
	FlagWorkers: {
		Name:        "workers",
		Shorthand:   "w",
		ViperKey:    "upload.workers",
		Description: "Number of concurrent uploads",
	},
	FlagQueueSize: {
		Name:        "queue-size",
		ViperKey:    "upload.queue_size",
		Description: "Pending upload queue capacity",
	},
	FlagUser: {
		Name:        "user",
		Shorthand:   "u",
		ViperKey:    "upload.default_user",
		Description: "Sender whose messages are embedded",
	},
	FlagCollection: {
		Name:        "collection",
		Shorthand:   "c",
		ViperKey:    "upload.default_collection",
		Description: "Vector store collection",
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "serve.listen",
		Description: "Address for the local gateway to listen on",
	},
	FlagEventStreamProv: {
		Name:        "eventstream-provider",
		ViperKey:    "eventstream.provider",
		Description: "Upload progress publisher (nop, kafka)",
	},
	FlagEventStreamBroker: {
		Name:        "eventstream-brokers",
		ViperKey:    "eventstream.brokers",
		Description: "Comma separated Kafka brokers",
	},
	FlagEventStreamTopic: {
		Name:        "eventstream-topic",
		ViperKey:    "eventstream.topic",
		Description: "Kafka topic for upload progress",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
