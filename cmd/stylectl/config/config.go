// Package configcmder provides the config command for managing persistent
// stylectl configuration stored in the .stylectl/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/pkg/cliui"
	"github.com/papercomputeco/stylectl/pkg/config"
)

const configLongDesc string = `Manage persistent stylectl configuration.

Configuration is stored as config.toml in the .stylectl/ directory and provides
default values for command flags. CLI flags and STYLECTL_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  backend.target, backend.api_prefix, backend.token, backend.timeout,
  upload.workers, upload.queue_size, upload.default_user,
  upload.default_collection, serve.listen,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  stylectl config set <key> <value>    Set a configuration value
  stylectl config get <key>            Get a configuration value
  stylectl config list                 List all configuration values

Examples:
  stylectl config set backend.target https://styles.example.com
  stylectl config set upload.default_user alice
  stylectl config get backend.target
  stylectl config list`

const configShortDesc string = "Manage persistent stylectl configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(out io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}

// display hides secret values unless reveal is set.
func display(key, value string, reveal bool) string {
	if reveal || !config.IsSecretConfigKey(key) {
		return value
	}
	return config.Redact(value)
}
