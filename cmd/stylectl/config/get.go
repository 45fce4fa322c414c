package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/cliui"
	"github.com/papercomputeco/stylectl/pkg/config"
)

const getLongDesc string = `Get a configuration value.

Reads the value for the given key from the config.toml file
stored in the .stylectl/ directory. Secret values such as backend.token
are redacted unless --reveal is given.

Examples:
  stylectl config get backend.target
  stylectl config get backend.token --reveal`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.OutOrStdout(), args[0], cmdutil.ConfigDir(cmd), reveal)
		},
		ValidArgsFunction: completeKeys,
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print secret values in full")

	return cmd
}

func runGet(out io.Writer, key, configDir string, reveal bool) error {
	if err := validateKey(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(out, cfger)

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	if value == "" {
		fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render(key), cliui.DimStyle.Render("<not set>"))
	} else {
		fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(display(key, value, reveal)))
	}

	return nil
}
