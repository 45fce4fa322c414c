// Package initcmder provides the init command for initializing a local
// .stylectl directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/pkg/cliui"
	"github.com/papercomputeco/stylectl/pkg/config"
	"github.com/papercomputeco/stylectl/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .stylectl/ directory in the current working directory.

Creates a local .stylectl/ directory that takes precedence over the default
~/.stylectl/ directory for configuration and the upload journal, and writes a
config.toml seeded from a preset when none exists yet. An explicit --preset
replaces an existing config.toml.

Presets:
  local     Backend on http://localhost:8000, progress events discarded
  compose   Backend and Kafka reachable by their compose service names

Examples:
  stylectl init
  stylectl init --preset compose`

const initShortDesc string = "Initialize a local .stylectl/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", fmt.Sprintf("Config preset (%s)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func runInit(out io.Writer, preset string) error {
	// Validate before touching the filesystem.
	name := preset
	if name == "" {
		name = "local"
	}
	cfg, err := config.PresetConfig(name)
	if err != nil {
		return err
	}

	dir, existed, err := dotdir.NewManager().InitLocal()
	if err != nil {
		return err
	}

	if existed {
		fmt.Fprintf(out, "  %s Already initialized: %s\n", cliui.DimStyle.Render("●"), dir)
	} else {
		fmt.Fprintf(out, "  %s Initialized %s directory: %s\n", cliui.SuccessMark, dotdir.DirName, dir)
	}

	path := filepath.Join(dir, "config.toml")
	_, err = os.Stat(path)
	switch {
	case err == nil && preset == "":
		return nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("checking config: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(out, "  %s Wrote %s preset to %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(name), path)
	return nil
}
