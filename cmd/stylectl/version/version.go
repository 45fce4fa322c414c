// Package versioncmder prints build information.
package versioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display version",
		Long:  "Display the version, commit and build time of this CLI.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout())
		},
	}

	return cmd
}

func run(out io.Writer) error {
	_, err := fmt.Fprintf(out, "Version:  %s\nSha:      %s\nBuilt at: %s\n", utils.Version, utils.Sha, utils.Buildtime)
	return err
}
