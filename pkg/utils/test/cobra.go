package testutils

import (
	"bytes"
	"context"

	"github.com/spf13/cobra"
)

// ExecuteUnderRoot runs sub beneath a stand-in root carrying the global
// --debug and --config-dir flags, pointing the latter at configDir. It returns
// what the command printed to stdout.
func ExecuteUnderRoot(sub *cobra.Command, configDir string, args ...string) (string, error) {
	return ExecuteUnderRootContext(context.Background(), sub, configDir, args...)
}

// ExecuteUnderRootContext is ExecuteUnderRoot for long-running commands that
// stop when ctx is done.
func ExecuteUnderRootContext(ctx context.Context, sub *cobra.Command, configDir string, args ...string) (string, error) {
	root := &cobra.Command{Use: "stylectl", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().BoolP("debug", "d", false, "")
	root.PersistentFlags().String("config-dir", "", "")
	root.AddCommand(sub)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{sub.Name(), "--config-dir", configDir}, args...))

	err := root.ExecuteContext(ctx)
	return out.String(), err
}
