// Package statuscmder provides the status command, a summary of the backend
// connection and the local upload journal.
package statuscmder

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/cliui"
	"github.com/papercomputeco/stylectl/pkg/config"
	"github.com/papercomputeco/stylectl/pkg/dotdir"
)

const keyWidth = 11

// ErrUnhealthy is returned with --check when the backend is unreachable or
// unhealthy.
var ErrUnhealthy = errors.New("backend is not healthy")

type statusCommander struct {
	flags cmdutil.BackendFlags

	recent int
	check  bool

	cfg *config.Config
}

const statusLongDesc string = `Show the backend connection and recent uploads.

Reports the configured backend, whether it is healthy, the loaded collection,
and the most recent entries of the .stylectl/ upload journal.

Use --check in scripts: the command then fails when the backend is not
healthy.

Examples:
  stylectl status
  stylectl status --recent 20
  stylectl status --check`

const statusShortDesc string = "Show backend and upload status"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.recent < 0 {
				return fmt.Errorf("--recent must not be negative")
			}

			var err error
			cmder.cfg, err = cmdutil.LoadConfig(cmd, cmdutil.BackendFlagKeys...)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmdutil.AddBackendFlags(cmd, &cmder.flags)
	cmd.Flags().IntVar(&cmder.recent, "recent", 5, "Number of journal entries to show")
	cmd.Flags().BoolVar(&cmder.check, "check", false, "Fail when the backend is not healthy")

	return cmd
}

func (c *statusCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	configDir := cmdutil.ConfigDir(cmd)

	manager := dotdir.NewManager()
	target, err := manager.Target(configDir)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cliui.KeyValue("config", keyWidth, target))

	healthy := c.printBackend(cmd, out)

	journal, err := manager.LoadUploads(configDir)
	if err != nil {
		return fmt.Errorf("loading upload journal: %w", err)
	}
	printJournal(out, journal, c.recent)

	if c.check && !healthy {
		return ErrUnhealthy
	}
	return nil
}

// printBackend reports whether the backend is healthy.
func (c *statusCommander) printBackend(cmd *cobra.Command, out io.Writer) bool {
	if c.cfg.Backend.Target == "" {
		fmt.Fprintln(out, cliui.KeyValue("backend", keyWidth, cliui.DimStyle.Render("not configured")))
		return false
	}
	fmt.Fprintln(out, cliui.KeyValue("backend", keyWidth, c.cfg.Backend.Target))

	unhealthy := func(err error) bool {
		fmt.Fprintln(out, cliui.KeyValue("health", keyWidth, cliui.FailMark+" "+cliui.WarnStyle.Render(err.Error())))
		return false
	}

	client, err := cmdutil.NewClient(c.cfg.Backend, cmdutil.NewLogger(cmd))
	if err != nil {
		return unhealthy(err)
	}

	ctx, cancel, err := cmdutil.WithTimeout(cmd.Context(), c.cfg.Backend)
	if err != nil {
		return unhealthy(err)
	}
	defer cancel()

	if err := client.Health(ctx); err != nil {
		return unhealthy(err)
	}
	fmt.Fprintln(out, cliui.KeyValue("health", keyWidth, cliui.SuccessMark+" healthy"))

	loaded, err := client.LoadedCollection(ctx)
	switch {
	case err != nil:
		fmt.Fprintln(out, cliui.KeyValue("loaded", keyWidth, cliui.WarnStyle.Render(err.Error())))
	case loaded == "":
		fmt.Fprintln(out, cliui.KeyValue("loaded", keyWidth, cliui.DimStyle.Render("none")))
	default:
		fmt.Fprintln(out, cliui.KeyValue("loaded", keyWidth, loaded))
	}
	return true
}

func printJournal(out io.Writer, journal *dotdir.UploadJournal, recent int) {
	fmt.Fprintln(out, cliui.KeyValue("uploads", keyWidth, fmt.Sprintf("%d recorded", len(journal.Records))))
	fmt.Fprintln(out)

	if recent == 0 || len(journal.Records) == 0 {
		return
	}

	// Records are kept oldest first.
	records := slices.Clone(journal.Records)
	slices.Reverse(records)
	if len(records) > recent {
		records = records[:recent]
	}

	for _, r := range records {
		var err error
		if r.Status != backend.StatusCompleted {
			err = errors.New(r.Status)
		}
		fmt.Fprintf(out, "  %s %s %s\n",
			cliui.Mark(err),
			filepath.Base(r.Path),
			cliui.DimStyle.Render(fmt.Sprintf("%d/%d into %s, %s",
				r.Processed, r.Total, r.Collection, r.UploadedAt.Local().Format("2006-01-02 15:04"))),
		)
	}
	fmt.Fprintln(out)
}
