// Package watchcmder provides the watch command, which uploads chat exports
// as they land in a directory.
package watchcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/cliui"
	"github.com/papercomputeco/stylectl/pkg/config"
	"github.com/papercomputeco/stylectl/pkg/logger"
	"github.com/papercomputeco/stylectl/pkg/uploader"
	"github.com/papercomputeco/stylectl/pkg/watch"
)

type watchCommander struct {
	backendFlags cmdutil.BackendFlags
	streamFlags  cmdutil.EventStreamFlags

	user       string
	collection string
	workers    uint
	queueSize  uint
	size       int
	force      bool
	existing   bool
	debounce   time.Duration

	cfg *config.Config
}

var flagKeys = append(append([]string{
	config.FlagUser,
	config.FlagCollection,
	config.FlagWorkers,
	config.FlagQueueSize,
}, cmdutil.BackendFlagKeys...), cmdutil.EventStreamFlagKeys...)

const watchLongDesc string = `Watch a directory and upload chat exports as they appear.

Every .csv file created or rewritten in <dir> is uploaded once it has been
quiet for --debounce, using the same settings as "stylectl upload". Files the
upload journal records as already embedded are skipped, so re-saving an
unchanged export does nothing.

Runs until interrupted with Ctrl+C, then waits for in-flight uploads.

Examples:
  stylectl watch ~/Downloads --user alice
  stylectl watch exports -u alice --existing --debounce 5s`

const watchShortDesc string = "Upload chat exports as they land in a directory"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = cmdutil.LoadConfig(cmd, flagKeys...)
			if err != nil {
				return err
			}
			return cmder.resolve()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmdutil.AddBackendFlags(cmd, &cmder.backendFlags)
	cmdutil.AddEventStreamFlags(cmd, &cmder.streamFlags)
	config.AddStringFlag(cmd, config.Flags, config.FlagUser, &cmder.user)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddUintFlag(cmd, config.Flags, config.FlagQueueSize, &cmder.queueSize)
	cmd.Flags().IntVar(&cmder.size, "size", 0, "Cap on the number of messages embedded per file (0: backend default)")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Upload files the journal records as already uploaded")
	cmd.Flags().BoolVar(&cmder.existing, "existing", false, "Also upload the exports already in the directory")
	cmd.Flags().DurationVar(&cmder.debounce, "debounce", watch.DefaultDebounce, "How long a file must stay unchanged before it is uploaded")

	return cmd
}

func (c *watchCommander) resolve() error {
	c.user = strings.TrimSpace(c.cfg.Upload.DefaultUser)
	if c.user == "" {
		return fmt.Errorf("a user is required: pass --user or set upload.default_user")
	}

	c.collection = strings.TrimSpace(c.cfg.Upload.DefaultCollection)
	if c.collection == "" {
		c.collection = c.user
	}

	c.workers = c.cfg.Upload.Workers
	c.queueSize = c.cfg.Upload.QueueSize
	if c.size < 0 {
		return fmt.Errorf("--size must not be negative")
	}
	if c.debounce <= 0 {
		return fmt.Errorf("--debounce must be positive")
	}
	return nil
}

func (c *watchCommander) run(cmd *cobra.Command, dir string) error {
	log := cmdutil.NewLogger(cmd)
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := cmdutil.NewClient(c.cfg.Backend, log)
	if err != nil {
		return err
	}

	publisher, err := cmdutil.NewPublisher(c.cfg.EventStream)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("closing progress publisher", "error", err)
		}
	}()

	var existing []string
	if c.existing {
		existing, err = watch.Existing(dir, nil)
		if err != nil {
			return fmt.Errorf("listing %s: %w", dir, err)
		}
	}

	// In-flight uploads finish after the interrupt.
	session, err := cmdutil.NewUploadSession(cmdutil.UploadSessionConfig{
		Client:    client,
		Publisher: publisher,
		Workers:   c.workers,
		QueueSize: max(c.queueSize, uint(len(existing))),
		ConfigDir: cmdutil.ConfigDir(cmd),
		Force:     c.force,
		Out:       out,
		Context:   context.WithoutCancel(cmd.Context()),
		Logger:    log,
	})
	if err != nil {
		return err
	}

	submit := func(path string) {
		err := session.Submit(uploader.Job{
			Path:       path,
			Collection: c.collection,
			UserName:   c.user,
			Size:       c.size,
		})
		switch {
		case errors.Is(err, cmdutil.ErrUploadInProgress):
			log.Warn("export changed while uploading, run again with --existing to pick up the change", "path", path)
		case errors.Is(err, cmdutil.ErrAlreadyUploaded):
			fmt.Fprintf(out, "  %s %s %s\n", cliui.DimStyle.Render("●"), filepath.Base(path),
				cliui.DimStyle.Render("unchanged since last upload"))
		case err != nil:
			log.Warn("could not queue export", "path", path, "error", err)
		}
	}

	w, err := watch.New(watch.Config{
		Dir:      dir,
		Debounce: c.debounce,
		OnReady:  submit,
		Logger:   cmdutil.NewLogger(cmd, logger.WithPrefix("watch")),
	})
	if err != nil {
		_, _ = session.Close()
		return err
	}
	defer w.Close()

	fmt.Fprintf(out, "\n%s %s %s %s %s\n\n",
		cliui.HeaderStyle.Render("Watching"),
		cliui.ValueStyle.Render(dir),
		cliui.DimStyle.Render("for"),
		cliui.ValueStyle.Render(c.user),
		cliui.DimStyle.Render("into "+c.collection+" (Ctrl+C to stop)"),
	)

	for _, path := range existing {
		submit(path)
	}

	runErr := w.Run(ctx)

	summary, closeErr := session.Close()
	fmt.Fprintf(out, "\n  %s\n", cliui.DimStyle.Render(fmt.Sprintf(
		"%d completed, %d failed, %d skipped", summary.Completed, summary.Failed, summary.Skipped)))

	return errors.Join(runErr, closeErr)
}
