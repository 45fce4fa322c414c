// Package uploadcmder provides the upload command, which embeds chat exports
// into a vector-store collection with live progress.
package uploadcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/cliui"
	"github.com/papercomputeco/stylectl/pkg/config"
	"github.com/papercomputeco/stylectl/pkg/message"
	"github.com/papercomputeco/stylectl/pkg/uploader"
)

type uploadCommander struct {
	backendFlags cmdutil.BackendFlags
	streamFlags  cmdutil.EventStreamFlags

	user          string
	collection    string
	workers       uint
	queueSize     uint
	size          int
	dryRun        bool
	force         bool
	transcriptDir string

	cfg *config.Config
}

// flagKeys are the registry flags upload binds into viper.
var flagKeys = append(append([]string{
	config.FlagUser,
	config.FlagCollection,
	config.FlagWorkers,
	config.FlagQueueSize,
}, cmdutil.BackendFlagKeys...), cmdutil.EventStreamFlagKeys...)

const uploadLongDesc string = `Embed chat exports into a vector-store collection.

Each file is a CSV export with rows of "timestamp,sender,content". The messages
sent by --user are embedded into --collection (created if missing; defaults to
the user name). Uploads run concurrently and stream their progress.

Finished uploads are recorded in the .stylectl/ upload journal: a file whose
bytes were already embedded into the same collection is skipped unless
--force is given.

Use --dry-run to see what would be embedded without contacting the backend.

Examples:
  stylectl upload KakaoTalk_Chat_room42.csv --user alice
  stylectl upload exports/*.csv -u alice -c alice-v2 --workers 4
  stylectl upload chat.csv -u alice --dry-run
  stylectl upload chat.csv -u alice --transcript-dir ./transcripts`

const uploadShortDesc string = "Embed chat exports into a collection"

func NewUploadCmd() *cobra.Command {
	cmder := &uploadCommander{}

	cmd := &cobra.Command{
		Use:   "upload <file.csv>...",
		Short: uploadShortDesc,
		Long:  uploadLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = cmdutil.LoadConfig(cmd, flagKeys...)
			if err != nil {
				return err
			}
			return cmder.resolve()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmder.dryRun {
				return cmder.runDryRun(cmd.OutOrStdout(), args)
			}
			return cmder.run(cmd, args)
		},
	}

	cmdutil.AddBackendFlags(cmd, &cmder.backendFlags)
	cmdutil.AddEventStreamFlags(cmd, &cmder.streamFlags)
	config.AddStringFlag(cmd, config.Flags, config.FlagUser, &cmder.user)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddUintFlag(cmd, config.Flags, config.FlagQueueSize, &cmder.queueSize)
	cmd.Flags().IntVar(&cmder.size, "size", 0, "Cap on the number of messages embedded per file (0: backend default)")
	cmd.Flags().BoolVar(&cmder.dryRun, "dry-run", false, "Summarize what would be embedded without uploading")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Upload files the journal records as already uploaded")
	cmd.Flags().StringVar(&cmder.transcriptDir, "transcript-dir", "", "Write each raw progress stream to <dir>/<file>.sse")

	return cmd
}

// resolve fills the upload settings from the resolved configuration.
func (c *uploadCommander) resolve() error {
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
	return nil
}

func (c *uploadCommander) run(cmd *cobra.Command, paths []string) error {
	log := cmdutil.NewLogger(cmd)
	out := cmd.OutOrStdout()

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

	// Every file must fit in the queue since Enqueue never blocks.
	queueSize := max(c.queueSize, uint(len(paths)))

	session, err := cmdutil.NewUploadSession(cmdutil.UploadSessionConfig{
		Client:    client,
		Publisher: publisher,
		Workers:   c.workers,
		QueueSize: queueSize,
		ConfigDir: cmdutil.ConfigDir(cmd),
		Force:     c.force,
		Out:       out,
		Context:   cmd.Context(),
		Logger:    log,
	})
	if err != nil {
		return err
	}

	var transcripts []io.Closer
	defer func() {
		for _, t := range transcripts {
			_ = t.Close()
		}
	}()

	var submitErrs []error
	for _, path := range paths {
		job := uploader.Job{
			Path:       path,
			Collection: c.collection,
			UserName:   c.user,
			Size:       c.size,
		}

		if c.transcriptDir != "" {
			f, err := c.openTranscript(path)
			if err != nil {
				submitErrs = append(submitErrs, err)
				continue
			}
			transcripts = append(transcripts, f)
			job.Transcript = f
		}

		switch err := session.Submit(job); {
		case errors.Is(err, cmdutil.ErrUploadInProgress):
			fmt.Fprintf(out, "  %s %s %s\n", cliui.DimStyle.Render("●"), filepath.Base(path),
				cliui.DimStyle.Render("listed more than once, uploading it once"))
		case errors.Is(err, cmdutil.ErrAlreadyUploaded):
			fmt.Fprintf(out, "  %s %s %s\n", cliui.DimStyle.Render("●"), filepath.Base(path),
				cliui.DimStyle.Render("already uploaded into "+c.collection+", use --force to upload again"))
		case err != nil:
			submitErrs = append(submitErrs, err)
		}
	}

	summary, err := session.Close()
	if err != nil {
		submitErrs = append(submitErrs, err)
	}

	fmt.Fprintf(out, "\n  %s\n", cliui.DimStyle.Render(fmt.Sprintf(
		"%d completed, %d failed, %d skipped", summary.Completed, summary.Failed, summary.Skipped)))

	return errors.Join(submitErrs...)
}

func (c *uploadCommander) openTranscript(path string) (*os.File, error) {
	if err := os.MkdirAll(c.transcriptDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating transcript dir: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".sse"
	f, err := os.Create(filepath.Join(c.transcriptDir, name))
	if err != nil {
		return nil, fmt.Errorf("creating transcript: %w", err)
	}
	return f, nil
}

func (c *uploadCommander) runDryRun(out io.Writer, paths []string) error {
	fmt.Fprintf(out, "\n%s %s %s %s\n\n",
		cliui.HeaderStyle.Render("Dry run:"),
		cliui.ValueStyle.Render(c.user),
		cliui.DimStyle.Render("into"),
		cliui.ValueStyle.Render(c.collection),
	)

	var errs []error
	for _, path := range paths {
		stats, err := summarize(path, c.user, c.size)
		fmt.Fprintf(out, "  %s %s\n", cliui.Mark(err), filepath.Base(path))
		if err != nil {
			fmt.Fprintf(out, "    %s\n\n", cliui.WarnStyle.Render(err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		printStats(out, stats)
	}

	return errors.Join(errs...)
}

func summarize(path, user string, limit int) (message.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return message.Stats{}, err
	}
	defer f.Close()

	return message.Summarize(filepath.Base(path), f, user, limit)
}

func printStats(out io.Writer, stats message.Stats) {
	const width = 10

	chatroom := stats.Chatroom
	if chatroom == "" {
		chatroom = cliui.WarnStyle.Render("none: the backend rejects file names with fewer than three \"_\" parts")
	}

	userRows := strconv.Itoa(stats.UserRows)
	if stats.Truncated {
		userRows += " (capped by --size)"
	}

	fmt.Fprintln(out, cliui.KeyValue("chatroom", width, chatroom))
	fmt.Fprintln(out, cliui.KeyValue("rows", width, strconv.Itoa(stats.Rows)))
	fmt.Fprintln(out, cliui.KeyValue("messages", width, userRows))
	fmt.Fprintln(out, cliui.KeyValue("bursts", width, strconv.Itoa(stats.Bursts)))
	if stats.UserRows > 0 {
		fmt.Fprintln(out, cliui.KeyValue("span", width, fmt.Sprintf("%s to %s",
			stats.First.Format(message.TimestampLayout),
			stats.Last.Format(message.TimestampLayout),
		)))
	}
	fmt.Fprintln(out)
}
