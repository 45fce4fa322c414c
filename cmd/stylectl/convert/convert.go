// Package convertcmder provides the convert command, which rewrites a message
// in every mood the backend supports.
package convertcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/cliui"
	"github.com/papercomputeco/stylectl/pkg/config"
	"github.com/papercomputeco/stylectl/pkg/message"
)

type convertCommander struct {
	flags cmdutil.BackendFlags

	query       string
	context     string
	contextFile string
	jsonOut     bool

	cfg *config.Config
}

const convertLongDesc string = `Rewrite a chat message in every conversational mood.

The backend answers with one rewrite per mood. Prior conversation can be given
as context, as CSV rows of "timestamp,sender,content" with timestamps in
"YYYY-MM-DD HH:MM:SS" form, either inline or from a file ("-" reads stdin).

Examples:
  stylectl convert "I'll be there at 7"
  stylectl convert "sure" --context "2024-01-02 10:00:00,alice,dinner tonight?"
  stylectl convert "sure" --context-file recent.csv --json`

const convertShortDesc string = "Rewrite a message in every mood"

func NewConvertCmd() *cobra.Command {
	cmder := &convertCommander{}

	cmd := &cobra.Command{
		Use:   "convert <message>",
		Short: convertShortDesc,
		Long:  convertLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.context != "" && cmder.contextFile != "" {
				return fmt.Errorf("--context and --context-file are mutually exclusive")
			}

			var err error
			cmder.cfg, err = cmdutil.LoadConfig(cmd, cmdutil.BackendFlagKeys...)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			return cmder.run(cmd)
		},
	}

	cmdutil.AddBackendFlags(cmd, &cmder.flags)
	cmd.Flags().StringVar(&cmder.context, "context", "", "Prior conversation as CSV rows")
	cmd.Flags().StringVar(&cmder.contextFile, "context-file", "", "File holding prior conversation as CSV rows (- for stdin)")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the conversions as JSON")

	return cmd
}

func (c *convertCommander) run(cmd *cobra.Command) error {
	log := cmdutil.NewLogger(cmd)
	out := cmd.OutOrStdout()

	if strings.TrimSpace(c.query) == "" {
		return fmt.Errorf("message must not be empty")
	}

	contextText, err := c.readContext(cmd.InOrStdin())
	if err != nil {
		return err
	}

	req := backend.ConvertRequest{Query: c.query}
	var msgs []message.Message
	if contextText != "" {
		msgs, err = message.ParseContext(contextText)
		if err != nil {
			return err
		}
		log.Debug("parsed conversation context", "messages", len(msgs))

		req.ContextMessages, err = message.EncodeContext(msgs)
		if err != nil {
			return fmt.Errorf("encoding context: %w", err)
		}
	}

	client, err := cmdutil.NewClient(c.cfg.Backend, log)
	if err != nil {
		return err
	}

	ctx, cancel, err := cmdutil.WithTimeout(cmd.Context(), c.cfg.Backend)
	if err != nil {
		return err
	}
	defer cancel()

	resp, err := client.Convert(ctx, req)
	if err != nil {
		return fmt.Errorf("converting message: %w", err)
	}

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp.Converted)
	}

	if debug, _ := cmd.Flags().GetBool(cmdutil.FlagDebug); debug && len(msgs) > 0 {
		printContext(out, msgs)
	}
	printConversions(out, c.query, resp.Converted)
	return nil
}

func (c *convertCommander) readContext(stdin io.Reader) (string, error) {
	switch c.contextFile {
	case "":
		return c.context, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading context from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(c.contextFile)
		if err != nil {
			return "", fmt.Errorf("reading context file: %w", err)
		}
		return string(data), nil
	}
}

func printContext(out io.Writer, msgs []message.Message) {
	fmt.Fprintf(out, "\n%s\n", cliui.HeaderStyle.Render("Context"))
	for _, line := range strings.Split(message.FormatContext(msgs), "\n") {
		fmt.Fprintln(out, "  "+cliui.DimStyle.Render(line))
	}
}

func printConversions(out io.Writer, query string, conversions backend.Conversions) {
	moods := conversions.Moods()
	if len(moods) == 0 {
		fmt.Fprintln(out, "No conversions returned.")
		return
	}

	width := 0
	for _, mood := range moods {
		width = max(width, len(mood))
	}

	fmt.Fprintf(out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Conversions of"),
		cliui.AccentStyle.Render(fmt.Sprintf("%q", query)),
	)
	for _, mood := range moods {
		fmt.Fprintln(out, cliui.KeyValue(mood, width, conversions[mood]))
	}
	fmt.Fprintln(out)
}
