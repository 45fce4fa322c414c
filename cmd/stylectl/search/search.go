// Package searchcmder provides the search command for similarity search over
// the loaded collection.
package searchcmder

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/config"
	"github.com/papercomputeco/stylectl/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
)

type searchCommander struct {
	flags cmdutil.BackendFlags

	query string
	topK  int
	quiet bool

	cfg *config.Config
}

const searchLongDesc string = `Search the loaded collection for similar past messages.

Returns the messages most similar to the query, ranked by similarity score.
Load a collection first with "stylectl collections load <name>".

Use --quiet to output only message contents, one per line.

Examples:
  stylectl search "dinner plans"
  stylectl search "running late" --top 10
  stylectl search "see you" --quiet`

const searchShortDesc string = "Search the loaded collection"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.topK < 1 || cmder.topK > backend.MaxTopK {
				return fmt.Errorf("--top must be between 1 and %d", backend.MaxTopK)
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
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only message contents, one per line")

	return cmd
}

func (c *searchCommander) run(cmd *cobra.Command) error {
	client, err := cmdutil.NewClient(c.cfg.Backend, cmdutil.NewLogger(cmd))
	if err != nil {
		return err
	}

	ctx, cancel, err := cmdutil.WithTimeout(cmd.Context(), c.cfg.Backend)
	if err != nil {
		return err
	}
	defer cancel()

	resp, err := client.Search(ctx, c.query, c.topK)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(resp.Messages) == 0 {
		if !c.quiet {
			fmt.Fprintln(out, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, hit := range resp.Messages {
			fmt.Fprintln(out, hit.Content)
		}
		return nil
	}

	printResults(out, resp)
	return nil
}

func printResults(out io.Writer, resp *backend.SearchResponse) {
	fmt.Fprintf(out, "\n%s %s %s\n\n",
		headerStyle.Render("Search Results for:"),
		timeStyle.Render(fmt.Sprintf("%q", resp.Query)),
		scoreStyle.Render("in "+resp.CollectionName),
	)

	for i, hit := range resp.Messages {
		fmt.Fprintf(out, "%s %s %s\n",
			rankStyle.Render(fmt.Sprintf("[%d]", i+1)),
			scoreStyle.Render(fmt.Sprintf("%.4f", hit.Score)),
			timeStyle.Render(hit.Timestamp),
		)
		fmt.Fprintf(out, "    %s\n\n", previewStyle.Render(utils.Truncate(hit.Content, 120)))
	}
}
