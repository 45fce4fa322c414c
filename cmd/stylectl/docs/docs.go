// Package docscmder provides the docs command, a terminal viewer for the
// backend's OpenAPI document.
package docscmder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/cliui"
	"github.com/papercomputeco/stylectl/pkg/config"
	"github.com/papercomputeco/stylectl/pkg/openapi"
)

type docsCommander struct {
	flags cmdutil.BackendFlags

	raw   bool
	plain bool
	tag   string

	cfg *config.Config
}

const docsLongDesc string = `Browse the backend's API documentation.

Fetches the backend's OpenAPI document with the configured token and renders
its operations grouped by tag.

Use --raw to print the document itself as indented JSON, or --plain to print
the markdown without terminal styling.

Examples:
  stylectl docs
  stylectl docs --tag vector-store
  stylectl docs --raw > openapi.json`

const docsShortDesc string = "Browse the backend API documentation"

func NewDocsCmd() *cobra.Command {
	cmder := &docsCommander{}

	cmd := &cobra.Command{
		Use:   "docs",
		Short: docsShortDesc,
		Long:  docsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.raw && cmder.tag != "" {
				return fmt.Errorf("--raw and --tag are mutually exclusive")
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
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the OpenAPI document as JSON")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print markdown without terminal styling")
	cmd.Flags().StringVar(&cmder.tag, "tag", "", "Only show operations with this tag")

	return cmd
}

func (c *docsCommander) run(cmd *cobra.Command) error {
	log := cmdutil.NewLogger(cmd)
	out := cmd.OutOrStdout()

	client, err := cmdutil.NewClient(c.cfg.Backend, log)
	if err != nil {
		return err
	}

	ctx, cancel, err := cmdutil.WithTimeout(cmd.Context(), c.cfg.Backend)
	if err != nil {
		return err
	}
	defer cancel()

	var data []byte
	err = cliui.Step(cmd.ErrOrStderr(), "Fetching API docs from "+c.cfg.Backend.Target, func() error {
		var err error
		data, err = client.OpenAPI(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetching openapi document: %w", err)
	}

	if c.raw {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("formatting openapi document: %w", err)
		}
		buf.WriteByte('\n')
		_, err = buf.WriteTo(out)
		return err
	}

	doc, err := openapi.Parse(data)
	if err != nil {
		return err
	}

	if c.tag != "" {
		if !slices.Contains(doc.Tags(), c.tag) {
			return fmt.Errorf("unknown tag %q (available: %v)", c.tag, doc.Tags())
		}
		doc.Operations = slices.DeleteFunc(doc.Operations, func(op openapi.Operation) bool {
			return !op.HasTag(c.tag)
		})
	}

	md := doc.Markdown()
	if c.plain {
		_, err = fmt.Fprint(out, md)
		return err
	}

	rendered, err := cliui.RenderMarkdown(md)
	if err != nil {
		log.Debug("markdown rendering failed, printing plain", "error", err)
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
