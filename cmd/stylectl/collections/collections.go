// Package collectionscmder provides the collections command for managing the
// backend's vector-store collections.
package collectionscmder

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/cliui"
)

const collectionsLongDesc string = `Manage vector-store collections.

Each collection holds the embedded messages of one person. Exactly one
collection is loaded at a time; search runs against it.

Examples:
  stylectl collections list
  stylectl collections create alice
  stylectl collections load alice
  stylectl collections count alice
  stylectl collections drop bob`

const collectionsShortDesc string = "Manage vector-store collections"

func NewCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "col"},
		Short:   collectionsShortDesc,
		Long:    collectionsLongDesc,
	}

	cmd.AddCommand(newCollectionCmd("list", "List collections and mark the loaded one", cobra.NoArgs, runList))
	cmd.AddCommand(newCollectionCmd("loaded", "Show the loaded collection", cobra.NoArgs, runLoaded))
	cmd.AddCommand(newCollectionCmd("load <name>", "Load a collection for search", cobra.ExactArgs(1), runLoad))
	cmd.AddCommand(newCollectionCmd("create <name>", "Create and load a collection", cobra.ExactArgs(1), runCreate))
	cmd.AddCommand(newCollectionCmd("drop <name>", "Delete a collection and its vectors", cobra.ExactArgs(1), runDrop))
	cmd.AddCommand(newCollectionCmd("count <name>", "Count the vectors stored in a collection", cobra.ExactArgs(1), runCount))

	return cmd
}

type runFunc func(ctx context.Context, out io.Writer, client *backend.Client, args []string) error

// newCollectionCmd wires one subcommand to the backend with the shared flags
// and timeout.
func newCollectionCmd(use, short string, args cobra.PositionalArgs, run runFunc) *cobra.Command {
	var flags cmdutil.BackendFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig(cmd, cmdutil.BackendFlagKeys...)
			if err != nil {
				return err
			}

			client, err := cmdutil.NewClient(cfg.Backend, cmdutil.NewLogger(cmd))
			if err != nil {
				return err
			}

			ctx, cancel, err := cmdutil.WithTimeout(cmd.Context(), cfg.Backend)
			if err != nil {
				return err
			}
			defer cancel()

			return run(ctx, cmd.OutOrStdout(), client, args)
		},
	}

	cmdutil.AddBackendFlags(cmd, &flags)
	return cmd
}

func runList(ctx context.Context, out io.Writer, client *backend.Client, _ []string) error {
	names, err := client.Collections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	loaded, err := client.LoadedCollection(ctx)
	if err != nil {
		return fmt.Errorf("reading loaded collection: %w", err)
	}

	if len(names) == 0 {
		fmt.Fprintf(out, "  %s No collections. Create one with \"stylectl collections create <name>\".\n", cliui.DimStyle.Render("●"))
		return nil
	}

	for _, name := range names {
		if name == loaded {
			fmt.Fprintf(out, "  %s %s %s\n", cliui.AccentStyle.Render("●"), cliui.ValueStyle.Render(name), cliui.DimStyle.Render("(loaded)"))
		} else {
			fmt.Fprintf(out, "  %s %s\n", cliui.DimStyle.Render("○"), cliui.ValueStyle.Render(name))
		}
	}
	return nil
}

func runLoaded(ctx context.Context, out io.Writer, client *backend.Client, _ []string) error {
	loaded, err := client.LoadedCollection(ctx)
	if err != nil {
		return fmt.Errorf("reading loaded collection: %w", err)
	}

	if loaded == "" {
		fmt.Fprintf(out, "  %s No collection loaded.\n", cliui.DimStyle.Render("●"))
		return nil
	}
	fmt.Fprintln(out, loaded)
	return nil
}

func runLoad(ctx context.Context, out io.Writer, client *backend.Client, args []string) error {
	err := cliui.Step(out, "Loading "+cliui.KeyStyle.Render(args[0]), func() error {
		return client.LoadCollection(ctx, args[0])
	})
	if err != nil {
		return fmt.Errorf("loading collection: %w", err)
	}
	return nil
}

func runCreate(ctx context.Context, out io.Writer, client *backend.Client, args []string) error {
	var names []string
	err := cliui.Step(out, "Creating "+cliui.KeyStyle.Render(args[0]), func() error {
		var err error
		names, err = client.CreateCollection(ctx, args[0])
		return err
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	fmt.Fprintf(out, "    %s\n", cliui.DimStyle.Render(fmt.Sprintf("loaded, %d collections", len(names))))
	return nil
}

func runDrop(ctx context.Context, out io.Writer, client *backend.Client, args []string) error {
	var names []string
	err := cliui.Step(out, "Dropping "+cliui.KeyStyle.Render(args[0]), func() error {
		var err error
		names, err = client.DropCollection(ctx, args[0])
		return err
	})
	if err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	fmt.Fprintf(out, "    %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d remaining", len(names))))
	return nil
}

func runCount(ctx context.Context, out io.Writer, client *backend.Client, args []string) error {
	n, err := client.VectorCount(ctx, args[0])
	if err != nil {
		return fmt.Errorf("counting vectors: %w", err)
	}
	fmt.Fprintln(out, strconv.Itoa(n))
	return nil
}
