// Package stylectlcmder is the root stylectl command.
package stylectlcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	collectionscmder "github.com/papercomputeco/stylectl/cmd/stylectl/collections"
	configcmder "github.com/papercomputeco/stylectl/cmd/stylectl/config"
	convertcmder "github.com/papercomputeco/stylectl/cmd/stylectl/convert"
	docscmder "github.com/papercomputeco/stylectl/cmd/stylectl/docs"
	initcmder "github.com/papercomputeco/stylectl/cmd/stylectl/init"
	searchcmder "github.com/papercomputeco/stylectl/cmd/stylectl/search"
	servecmder "github.com/papercomputeco/stylectl/cmd/stylectl/serve"
	statuscmder "github.com/papercomputeco/stylectl/cmd/stylectl/status"
	uploadcmder "github.com/papercomputeco/stylectl/cmd/stylectl/upload"
	versioncmder "github.com/papercomputeco/stylectl/cmd/stylectl/version"
	watchcmder "github.com/papercomputeco/stylectl/cmd/stylectl/watch"
	"github.com/papercomputeco/stylectl/pkg/utils"
)

const stylectlLongDesc string = `stylectl drives a chat style-conversion backend from the terminal.

Rewrite a message in every mood, manage the vector-store collections of past
conversations, upload chat exports with live progress, and expose it all to
agents over MCP:
  stylectl convert "see you tonight"     Rewrite a message in every mood
  stylectl upload chat.csv -u alice      Embed a chat export
  stylectl search "dinner plans"         Search the loaded collection
  stylectl serve                         Run the local gateway and MCP server`

const stylectlShortDesc string = "stylectl - chat style conversion client"

func NewStylectlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stylectl",
		Short:         stylectlShortDesc,
		Long:          stylectlLongDesc,
		Version:       utils.VersionString(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	// Global flags
	cmd.PersistentFlags().BoolP(cmdutil.FlagDebug, "d", false, "Enable debug logging")
	cmd.PersistentFlags().String(cmdutil.FlagConfigDir, "", "Override path to .stylectl/ config directory")

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(convertcmder.NewConvertCmd())
	cmd.AddCommand(collectionscmder.NewCollectionsCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(uploadcmder.NewUploadCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(docscmder.NewDocsCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
