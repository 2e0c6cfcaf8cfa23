package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/lineindex/pkg/lspsync"
	"github.com/Sumatoshi-tech/lineindex/pkg/version"
)

func newLSPCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Serve text synchronization over stdio",
		Long: `Start a language server that keeps an index of every open document in step with
incremental didChange events, answers hover with line positions and reports mixed line endings.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			workspace := lspsync.NewWorkspace(app.indexOptions())

			return lspsync.NewServer(workspace, app.providers.Logger, version.Version).Run()
		},
	}
}
