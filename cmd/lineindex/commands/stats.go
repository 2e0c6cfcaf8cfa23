package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Sumatoshi-tech/lineindex/internal/report"
)

func newStatsCommand(app *App) *cobra.Command {
	var format, heights string

	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarize the lines of a file",
		Long:  "Index a file and print its line count, lengths, line endings and longest line. Use - for stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.traced(cmd, func(context.Context) error {
				doc, err := app.openDocument(args[0])
				if err != nil {
					return err
				}

				if heights != "" {
					if err = app.restoreHeights(cmd, doc, heights); err != nil {
						return err
					}
				}

				return report.WriteStats(cmd.OutOrStdout(), report.Collect(args[0], doc.Index()), format)
			}, attribute.String("file", args[0]))
		},
	}

	cmd.Flags().StringVar(&heights, "heights", "", "restore line heights from a snapshot written by heights -o")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "output format: table, json, yaml")

	return cmd
}
