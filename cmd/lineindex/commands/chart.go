package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/lineindex/internal/report"
)

const chartFilePerm = 0o644

// ErrNoOutput is returned when chart is run without --output.
var ErrNoOutput = errors.New("output file is required (use --output)")

func newChartCommand(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "chart <file>",
		Short: "Render a line length chart as HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return ErrNoOutput
			}

			return app.traced(cmd, func(context.Context) error {
				doc, err := app.openDocument(args[0])
				if err != nil {
					return err
				}

				f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, chartFilePerm)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}

				err = report.WriteChart(f, report.Collect(args[0], doc.Index()))
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}

				if err != nil {
					return err
				}

				app.providers.Logger.InfoContext(cmd.Context(), "chart written", "file", output)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output HTML file")

	return cmd
}
