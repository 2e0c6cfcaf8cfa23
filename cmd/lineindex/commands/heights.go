package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Sumatoshi-tech/lineindex/internal/layout"
	"github.com/Sumatoshi-tech/lineindex/internal/report"
	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/heightcache"
)

const defaultColumns = 80

func newHeightsCommand(app *App) *cobra.Command {
	var (
		columns   int
		rowHeight float64
		workers   int
		output    string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "heights <file>",
		Short: "Measure soft-wrapped line heights",
		Long: `Wrap every line of a file at --columns display cells, apply the measured heights
to the index and optionally save them as a snapshot for "stats --heights".
Snapshots ending in .json are stored as JSON, anything else as LZ4.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.traced(cmd, func(ctx context.Context) error {
				doc, err := app.openDocument(args[0])
				if err != nil {
					return err
				}

				if !cmd.Flags().Changed("row-height") {
					rowHeight = app.cfg.Index.EstimatedLineHeight
				}

				wrapper := layout.Wrapper{Columns: columns, RowHeight: rowHeight}

				res, err := layout.Measure(ctx, doc, wrapper, workers)
				if err != nil {
					return err
				}

				summary := report.Heights{
					File:          args[0],
					Lines:         doc.Index().LineCount(),
					Columns:       columns,
					Applied:       res.Applied,
					Changed:       res.Changed,
					Wrapped:       wrappedLines(doc, rowHeight),
					ContentHeight: doc.Index().ContentHeight(),
				}

				if output != "" {
					if err = heightcache.Save(output, heightcache.CodecFor(output), heightcache.Capture(doc.Index())); err != nil {
						return err
					}

					summary.Snapshot = output
				}

				return report.WriteHeights(cmd.OutOrStdout(), summary, format)
			}, attribute.String("file", args[0]), attribute.Int("columns", columns))
		},
	}

	f := cmd.Flags()
	f.IntVar(&columns, "columns", defaultColumns, "viewport width in display cells")
	f.Float64Var(&rowHeight, "row-height", 0, "height of one visual row (default: index.estimated_line_height)")
	f.IntVar(&workers, "workers", 0, "measuring goroutines (default: GOMAXPROCS)")
	f.StringVarP(&output, "output", "o", "", "save a height snapshot to this file")
	f.StringVarP(&format, "format", "f", report.FormatTable, "output format: table, json, yaml")

	return cmd
}

func wrappedLines(doc *document.Document, rowHeight float64) int {
	n := 0

	for line := range doc.Index().Lines() {
		if line.Height > rowHeight {
			n++
		}
	}

	return n
}

// restoreHeights applies a saved snapshot to doc.
func (a *App) restoreHeights(cmd *cobra.Command, doc *document.Document, path string) error {
	snap, err := heightcache.Load(path, heightcache.CodecFor(path))
	if err != nil {
		return err
	}

	changed, err := snap.Restore(doc.Index())
	if err != nil {
		return fmt.Errorf("restore %s: %w", path, err)
	}

	a.providers.Logger.DebugContext(cmd.Context(), "heights restored", "file", path, "changed", changed)

	return nil
}
