package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/lineindex/internal/report"
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/textbuf"
)

// ErrLocateQuery is returned unless exactly one of --offset, --row, --byte and --y is given.
var ErrLocateQuery = errors.New("give exactly one of --offset, --row, --byte, --y")

type locateQuery struct {
	offset int
	row    int
	byteAt int
	y      float64
}

func newLocateCommand(app *App) *cobra.Command {
	var (
		q      locateQuery
		format string
	)

	cmd := &cobra.Command{
		Use:   "locate <file>",
		Short: "Find the line at an offset, row, byte or y position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			given := 0

			for _, name := range []string{"offset", "row", "byte", "y"} {
				if cmd.Flags().Changed(name) {
					given++
				}
			}

			if given != 1 {
				return ErrLocateQuery
			}

			return app.traced(cmd, func(context.Context) error {
				doc, err := app.openDocument(args[0])
				if err != nil {
					return err
				}

				line, column, err := q.run(cmd, doc.Index())
				if err != nil {
					return err
				}

				text := textbuf.FromUnits(doc.Slice(line.Start, line.ContentEnd())).String()

				return report.WriteLine(cmd.OutOrStdout(), report.NewLineReport(line, column, text), format)
			})
		},
	}

	cmd.Flags().IntVar(&q.offset, "offset", 0, "UTF-16 offset")
	cmd.Flags().IntVar(&q.row, "row", 0, "zero-based row")
	cmd.Flags().IntVar(&q.byteAt, "byte", 0, "UTF-8 byte offset")
	cmd.Flags().Float64Var(&q.y, "y", 0, "vertical position")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "output format: table, json, yaml")

	return cmd
}

func (q locateQuery) run(cmd *cobra.Command, ix *lineindex.Index) (lineindex.Line, int, error) {
	switch {
	case cmd.Flags().Changed("offset"):
		line, err := ix.LineContainingOffset(q.offset)
		if err != nil {
			return lineindex.Line{}, 0, fmt.Errorf("offset %d: %w", q.offset, err)
		}

		return line, q.offset - line.Start, nil
	case cmd.Flags().Changed("row"):
		line, err := ix.LineAtRow(q.row)
		if err != nil {
			return lineindex.Line{}, 0, fmt.Errorf("row %d: %w", q.row, err)
		}

		return line, 0, nil
	case cmd.Flags().Changed("byte"):
		line, err := ix.LineContainingByte(q.byteAt)
		if err != nil {
			return lineindex.Line{}, 0, fmt.Errorf("byte %d: %w", q.byteAt, err)
		}

		return line, q.byteAt - line.StartByte, nil
	default:
		return ix.LineContainingY(q.y), 0, nil
	}
}
