package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Heights summarizes a layout pass over a file.
type Heights struct {
	File          string  `json:"file"               yaml:"file"`
	Lines         int     `json:"lines"              yaml:"lines"`
	Columns       int     `json:"columns"            yaml:"columns"`
	Applied       int     `json:"applied"            yaml:"applied"`
	Changed       int     `json:"changed"            yaml:"changed"`
	Wrapped       int     `json:"wrapped"            yaml:"wrapped"`
	ContentHeight float64 `json:"content_height"     yaml:"content_height"`
	Snapshot      string  `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

// WriteHeights renders a layout summary in format.
func WriteHeights(w io.Writer, h Heights, format string) error {
	switch format {
	case FormatTable:
		tbl := newTable(w)
		tbl.SetTitle(h.File)
		tbl.AppendHeader(table.Row{"Metric", "Value"})
		tbl.AppendRows([]table.Row{
			{"Lines", humanize.Comma(int64(h.Lines))},
			{"Columns", strconv.Itoa(h.Columns)},
			{"Measured", fmt.Sprintf("%s (%s changed)", humanize.Comma(int64(h.Applied)), humanize.Comma(int64(h.Changed)))},
			{"Wrapped lines", humanize.Comma(int64(h.Wrapped))},
			{"Content height", strconv.FormatFloat(h.ContentHeight, 'f', -1, 64)},
		})

		if h.Snapshot != "" {
			tbl.AppendRow(table.Row{"Snapshot", h.Snapshot})
		}

		tbl.Render()

		return nil
	case FormatJSON:
		return writeJSON(w, h)
	case FormatYAML:
		return writeYAML(w, h)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
