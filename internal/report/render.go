package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/lineindex/internal/bench"
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/safeconv"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ErrUnknownFormat is returned for formats other than table, json and yaml.
var ErrUnknownFormat = errors.New("unknown output format")

// WriteStats renders stats in format.
func WriteStats(w io.Writer, stats Stats, format string) error {
	switch format {
	case FormatTable:
		return writeStatsTable(w, stats)
	case FormatJSON:
		return writeJSON(w, stats)
	case FormatYAML:
		return writeYAML(w, stats)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}

func writeStatsTable(w io.Writer, stats Stats) error {
	tbl := newTable(w)
	tbl.SetTitle(stats.File)
	tbl.AppendHeader(table.Row{"Metric", "Value"})
	tbl.AppendRows([]table.Row{
		{"Lines", humanize.Comma(int64(stats.Lines))},
		{"Length (UTF-16)", humanize.Comma(int64(stats.Length))},
		{"Size (UTF-8)", humanize.Bytes(safeconv.MustIntToUint64(stats.Bytes))},
		{"Height", strconv.FormatFloat(stats.Height, 'f', -1, 64)},
		{"Line ending", stats.LineEnding},
		{"Longest line", fmt.Sprintf("row %d, %s units", stats.Longest.Row, humanize.Comma(int64(stats.Longest.Length)))},
	})
	tbl.AppendSeparator()
	tbl.AppendRows([]table.Row{
		{`\n`, humanize.Comma(int64(stats.Delimiters.LF))},
		{`\r`, humanize.Comma(int64(stats.Delimiters.CR))},
		{`\r\n`, humanize.Comma(int64(stats.Delimiters.CRLF))},
		{"unterminated", humanize.Comma(int64(stats.Delimiters.None))},
	})
	tbl.Render()

	if stats.Mixed {
		_, err := color.New(color.FgYellow).Fprintln(w, "warning: mixed line endings")
		if err != nil {
			return fmt.Errorf("write warning: %w", err)
		}
	}

	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}

	return nil
}

// LineReport is one located line.
type LineReport struct {
	Row       int     `json:"row"        yaml:"row"`
	Start     int     `json:"start"      yaml:"start"`
	StartByte int     `json:"start_byte" yaml:"start_byte"`
	Content   int     `json:"content"    yaml:"content"`
	Bytes     int     `json:"bytes"      yaml:"bytes"`
	Delimiter string  `json:"delimiter"  yaml:"delimiter"`
	Y         float64 `json:"y"          yaml:"y"`
	Height    float64 `json:"height"     yaml:"height"`
	Column    int     `json:"column"     yaml:"column"`
	Text      string  `json:"text"       yaml:"text"`
}

// NewLineReport describes line; column is the queried position within it.
func NewLineReport(line lineindex.Line, column int, text string) LineReport {
	return LineReport{
		Row:       line.Row,
		Start:     line.Start,
		StartByte: line.StartByte,
		Content:   line.Content,
		Bytes:     line.Bytes,
		Delimiter: line.Delimiter.Name(),
		Y:         line.Y,
		Height:    line.Height,
		Column:    column,
		Text:      text,
	}
}

// WriteLine renders a located line in format.
func WriteLine(w io.Writer, line LineReport, format string) error {
	switch format {
	case FormatTable:
		tbl := newTable(w)
		tbl.AppendHeader(table.Row{"Row", "Column", "Start", "Byte", "Length", "Ending", "Y", "Height"})
		tbl.AppendRow(table.Row{
			line.Row, line.Column, line.Start, line.StartByte, line.Content, line.Delimiter,
			strconv.FormatFloat(line.Y, 'f', -1, 64), strconv.FormatFloat(line.Height, 'f', -1, 64),
		})
		tbl.AppendSeparator()
		tbl.AppendRow(table.Row{"Text", strconv.Quote(line.Text)})
		tbl.Render()

		return nil
	case FormatJSON:
		return writeJSON(w, line)
	case FormatYAML:
		return writeYAML(w, line)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteBench renders a bench result in format.
func WriteBench(w io.Writer, res bench.Result, format string) error {
	switch format {
	case FormatTable:
		tbl := newTable(w)
		tbl.SetTitle("Edit workload")
		tbl.AppendHeader(table.Row{"Metric", "Value"})
		tbl.AppendRows([]table.Row{
			{"Operations", humanize.Comma(int64(res.Operations))},
			{"Inserts / removes / replaces", fmt.Sprintf("%d / %d / %d", res.Inserts, res.Removes, res.Replaces)},
			{"Height updates", fmt.Sprintf("%d (%d stale)", res.HeightUpdates, res.StaleHeights)},
			{"Final lines", humanize.Comma(int64(res.Lines))},
			{"Final length", humanize.Comma(int64(res.Length))},
			{"Elapsed", res.Elapsed.String()},
		})
		tbl.AppendSeparator()
		tbl.AppendRows([]table.Row{
			{"p50", res.Latency.P50.String()},
			{"p90", res.Latency.P90.String()},
			{"p99", res.Latency.P99.String()},
			{"max", res.Latency.Max.String()},
			{"mean", res.Latency.Mean.String()},
		})
		tbl.Render()

		_, err := color.New(color.FgGreen).Fprintln(w, "index matches rebuild")
		if err != nil {
			return fmt.Errorf("write status: %w", err)
		}

		return nil
	case FormatJSON:
		return writeJSON(w, res)
	case FormatYAML:
		return writeYAML(w, res)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
