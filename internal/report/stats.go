// Package report renders line index statistics as tables, JSON, YAML and charts.
package report

import (
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
)

// LongestLine identifies the widest line at indexing time.
type LongestLine struct {
	Row    int `json:"row"    yaml:"row"`
	Length int `json:"length" yaml:"length"`
}

// Delimiters counts lines by terminator.
type Delimiters struct {
	LF   int `json:"lf"   yaml:"lf"`
	CR   int `json:"cr"   yaml:"cr"`
	CRLF int `json:"crlf" yaml:"crlf"`
	None int `json:"none" yaml:"none"`
}

// Stats describes an indexed document.
type Stats struct {
	File       string      `json:"file"        yaml:"file"`
	Lines      int         `json:"lines"       yaml:"lines"`
	Length     int         `json:"length"      yaml:"length"`
	Bytes      int         `json:"bytes"       yaml:"bytes"`
	Height     float64     `json:"height"      yaml:"height"`
	LineEnding string      `json:"line_ending" yaml:"line_ending"`
	Mixed      bool        `json:"mixed"       yaml:"mixed"`
	Longest    LongestLine `json:"longest"     yaml:"longest"`
	Delimiters Delimiters  `json:"delimiters"  yaml:"delimiters"`

	// LineLengths holds the content length of every line, for charts.
	LineLengths []int `json:"-" yaml:"-"`
}

// Collect walks ix once and summarizes it.
func Collect(file string, ix *lineindex.Index) Stats {
	stats := Stats{
		File:        file,
		Lines:       ix.LineCount(),
		Length:      ix.DocumentLength(),
		Bytes:       ix.ByteLength(),
		Height:      ix.ContentHeight(),
		LineLengths: make([]int, 0, ix.LineCount()),
	}

	for line := range ix.Lines() {
		stats.LineLengths = append(stats.LineLengths, line.Content)

		switch line.Delimiter {
		case linetree.LF:
			stats.Delimiters.LF++
		case linetree.CR:
			stats.Delimiters.CR++
		case linetree.CRLF:
			stats.Delimiters.CRLF++
		case linetree.None:
			stats.Delimiters.None++
		}
	}

	if ending, ok := ix.DetectLineEnding(); ok {
		stats.LineEnding = ending.Name()
	} else {
		stats.LineEnding = linetree.None.Name()
	}

	kinds := 0

	for _, n := range []int{stats.Delimiters.LF, stats.Delimiters.CR, stats.Delimiters.CRLF} {
		if n > 0 {
			kinds++
		}
	}

	stats.Mixed = kinds > 1

	if longest, ok := ix.InitialLongestLine(); ok {
		stats.Longest = LongestLine{Row: longest.Row, Length: longest.Content}
	}

	return stats
}
