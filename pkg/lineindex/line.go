package lineindex

import (
	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
	"github.com/Sumatoshi-tech/lineindex/pkg/position"
)

// Line is a snapshot of one line and its computed position. It is valid until the next edit.
type Line struct {
	ID linetree.Handle
	linetree.Record

	Row       int
	Start     int
	StartByte int
	Y         float64
}

// End returns the UTF-16 offset just past the delimiter.
func (l Line) End() int {
	return l.Start + l.TotalLength()
}

// ContentEnd returns the UTF-16 offset of the delimiter.
func (l Line) ContentEnd() int {
	return l.Start + l.Content
}

// Bottom returns the vertical position just below the line.
func (l Line) Bottom() float64 {
	return l.Y + l.Height
}

// Anchor returns the line start for position translations.
func (l Line) Anchor() position.Anchor {
	return position.Anchor{Row: l.Row, Offset: l.Start, Byte: l.StartByte}
}

func lineAt(h linetree.Handle, rec linetree.Record, pos linetree.Position) Line {
	return Line{
		ID:        h,
		Record:    rec,
		Row:       pos.Row,
		Start:     pos.Offset,
		StartByte: pos.Byte,
		Y:         pos.Y,
	}
}
