// Package parseedit describes edits in the byte and point coordinates incremental parsers use.
package parseedit

import (
	"fmt"

	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
)

// Point is a zero-based row and UTF-8 byte column.
type Point struct {
	Row    int
	Column int
}

// Less reports whether p is before other.
func (p Point) Less(other Point) bool {
	return p.Row < other.Row || p.Row == other.Row && p.Column < other.Column
}

// InputEdit is one edit expressed in bytes and points before and after it was applied.
type InputEdit struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Location is a byte offset with its point.
type Location struct {
	Byte  int
	Point Point
}

// Locate returns the byte location of the UTF-16 offset in ix.
func Locate(ix *lineindex.Index, offset int) (Location, error) {
	line, err := ix.LineContainingOffset(offset)
	if err != nil {
		return Location{}, err
	}

	b, err := ix.ByteOffset(offset)
	if err != nil {
		return Location{}, fmt.Errorf("locating offset %d: %w", offset, err)
	}

	return Location{Byte: b, Point: Point{Row: line.Row, Column: b - line.StartByte}}, nil
}

// New assembles an edit from the start and old end located before the edit and the new end
// located after it.
func New(start, oldEnd, newEnd Location) InputEdit {
	return InputEdit{
		StartByte:   start.Byte,
		OldEndByte:  oldEnd.Byte,
		NewEndByte:  newEnd.Byte,
		StartPoint:  start.Point,
		OldEndPoint: oldEnd.Point,
		NewEndPoint: newEnd.Point,
	}
}

// Delta returns the change of the document byte length.
func (e InputEdit) Delta() int {
	return e.NewEndByte - e.OldEndByte
}

// AdjustByte maps a byte offset from before the edit to after it. Offsets inside the replaced
// span collapse to the new end.
func (e InputEdit) AdjustByte(b int) int {
	switch {
	case b < e.StartByte:
		return b
	case b < e.OldEndByte:
		return e.NewEndByte
	default:
		return b + e.Delta()
	}
}

// AdjustPoint maps a point from before the edit to after it, like AdjustByte.
func (e InputEdit) AdjustPoint(p Point) Point {
	switch {
	case p.Less(e.StartPoint):
		return p
	case p.Less(e.OldEndPoint):
		return e.NewEndPoint
	case p.Row == e.OldEndPoint.Row:
		return Point{Row: e.NewEndPoint.Row, Column: e.NewEndPoint.Column + p.Column - e.OldEndPoint.Column}
	default:
		return Point{Row: p.Row + e.NewEndPoint.Row - e.OldEndPoint.Row, Column: p.Column}
	}
}
