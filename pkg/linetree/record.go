// Package linetree implements an arena-indexed red-black tree of text lines augmented with
// the subtree sums needed to locate a line by UTF-16 offset, row, vertical position or UTF-8 byte.
package linetree

// Delimiter is the kind of line terminator ending a line.
type Delimiter uint8

// Delimiter kinds.
const (
	// None terminates only the last line of a document.
	None Delimiter = iota
	// LF is a single line feed (U+000A).
	LF
	// CR is a single carriage return (U+000D).
	CR
	// CRLF is a carriage return immediately followed by a line feed.
	CRLF
)

const (
	crlfLen = 2
)

// Len returns the number of UTF-16 code units of the delimiter.
func (d Delimiter) Len() int {
	switch d {
	case LF, CR:
		return 1
	case CRLF:
		return crlfLen
	case None:
		return 0
	}

	return 0
}

// String returns the conventional escape of the delimiter.
func (d Delimiter) String() string {
	switch d {
	case LF:
		return `\n`
	case CR:
		return `\r`
	case CRLF:
		return `\r\n`
	case None:
		return "none"
	}

	return "unknown"
}

// Name returns a label for d: "lf", "cr", "crlf" or "none".
func (d Delimiter) Name() string {
	switch d {
	case LF:
		return "lf"
	case CR:
		return "cr"
	case CRLF:
		return "crlf"
	case None:
		return "none"
	}

	return "unknown"
}

// Record is the payload of a line node.
type Record struct {
	// Content is the number of UTF-16 code units before the delimiter.
	Content int
	// Delimiter terminates the line.
	Delimiter Delimiter
	// Bytes is the UTF-8 length of the content and the delimiter.
	Bytes int
	// Height is the vertical extent of the line in pixels.
	Height float64
}

// TotalLength returns the UTF-16 length of the line including its delimiter.
func (r Record) TotalLength() int {
	return r.Content + r.Delimiter.Len()
}

// sameText reports whether both records describe the same line text extents, ignoring height.
func (r Record) sameText(other Record) bool {
	return r.Content == other.Content && r.Delimiter == other.Delimiter && r.Bytes == other.Bytes
}
