// Package position converts between UTF-16 offsets, row/column points and UTF-8 byte offsets
// relative to a located line.
package position

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
)

// ErrInvalidBoundary is returned for an offset that splits a surrogate pair or a multi-byte
// UTF-8 sequence.
var ErrInvalidBoundary = errors.New("offset is not on a character boundary")

const replacementLen = 3

// Anchor is the start of the line a conversion is relative to.
type Anchor struct {
	Row    int
	Offset int
	Byte   int
}

// Point is a zero-based row and UTF-16 column.
type Point struct {
	Row    int
	Column int
}

// RowColumnAt returns the point of offset inside the line starting at anchor with the given
// total UTF-16 length.
func RowColumnAt(offset int, anchor Anchor, totalLength int) (Point, error) {
	column := offset - anchor.Offset
	if column < 0 || column > totalLength {
		return Point{}, fmt.Errorf("offset %d outside line %d: %w", offset, anchor.Row, linetree.ErrOutOfRange)
	}

	return Point{Row: anchor.Row, Column: column}, nil
}

// ByteOffsetAt returns the absolute UTF-8 offset of offset inside the line whose code units
// are units.
func ByteOffsetAt(offset int, anchor Anchor, units []uint16) (int, error) {
	local := offset - anchor.Offset
	if local < 0 || local > len(units) {
		return 0, fmt.Errorf("offset %d outside line %d: %w", offset, anchor.Row, linetree.ErrOutOfRange)
	}

	if local > 0 && local < len(units) && isPair(units[local-1], units[local]) {
		return 0, fmt.Errorf("offset %d: %w", offset, ErrInvalidBoundary)
	}

	return anchor.Byte + UTF8Len(units[:local]), nil
}

// OffsetAtByte returns the absolute UTF-16 offset of the absolute UTF-8 offset byteOffset
// inside the line whose code units are units.
func OffsetAtByte(byteOffset int, anchor Anchor, units []uint16) (int, error) {
	want := byteOffset - anchor.Byte
	if want < 0 {
		return 0, fmt.Errorf("byte %d outside line %d: %w", byteOffset, anchor.Row, linetree.ErrOutOfRange)
	}

	seen := 0

	for i := 0; i < len(units); {
		if seen == want {
			return anchor.Offset + i, nil
		}

		width, span := unitWidth(units, i)
		if seen+width > want {
			return 0, fmt.Errorf("byte %d: %w", byteOffset, ErrInvalidBoundary)
		}

		seen += width
		i += span
	}

	if seen == want {
		return anchor.Offset + len(units), nil
	}

	return 0, fmt.Errorf("byte %d outside line %d: %w", byteOffset, anchor.Row, linetree.ErrOutOfRange)
}

// UTF8Len returns the UTF-8 length of UTF-16 code units. Unpaired surrogates count as the
// replacement character.
func UTF8Len(units []uint16) int {
	total := 0

	for i := 0; i < len(units); {
		width, span := unitWidth(units, i)
		total += width
		i += span
	}

	return total
}

// unitWidth returns the UTF-8 width of the character starting at units[i] and the number of
// code units it spans.
func unitWidth(units []uint16, i int) (width, span int) {
	u := units[i]

	switch {
	case u < 0x80:
		return 1, 1
	case u < 0x800:
		return 2, 1
	case i+1 < len(units) && isPair(u, units[i+1]):
		return 4, 2
	default:
		// The rest of the BMP and unpaired surrogates, written as U+FFFD.
		return replacementLen, 1
	}
}

func isPair(hi, lo uint16) bool {
	return hi >= 0xD800 && hi < 0xDC00 && lo >= 0xDC00 && lo < 0xE000
}
