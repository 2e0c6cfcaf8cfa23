// Package textbuf provides a UTF-16 text buffer usable as line index storage.
package textbuf

import (
	"errors"
	"fmt"
	"slices"
	"unicode/utf16"
)

// ErrOutOfRange is returned for edits outside the buffer.
var ErrOutOfRange = errors.New("edit out of range")

// Buffer holds a document as UTF-16 code units.
type Buffer struct {
	units []uint16
}

// New creates a buffer holding text.
func New(text string) *Buffer {
	return &Buffer{units: Encode(text)}
}

// FromUnits creates a buffer that takes ownership of units.
func FromUnits(units []uint16) *Buffer {
	return &Buffer{units: units}
}

// Encode converts a string to UTF-16 code units.
func Encode(text string) []uint16 {
	return utf16.Encode([]rune(text))
}

// Len returns the number of code units.
func (b *Buffer) Len() int {
	return len(b.units)
}

// Slice returns the code units in [start, end). The result aliases the buffer and must not be
// kept across edits.
func (b *Buffer) Slice(start, end int) []uint16 {
	return b.units[start:end:end]
}

// String returns the text of the buffer.
func (b *Buffer) String() string {
	return string(utf16.Decode(b.units))
}

// Text returns the text in [start, end).
func (b *Buffer) Text(start, end int) (string, error) {
	if start < 0 || end < start || end > len(b.units) {
		return "", fmt.Errorf("text [%d, %d) of %d: %w", start, end, len(b.units), ErrOutOfRange)
	}

	return string(utf16.Decode(b.units[start:end])), nil
}

// Insert inserts units at offset.
func (b *Buffer) Insert(offset int, units []uint16) error {
	if offset < 0 || offset > len(b.units) {
		return fmt.Errorf("insert at %d of %d: %w", offset, len(b.units), ErrOutOfRange)
	}

	b.units = slices.Insert(b.units, offset, units...)

	return nil
}

// Delete removes length units at offset.
func (b *Buffer) Delete(offset, length int) error {
	if offset < 0 || length < 0 || offset+length > len(b.units) {
		return fmt.Errorf("delete [%d, %d) of %d: %w", offset, offset+length, len(b.units), ErrOutOfRange)
	}

	b.units = slices.Delete(b.units, offset, offset+length)

	return nil
}

// Replace replaces length units at offset with units.
func (b *Buffer) Replace(offset, length int, units []uint16) error {
	if offset < 0 || length < 0 || offset+length > len(b.units) {
		return fmt.Errorf("replace [%d, %d) of %d: %w", offset, offset+length, len(b.units), ErrOutOfRange)
	}

	b.units = slices.Replace(b.units, offset, offset+length, units...)

	return nil
}

// Reset replaces the whole content.
func (b *Buffer) Reset(text string) {
	b.units = Encode(text)
}
