// Package textutil classifies raw file contents before they are indexed.
package textutil

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

// BinarySniffLength is the number of leading bytes searched for a NUL.
const BinarySniffLength = 8000

// Errors returned by CheckText.
var (
	ErrBinary      = errors.New("binary content")
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)

// IsBinary reports whether data has a NUL byte within the first BinarySniffLength bytes.
func IsBinary(data []byte) bool {
	sniff := data[:min(len(data), BinarySniffLength)]

	return bytes.IndexByte(sniff, 0) >= 0
}

// CheckText rejects content that cannot be indexed faithfully. Invalid UTF-8 would be
// replaced on decoding, so the indexed byte lengths would no longer match the file.
func CheckText(data []byte) error {
	if IsBinary(data) {
		return ErrBinary
	}

	if !utf8.Valid(data) {
		return ErrInvalidUTF8
	}

	return nil
}

// CountLines returns the number of lines the index builds for data: one more than the
// number of delimiters, where CRLF counts once. Empty data is a single empty line.
func CountLines(data []byte) int {
	lines := 1

	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			lines++
		case '\r':
			lines++

			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
		}
	}

	return lines
}
