// Package document keeps a text buffer and its line index in step and reports every edit to
// rendering and parsing collaborators.
package document

import (
	"fmt"

	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/parseedit"
	"github.com/Sumatoshi-tech/lineindex/pkg/textbuf"
)

// Edit is the outcome of one document mutation.
type Edit struct {
	// Lines names the lines to re-typeset and re-highlight.
	Lines lineindex.LineChangeSet
	// Input is the edit in incremental parser coordinates.
	Input parseedit.InputEdit
}

// Document is a mutable text with its line index. It is not safe for concurrent use.
type Document struct {
	buf *textbuf.Buffer
	ix  *lineindex.Index
}

// New creates a document holding text.
func New(text string, opts lineindex.Options) (*Document, error) {
	buf := textbuf.New(text)

	ix, err := lineindex.New(buf, opts)
	if err != nil {
		return nil, fmt.Errorf("indexing document: %w", err)
	}

	return &Document{buf: buf, ix: ix}, nil
}

// Index returns the line index.
func (d *Document) Index() *lineindex.Index {
	return d.ix
}

// Text returns the whole text.
func (d *Document) Text() string {
	return d.buf.String()
}

// Slice returns the text in [start, end) as UTF-16 code units.
func (d *Document) Slice(start, end int) []uint16 {
	return d.buf.Slice(start, end)
}

// Len returns the UTF-16 length of the text.
func (d *Document) Len() int {
	return d.buf.Len()
}

// Insert inserts text at the UTF-16 offset.
func (d *Document) Insert(offset int, text string) (Edit, error) {
	return d.Replace(offset, 0, text)
}

// Remove removes length UTF-16 code units at offset.
func (d *Document) Remove(offset, length int) (Edit, error) {
	return d.Replace(offset, length, "")
}

// Replace replaces length UTF-16 code units at offset with text. Edits whose ends split a
// surrogate pair are rejected before anything changes.
func (d *Document) Replace(offset, length int, text string) (Edit, error) {
	start, err := parseedit.Locate(d.ix, offset)
	if err != nil {
		return Edit{}, err
	}

	oldEnd, err := parseedit.Locate(d.ix, offset+length)
	if err != nil {
		return Edit{}, err
	}

	units := textbuf.Encode(text)
	if err = d.buf.Replace(offset, length, units); err != nil {
		return Edit{}, err
	}

	lines, err := d.ix.Replace(offset, length, units)
	if err != nil {
		return Edit{}, err
	}

	newEnd, err := parseedit.Locate(d.ix, offset+len(units))
	if err != nil {
		return Edit{}, err
	}

	return Edit{Lines: lines, Input: parseedit.New(start, oldEnd, newEnd)}, nil
}

// SetText replaces the whole text and rebuilds the index.
func (d *Document) SetText(text string) error {
	d.buf.Reset(text)

	return d.ix.Rebuild()
}
