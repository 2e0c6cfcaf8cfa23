// Package replay turns two versions of a text into the incremental edits between them and
// plays them against an indexed document.
package replay

import (
	"errors"
	"fmt"
	"iter"
	"time"
	"unicode/utf16"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/textbuf"
)

// ErrMismatch is returned when an incrementally edited index differs from a fresh rebuild.
var ErrMismatch = errors.New("incremental index differs from rebuild")

// Mode selects the diff granularity.
type Mode int

// Diff modes.
const (
	// ModeChars diffs character by character.
	ModeChars Mode = iota
	// ModeLines diffs whole lines, which is faster on large texts.
	ModeLines
)

const diffTimeout = 5 * time.Second

// Edit replaces Length UTF-16 code units at Offset with Text. Offsets are valid after all
// preceding edits were applied.
type Edit struct {
	Offset int
	Length int
	Text   string
}

// Stats summarizes a replay.
type Stats struct {
	Edits    int
	Inserted int
	Removed  int
	Edited   int
}

// Edits computes the edits transforming oldText into newText.
func Edits(oldText, newText string, mode Mode) []Edit {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = diffTimeout

	var diffs []diffmatchpatch.Diff

	switch mode {
	case ModeLines:
		src, dst, lines := dmp.DiffLinesToChars(oldText, newText)
		diffs = dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lines)
	case ModeChars:
		diffs = dmp.DiffMain(oldText, newText, false)
	}

	diffs = dmp.DiffCleanupMerge(diffs)

	var (
		edits   []Edit
		pending *Edit
		offset  int
	)

	flush := func() {
		if pending != nil {
			edits = append(edits, *pending)
			offset += utf16Len(pending.Text)
			pending = nil
		}
	}

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()

			offset += utf16Len(d.Text)
		case diffmatchpatch.DiffDelete:
			if pending == nil {
				pending = &Edit{Offset: offset}
			}

			pending.Length += utf16Len(d.Text)
		case diffmatchpatch.DiffInsert:
			if pending == nil {
				pending = &Edit{Offset: offset}
			}

			pending.Text += d.Text
		}
	}

	flush()

	return edits
}

// Observer is told about every edit Apply makes, after doc changed.
type Observer func(edit document.Edit) error

// Apply plays edits against doc in order.
func Apply(doc *document.Document, edits []Edit, observers ...Observer) (Stats, error) {
	var stats Stats

	for i, e := range edits {
		edit, err := doc.Replace(e.Offset, e.Length, e.Text)
		if err != nil {
			return stats, fmt.Errorf("edit %d at %d: %w", i, e.Offset, err)
		}

		for _, observe := range observers {
			if err = observe(edit); err != nil {
				return stats, fmt.Errorf("edit %d at %d: %w", i, e.Offset, err)
			}
		}

		stats.Edits++
		stats.Inserted += len(edit.Lines.Inserted)
		stats.Removed += len(edit.Lines.Removed)
		stats.Edited += len(edit.Lines.Edited)
	}

	return stats, nil
}

// Verify compares every line of doc's index with an index rebuilt from its text.
func Verify(doc *document.Document) error {
	got := doc.Index()
	if err := got.Check(); err != nil {
		return err
	}

	want, err := lineindex.New(textbuf.New(doc.Text()), lineindex.DefaultOptions())
	if err != nil {
		return err
	}

	if got.LineCount() != want.LineCount() {
		return fmt.Errorf("%w: %d lines, rebuild has %d", ErrMismatch, got.LineCount(), want.LineCount())
	}

	next, stop := iter.Pull(want.Lines())
	defer stop()

	for line := range got.Lines() {
		other, ok := next()
		if !ok {
			return fmt.Errorf("%w: rebuild ended before row %d", ErrMismatch, line.Row)
		}

		if line.Start != other.Start || line.StartByte != other.StartByte ||
			line.Content != other.Content || line.Delimiter != other.Delimiter {
			return fmt.Errorf("%w: row %d is %+v, rebuild has %+v", ErrMismatch, line.Row, line.Record, other.Record)
		}
	}

	return nil
}

func utf16Len(s string) int {
	n := 0

	for _, r := range s {
		n += max(utf16.RuneLen(r), 1)
	}

	return n
}
