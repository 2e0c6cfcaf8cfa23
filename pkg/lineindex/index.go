// Package lineindex maps a document's lines to UTF-16 offsets, rows, vertical positions and
// UTF-8 byte offsets, and keeps the mapping current under incremental edits.
package lineindex

import (
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
	"github.com/Sumatoshi-tech/lineindex/pkg/position"
)

// Index is the line index of one document. It reads the document through Storage, which the
// caller mutates before notifying the index of each edit. Index is not safe for concurrent use;
// asynchronous height updates go through a HeightQueue.
type Index struct {
	tree    *linetree.Tree
	storage Storage
	opts    Options
	logger  *slog.Logger

	longest    linetree.Handle
	longestLen int
}

// New creates an index over storage and scans it.
func New(storage Storage, opts Options) (*Index, error) {
	opts = opts.withDefaults()

	ix := &Index{
		tree:    linetree.New(opts.EstimatedLineHeight),
		storage: storage,
		opts:    opts,
		logger:  opts.Logger,
	}

	if err := ix.Rebuild(); err != nil {
		return nil, err
	}

	return ix, nil
}

// Tree exposes the underlying line tree for read-only inspection.
func (ix *Index) Tree() *linetree.Tree {
	return ix.tree
}

// Rebuild discards all lines and rescans the whole storage. Every handle becomes stale.
func (ix *Index) Rebuild() error {
	start := time.Now()

	recs, err := scanLines(ix.storage.Slice(0, ix.storage.Len()), true, ix.opts.EstimatedLineHeight)
	if err != nil {
		return err
	}

	ix.tree.Rebuild(recs)

	ix.longest, ix.longestLen = linetree.Handle{}, -1
	for h, rec := range ix.tree.All() {
		if rec.Content > ix.longestLen {
			ix.longest, ix.longestLen = h, rec.Content
		}
	}

	ix.verify("rebuild")

	elapsed := time.Since(start)
	ix.opts.Recorder.RecordRebuild(len(recs), elapsed)
	ix.logger.Debug("line index rebuilt",
		"lines", len(recs), "length", ix.tree.DocumentLength(), "duration", elapsed)

	return nil
}

// Insert updates the index after text was inserted into storage at offset.
func (ix *Index) Insert(offset int, text []uint16) (LineChangeSet, error) {
	if offset < 0 || offset > ix.tree.DocumentLength() {
		return LineChangeSet{}, fmt.Errorf("insert at %d: %w", offset, ErrOutOfRange)
	}

	if len(text) == 0 {
		return LineChangeSet{}, nil
	}

	return ix.edit(EditInsert, offset, len(text))
}

// Remove updates the index after length code units at offset were removed from storage.
func (ix *Index) Remove(offset, length int) (LineChangeSet, error) {
	if length < 0 || offset < 0 || offset+length > ix.tree.DocumentLength() {
		return LineChangeSet{}, fmt.Errorf("remove [%d, %d): %w", offset, offset+length, ErrOutOfRange)
	}

	if length == 0 {
		return LineChangeSet{}, nil
	}

	return ix.edit(EditRemove, offset, length)
}

// Replace updates the index after length code units at offset were replaced by text.
func (ix *Index) Replace(offset, length int, text []uint16) (LineChangeSet, error) {
	if length < 0 || offset < 0 || offset+length > ix.tree.DocumentLength() {
		return LineChangeSet{}, fmt.Errorf("replace [%d, %d): %w", offset, offset+length, ErrOutOfRange)
	}

	if length == 0 {
		return ix.Insert(offset, text)
	}

	if len(text) == 0 {
		return ix.Remove(offset, length)
	}

	// One rescan of the old span with the net size change.
	return ix.rescan(EditReplace, offset, length, len(text)-length)
}

func (ix *Index) edit(kind EditKind, offset, length int) (LineChangeSet, error) {
	delta := length
	span := 0

	if kind == EditRemove {
		delta = -length
		span = length
	}

	return ix.rescan(kind, offset, span, delta)
}

// rescan re-reads the lines touching the old span [offset, offset+span) after storage grew by
// delta code units, and splices the resulting records into the tree.
func (ix *Index) rescan(kind EditKind, offset, span, delta int) (LineChangeSet, error) {
	start := time.Now()
	oldLen := ix.tree.DocumentLength()

	if offset < 0 || offset+span > oldLen {
		return LineChangeSet{}, fmt.Errorf("%s at [%d, %d) in document of %d: %w",
			kind, offset, offset+span, oldLen, ErrOutOfRange)
	}

	if got := ix.storage.Len(); got != oldLen+delta {
		return LineChangeSet{}, fmt.Errorf("%w: storage holds %d code units, expected %d",
			ErrInconsistentState, got, oldLen+delta)
	}

	first, pos, err := ix.tree.LocateOffset(offset)
	if err != nil {
		return LineChangeSet{}, err
	}

	last, lastPos, err := ix.tree.LocateOffset(offset + span)
	if err != nil {
		return LineChangeSet{}, err
	}

	lastRec, err := ix.tree.Record(last)
	if err != nil {
		return LineChangeSet{}, err
	}

	count := lastPos.Row - pos.Row + 1
	regionStart := pos.Offset
	regionEnd := lastPos.Offset + lastRec.TotalLength() + delta

	// A lone CR at the end of the previous line joins an LF now starting the region.
	if offset == pos.Offset && ix.storage.Len() > offset && ix.storage.Slice(offset, offset+1)[0] == lineFeed {
		if prev, ok := ix.tree.Prev(first); ok {
			prevRec, _ := ix.tree.Record(prev)
			if prevRec.Delimiter == linetree.CR {
				first = prev
				count++
				regionStart -= prevRec.TotalLength()
			}
		}
	}

	// The region reaches the end of the document only when it ends on the last line. An edit
	// to the line before an empty last line also ends at storage.Len().
	atEOF := last == ix.tree.Last()

	recs, err := scanLines(ix.storage.Slice(regionStart, regionEnd), atEOF, ix.opts.EstimatedLineHeight)
	if err != nil {
		return LineChangeSet{}, err
	}

	res, err := ix.tree.Splice(first, count, recs)
	if err != nil {
		return LineChangeSet{}, err
	}

	changes := changeSetOf(res)
	ix.verify(string(kind))
	ix.opts.Recorder.RecordEdit(kind, changes, time.Since(start))

	return changes, nil
}

func (ix *Index) verify(op string) {
	if !ix.opts.CheckInvariants {
		return
	}

	if err := ix.tree.Check(); err != nil {
		ix.logger.Error("line index invariant violated", "op", op, "error", err)
		panic(fmt.Sprintf("lineindex: after %s: %v", op, err))
	}
}

// Check verifies the internal consistency of the index.
func (ix *Index) Check() error {
	if err := ix.tree.Check(); err != nil {
		return err
	}

	if got, want := ix.storage.Len(), ix.tree.DocumentLength(); got != want {
		return fmt.Errorf("%w: storage holds %d code units, index %d", ErrInconsistentState, got, want)
	}

	return nil
}

// LineCount returns the number of lines.
func (ix *Index) LineCount() int {
	return ix.tree.LineCount()
}

// DocumentLength returns the UTF-16 length of the document.
func (ix *Index) DocumentLength() int {
	return ix.tree.DocumentLength()
}

// ByteLength returns the UTF-8 length of the document.
func (ix *Index) ByteLength() int {
	return ix.tree.ByteLength()
}

// ContentHeight returns the sum of all line heights.
func (ix *Index) ContentHeight() float64 {
	return ix.tree.ContentHeight()
}

// LineContainingOffset returns the line containing the UTF-16 offset. The document length
// addresses the end of the last line.
func (ix *Index) LineContainingOffset(offset int) (Line, error) {
	h, pos, err := ix.tree.LocateOffset(offset)
	if err != nil {
		return Line{}, fmt.Errorf("offset %d: %w", offset, err)
	}

	return ix.snapshot(h, pos)
}

// LineContainingByte returns the line containing the UTF-8 byte offset.
func (ix *Index) LineContainingByte(byteOffset int) (Line, error) {
	h, pos, err := ix.tree.LocateByte(byteOffset)
	if err != nil {
		return Line{}, fmt.Errorf("byte %d: %w", byteOffset, err)
	}

	return ix.snapshot(h, pos)
}

// LineAtRow returns the line at the zero-based row.
func (ix *Index) LineAtRow(row int) (Line, error) {
	h, pos, err := ix.tree.LocateRow(row)
	if err != nil {
		return Line{}, fmt.Errorf("row %d: %w", row, err)
	}

	return ix.snapshot(h, pos)
}

// LineContainingY returns the line whose vertical span contains y, clamped to the document.
func (ix *Index) LineContainingY(y float64) Line {
	h, pos := ix.tree.LocateY(y)
	line, _ := ix.snapshot(h, pos)

	return line
}

// Line returns the current snapshot of a line.
func (ix *Index) Line(h linetree.Handle) (Line, error) {
	pos, err := ix.tree.Position(h)
	if err != nil {
		return Line{}, err
	}

	return ix.snapshot(h, pos)
}

// FirstLine returns the first line.
func (ix *Index) FirstLine() Line {
	line, _ := ix.snapshot(ix.tree.First(), linetree.Position{})

	return line
}

// LastLine returns the last line.
func (ix *Index) LastLine() Line {
	line, _ := ix.Line(ix.tree.Last())

	return line
}

// InitialLongestLine returns the line with the most content at the last rebuild. ok is false
// once that line was destroyed by an edit.
func (ix *Index) InitialLongestLine() (Line, bool) {
	line, err := ix.Line(ix.longest)
	if err != nil {
		return Line{}, false
	}

	return line, true
}

// SetHeight sets the measured height of a line. It reports false when the height did not change.
func (ix *Index) SetHeight(h linetree.Handle, height float64) (bool, error) {
	changed, err := ix.tree.SetHeight(h, height)
	if err != nil {
		return false, err
	}

	if changed {
		ix.verify("set height")
	}

	return changed, nil
}

// LinesInRange returns the lines from the one containing offset through the one containing
// offset+length.
func (ix *Index) LinesInRange(offset, length int) ([]Line, error) {
	first, err := ix.LineContainingOffset(offset)
	if err != nil {
		return nil, err
	}

	lines := []Line{first}
	if length <= 0 {
		return lines, nil
	}

	last, err := ix.LineContainingOffset(offset + length)
	if err != nil {
		return nil, err
	}

	for line := range ix.linesFrom(first) {
		if line.Row > last.Row {
			break
		}

		if line.Row > first.Row {
			lines = append(lines, line)
		}
	}

	return lines, nil
}

// Lines yields every line in document order. The index must not be edited while iterating.
func (ix *Index) Lines() iter.Seq[Line] {
	return ix.linesFrom(ix.FirstLine())
}

func (ix *Index) linesFrom(first Line) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		pos := linetree.Position{Row: first.Row, Offset: first.Start, Byte: first.StartByte, Y: first.Y}

		for it := ix.tree.At(first.ID); !it.Limit(); it = it.Next() {
			rec := it.Record()
			if !yield(lineAt(it.Handle(), rec, pos)) {
				return
			}

			pos.Row++
			pos.Offset += rec.TotalLength()
			pos.Byte += rec.Bytes
			pos.Y += rec.Height
		}
	}
}

// RowColumn returns the zero-based row and UTF-16 column of offset.
func (ix *Index) RowColumn(offset int) (position.Point, error) {
	line, err := ix.LineContainingOffset(offset)
	if err != nil {
		return position.Point{}, err
	}

	return position.RowColumnAt(offset, line.Anchor(), line.TotalLength())
}

// ByteOffset returns the UTF-8 offset of the UTF-16 offset.
func (ix *Index) ByteOffset(offset int) (int, error) {
	line, err := ix.LineContainingOffset(offset)
	if err != nil {
		return 0, err
	}

	return position.ByteOffsetAt(offset, line.Anchor(), ix.storage.Slice(line.Start, line.End()))
}

// OffsetFromByte returns the UTF-16 offset of the UTF-8 offset.
func (ix *Index) OffsetFromByte(byteOffset int) (int, error) {
	line, err := ix.LineContainingByte(byteOffset)
	if err != nil {
		return 0, err
	}

	return position.OffsetAtByte(byteOffset, line.Anchor(), ix.storage.Slice(line.Start, line.End()))
}

func (ix *Index) snapshot(h linetree.Handle, pos linetree.Position) (Line, error) {
	rec, err := ix.tree.Record(h)
	if err != nil {
		return Line{}, err
	}

	return lineAt(h, rec, pos), nil
}
