package lineindex_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
	"github.com/Sumatoshi-tech/lineindex/pkg/position"
	"github.com/Sumatoshi-tech/lineindex/pkg/textbuf"
	"github.com/Sumatoshi-tech/lineindex/pkg/textutil"
)

type fixture struct {
	t   *testing.T
	buf *textbuf.Buffer
	ix  *lineindex.Index
}

func newFixture(t *testing.T, text string) *fixture {
	t.Helper()

	buf := textbuf.New(text)
	ix, err := lineindex.New(buf, lineindex.Options{CheckInvariants: true})
	require.NoError(t, err)

	return &fixture{t: t, buf: buf, ix: ix}
}

func (f *fixture) insert(offset int, text string) lineindex.LineChangeSet {
	f.t.Helper()

	units := textbuf.Encode(text)
	require.NoError(f.t, f.buf.Insert(offset, units))

	changes, err := f.ix.Insert(offset, units)
	require.NoError(f.t, err)

	return changes
}

func (f *fixture) remove(offset, length int) lineindex.LineChangeSet {
	f.t.Helper()

	require.NoError(f.t, f.buf.Delete(offset, length))

	changes, err := f.ix.Remove(offset, length)
	require.NoError(f.t, err)

	return changes
}

func (f *fixture) lineText(h linetree.Handle) string {
	f.t.Helper()

	line, err := f.ix.Line(h)
	require.NoError(f.t, err)

	text, err := f.buf.Text(line.Start, line.ContentEnd())
	require.NoError(f.t, err)

	return text
}

// naiveStarts rescans units for line starts and delimiters.
func naiveStarts(units []uint16) ([]int, []linetree.Delimiter) {
	starts := []int{0}

	var delims []linetree.Delimiter

	for i := 0; i < len(units); i++ {
		switch units[i] {
		case '\n':
			delims = append(delims, linetree.LF)
		case '\r':
			if i+1 < len(units) && units[i+1] == '\n' {
				delims = append(delims, linetree.CRLF)
				i++
			} else {
				delims = append(delims, linetree.CR)
			}
		default:
			continue
		}

		starts = append(starts, i+1)
	}

	return starts, append(delims, linetree.None)
}

func (f *fixture) requireMatchesRescan(step int) {
	f.t.Helper()

	units := f.buf.Slice(0, f.buf.Len())
	starts, delims := naiveStarts(units)

	require.Equal(f.t, len(starts), f.ix.LineCount(), "step %d", step)
	require.Equal(f.t, textutil.CountLines([]byte(f.buf.String())), f.ix.LineCount(), "step %d", step)
	require.Equal(f.t, len(units), f.ix.DocumentLength(), "step %d", step)
	require.Equal(f.t, position.UTF8Len(units), f.ix.ByteLength(), "step %d", step)

	for row, start := range starts {
		line, err := f.ix.LineAtRow(row)
		require.NoError(f.t, err)
		require.Equal(f.t, start, line.Start, "step %d row %d", step, row)
		require.Equal(f.t, delims[row], line.Delimiter, "step %d row %d", step, row)
	}
}

func TestEmptyDocument(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	assert.Equal(t, 1, f.ix.LineCount())
	assert.Equal(t, 0, f.ix.DocumentLength())
	assert.InDelta(t, lineindex.DefaultEstimatedLineHeight, f.ix.ContentHeight(), 0)

	line, err := f.ix.LineContainingOffset(0)
	require.NoError(t, err)
	assert.Equal(t, 0, line.Row)
	assert.Equal(t, linetree.None, line.Delimiter)
}

func TestDelimiterClassification(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	f.insert(0, "a\r\nb")
	require.Equal(t, 2, f.ix.LineCount())

	first, err := f.ix.LineAtRow(0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Content)
	assert.Equal(t, 2, first.Delimiter.Len())

	g := newFixture(t, "")
	g.insert(0, "a\nb\rc")
	require.Equal(t, 3, g.ix.LineCount())

	for row := range 2 {
		line, err := g.ix.LineAtRow(row)
		require.NoError(t, err)
		assert.Equal(t, 1, line.Delimiter.Len())
	}
}

func TestSplitLine(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "helo")
	original := f.ix.FirstLine().ID

	changes := f.insert(2, "\n")
	require.Len(t, changes.Inserted, 1)
	require.Len(t, changes.Edited, 1)
	assert.Empty(t, changes.Removed)
	assert.Equal(t, original, changes.Edited[0])
	assert.Equal(t, "he", f.lineText(changes.Edited[0]))
	assert.Equal(t, "lo", f.lineText(changes.Inserted[0]))
	assert.Equal(t, 2, f.ix.LineCount())

	row0, err := f.ix.LineAtRow(0)
	require.NoError(t, err)
	assert.Equal(t, 3, row0.TotalLength())

	row1, err := f.ix.LineAtRow(1)
	require.NoError(t, err)
	assert.Equal(t, 2, row1.TotalLength())
}

func TestSplitHello(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "hello")
	changes := f.insert(2, "\n")
	require.Len(t, changes.Inserted, 1)
	assert.Equal(t, "he", f.lineText(changes.Edited[0]))
	assert.Equal(t, "llo", f.lineText(changes.Inserted[0]))
	assert.Equal(t, 2, f.ix.LineCount())
}

func TestMergeLines(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "he\nlo")
	second, err := f.ix.LineAtRow(1)
	require.NoError(t, err)

	changes := f.remove(2, 1)
	assert.Equal(t, 1, f.ix.LineCount())
	assert.Equal(t, []linetree.Handle{second.ID}, changes.Removed)
	require.Len(t, changes.Edited, 1)
	assert.Equal(t, "helo", f.lineText(changes.Edited[0]))
	assert.Empty(t, changes.Inserted)
}

func TestInsertWithoutDelimiterGrowsOneLine(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "ab\ncd\nef")
	changes := f.insert(4, "xyz")

	assert.Empty(t, changes.Inserted)
	assert.Empty(t, changes.Removed)
	require.Len(t, changes.Edited, 1)
	assert.Equal(t, "cxyzd", f.lineText(changes.Edited[0]))
	assert.Equal(t, 3, f.ix.LineCount())
}

func TestCarriageReturnJoinsLineFeed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a\rb")
	first := f.ix.FirstLine()
	require.Equal(t, linetree.CR, first.Delimiter)

	changes := f.insert(2, "\n")
	assert.Equal(t, 2, f.ix.LineCount())
	assert.Empty(t, changes.Inserted)
	assert.Equal(t, []linetree.Handle{first.ID}, changes.Edited)

	line, err := f.ix.Line(first.ID)
	require.NoError(t, err)
	assert.Equal(t, linetree.CRLF, line.Delimiter)
	f.requireMatchesRescan(0)
}

func TestRemoveBetweenCarriageReturnAndLineFeed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a\rX\nb")
	require.Equal(t, 3, f.ix.LineCount())

	changes := f.remove(2, 1)
	assert.Equal(t, 2, f.ix.LineCount())
	assert.Len(t, changes.Removed, 1)

	first := f.ix.FirstLine()
	assert.Equal(t, linetree.CRLF, first.Delimiter)
	f.requireMatchesRescan(0)
}

func TestInsertInsideCRLF(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a\r\nb")
	changes := f.insert(2, "x")

	assert.Equal(t, 3, f.ix.LineCount())
	assert.Len(t, changes.Inserted, 1)
	f.requireMatchesRescan(0)

	f.remove(2, 1)
	assert.Equal(t, 2, f.ix.LineCount())
	f.requireMatchesRescan(1)
}

func TestEditLineBeforeEmptyLastLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		offset int
		insert string
		lines  int
		want   string
	}{
		{name: "prepend", text: "a\n", offset: 0, insert: "b", lines: 2, want: "ba\n"},
		{name: "line feed", text: "z\n", offset: 1, insert: "\n", lines: 3, want: "z\n\n"},
		{name: "joins into crlf", text: "z\n", offset: 1, insert: "\r", lines: 2, want: "z\r\n"},
		{name: "lone cr", text: "ab\n", offset: 1, insert: "\r", lines: 3, want: "a\rb\n"},
		{name: "crlf document", text: "x\r\ny\r\n", offset: 3, insert: "q", lines: 3, want: "x\r\nqy\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.text)
			f.insert(tt.offset, tt.insert)

			assert.Equal(t, tt.want, f.buf.String())
			assert.Equal(t, tt.lines, f.ix.LineCount())
			assert.Equal(t, linetree.None, f.ix.LastLine().Delimiter)
			require.NoError(t, f.ix.Check())
			f.requireMatchesRescan(0)

			f.remove(tt.offset, len(textbuf.Encode(tt.insert)))
			assert.Equal(t, tt.text, f.buf.String())
			f.requireMatchesRescan(1)
		})
	}
}

func TestRemoveEverything(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "one\ntwo\r\nthree")
	changes := f.remove(0, f.buf.Len())

	assert.Equal(t, 1, f.ix.LineCount())
	assert.Equal(t, 0, f.ix.DocumentLength())
	assert.Len(t, changes.Removed, 2)
	assert.Len(t, changes.Edited, 1)
}

func TestReplace(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "alpha\nbeta\ngamma")
	units := textbuf.Encode("B\nE\nT")
	require.NoError(t, f.buf.Replace(6, 4, units))

	changes, err := f.ix.Replace(6, 4, units)
	require.NoError(t, err)
	assert.Len(t, changes.Inserted, 2)
	assert.Equal(t, 5, f.ix.LineCount())
	f.requireMatchesRescan(0)
}

func TestEditErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "abc")

	_, err := f.ix.Insert(4, []uint16{'x'})
	require.ErrorIs(t, err, lineindex.ErrOutOfRange)

	_, err = f.ix.Remove(2, 2)
	require.ErrorIs(t, err, lineindex.ErrOutOfRange)

	// Storage was not mutated.
	_, err = f.ix.Insert(1, []uint16{'x'})
	require.ErrorIs(t, err, lineindex.ErrInconsistentState)

	changes, err := f.ix.Remove(1, 0)
	require.NoError(t, err)
	assert.True(t, changes.IsEmpty())

	changes, err = f.ix.Insert(3, nil)
	require.NoError(t, err)
	assert.True(t, changes.IsEmpty())

	_, err = f.ix.Insert(-5, nil)
	require.ErrorIs(t, err, lineindex.ErrOutOfRange)

	_, err = f.ix.Insert(4, nil)
	require.ErrorIs(t, err, lineindex.ErrOutOfRange)

	_, err = f.ix.Remove(-1, 0)
	require.ErrorIs(t, err, lineindex.ErrOutOfRange)

	_, err = f.ix.Remove(4, 0)
	require.ErrorIs(t, err, lineindex.ErrOutOfRange)

	_, err = f.ix.LineAtRow(1)
	require.ErrorIs(t, err, lineindex.ErrOutOfRange)

	_, err = f.ix.LineContainingOffset(-1)
	require.ErrorIs(t, err, lineindex.ErrOutOfRange)
}

func TestHeights(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a\nb\nc")
	assert.InDelta(t, 36.0, f.ix.ContentHeight(), 1e-9)

	mid, err := f.ix.LineAtRow(1)
	require.NoError(t, err)

	changed, err := f.ix.SetHeight(mid.ID, 20)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.ix.SetHeight(mid.ID, 20)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.InDelta(t, 44.0, f.ix.ContentHeight(), 1e-9)

	assert.Equal(t, 1, f.ix.LineContainingY(12).Row)
	assert.Equal(t, 1, f.ix.LineContainingY(31.9).Row)
	assert.Equal(t, 2, f.ix.LineContainingY(32).Row)
	assert.Equal(t, 2, f.ix.LineContainingY(1000).Row)
	assert.Equal(t, 0, f.ix.LineContainingY(-5).Row)

	// Edited lines keep their measured height, inserted lines start estimated.
	changes := f.insert(3, "x\ny")
	require.Len(t, changes.Edited, 1)

	edited, err := f.ix.Line(changes.Edited[0])
	require.NoError(t, err)
	assert.InDelta(t, 20.0, edited.Height, 0)

	inserted, err := f.ix.Line(changes.Inserted[0])
	require.NoError(t, err)
	assert.InDelta(t, lineindex.DefaultEstimatedLineHeight, inserted.Height, 0)

	last := f.ix.LastLine()
	assert.InDelta(t, f.ix.ContentHeight(), last.Bottom(), 1e-9)
}

func TestByteTranslation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "héllo\n😀x\nz")
	assert.Equal(t, len("héllo\n😀x\nz"), f.ix.ByteLength())

	b, err := f.ix.ByteOffset(9)
	require.NoError(t, err)
	assert.Equal(t, len("héllo\n😀x"), b)

	_, err = f.ix.ByteOffset(7)
	require.ErrorIs(t, err, position.ErrInvalidBoundary)

	off, err := f.ix.OffsetFromByte(len("héllo\n😀"))
	require.NoError(t, err)
	assert.Equal(t, 8, off)

	line, err := f.ix.LineContainingByte(len("héllo\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, line.Row)
	assert.Equal(t, len("héllo\n"), line.StartByte)

	p, err := f.ix.RowColumn(8)
	require.NoError(t, err)
	assert.Equal(t, position.Point{Row: 1, Column: 2}, p)
}

func TestLinesInRange(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a\nbb\nccc\ndddd")

	lines, err := f.ix.LinesInRange(3, 5)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].Row)
	assert.Equal(t, 2, lines[1].Row)

	lines, err = f.ix.LinesInRange(0, 0)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	var rows []int
	for line := range f.ix.Lines() {
		rows = append(rows, line.Row)
	}

	assert.Equal(t, []int{0, 1, 2, 3}, rows)
}

func TestInitialLongestLine(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a\nlongest\nmid")

	line, ok := f.ix.InitialLongestLine()
	require.True(t, ok)
	assert.Equal(t, 1, line.Row)

	f.remove(1, 8)

	_, ok = f.ix.InitialLongestLine()
	assert.False(t, ok)
}

func TestDetectLineEnding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want linetree.Delimiter
		ok   bool
	}{
		{"", linetree.None, false},
		{"Hello World!", linetree.None, false},
		{"\n", linetree.LF, true},
		{"\r", linetree.CR, true},
		{"\r\n", linetree.CRLF, true},
		{"Hello\nworld\rhello\nworld\r", linetree.LF, true},
		{"Hello\rworld\nhello\rworld\n", linetree.LF, true},
		{"Hello\rworld\rhello\nworld\r", linetree.CR, true},
		{"Hello\r\nworld\r\nhello\rworld\r\n", linetree.CRLF, true},
		{strings.Repeat("x\r\n", 20) + strings.Repeat("y\n", 30), linetree.CRLF, true},
	}

	for _, tt := range tests {
		f := newFixture(t, tt.text)
		got, ok := f.ix.DetectLineEnding()
		assert.Equal(t, tt.ok, ok, "%q", tt.text)
		assert.Equal(t, tt.want, got, "%q", tt.text)
	}
}

func TestRandomEditsMatchRescan(t *testing.T) {
	t.Parallel()

	pieces := []string{"a", "bc", "\n", "\r", "\r\n", "é", "😀", "xyz\n"}
	rng := rand.New(rand.NewSource(42))
	f := newFixture(t, "seed\ntext\r\n")

	for step := range 1000 {
		length := f.buf.Len()

		if length == 0 || rng.Intn(3) > 0 {
			var sb strings.Builder
			for range 1 + rng.Intn(4) {
				sb.WriteString(pieces[rng.Intn(len(pieces))])
			}

			f.insert(rng.Intn(length+1), sb.String())
		} else {
			offset := rng.Intn(length)
			f.remove(offset, 1+rng.Intn(min(8, length-offset)))
		}

		f.requireMatchesRescan(step)
	}

	require.NoError(t, f.ix.Check())
}
