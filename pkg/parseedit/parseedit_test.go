package parseedit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/parseedit"
	"github.com/Sumatoshi-tech/lineindex/pkg/textbuf"
)

func TestLocate(t *testing.T) {
	t.Parallel()

	ix, err := lineindex.New(textbuf.New("ab\nçd"), lineindex.DefaultOptions())
	require.NoError(t, err)

	loc, err := parseedit.Locate(ix, 5)
	require.NoError(t, err)
	assert.Equal(t, parseedit.Location{Byte: 6, Point: parseedit.Point{Row: 1, Column: 3}}, loc)
}

func TestAdjust(t *testing.T) {
	t.Parallel()

	// "ab\ncd" becomes "ab\nXY\nZcd" by inserting "XY\nZ" at byte 3.
	edit := parseedit.New(
		parseedit.Location{Byte: 3, Point: parseedit.Point{Row: 1, Column: 0}},
		parseedit.Location{Byte: 3, Point: parseedit.Point{Row: 1, Column: 0}},
		parseedit.Location{Byte: 7, Point: parseedit.Point{Row: 2, Column: 1}},
	)

	assert.Equal(t, 4, edit.Delta())
	assert.Equal(t, 1, edit.AdjustByte(1))
	assert.Equal(t, 8, edit.AdjustByte(4))
	assert.Equal(t, parseedit.Point{Row: 0, Column: 1}, edit.AdjustPoint(parseedit.Point{Row: 0, Column: 1}))
	assert.Equal(t, parseedit.Point{Row: 2, Column: 2}, edit.AdjustPoint(parseedit.Point{Row: 1, Column: 1}))

	removal := parseedit.New(
		parseedit.Location{Byte: 1, Point: parseedit.Point{Row: 0, Column: 1}},
		parseedit.Location{Byte: 4, Point: parseedit.Point{Row: 1, Column: 1}},
		parseedit.Location{Byte: 1, Point: parseedit.Point{Row: 0, Column: 1}},
	)

	assert.Equal(t, 1, removal.AdjustByte(2))
	assert.Equal(t, parseedit.Point{Row: 0, Column: 1}, removal.AdjustPoint(parseedit.Point{Row: 1, Column: 0}))
	assert.Equal(t, parseedit.Point{Row: 1, Column: 4}, removal.AdjustPoint(parseedit.Point{Row: 2, Column: 4}))
}
