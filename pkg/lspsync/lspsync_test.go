package lspsync_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/lspsync"
)

func pos(line, character uint32) protocol.Position {
	return protocol.Position{Line: line, Character: character}
}

func newDoc(t *testing.T, text string) *document.Document {
	t.Helper()

	doc, err := document.New(text, lineindex.Options{CheckInvariants: true})
	require.NoError(t, err)

	return doc
}

func TestOffsetConversions(t *testing.T) {
	t.Parallel()

	doc := newDoc(t, "ab\r\n😀c\nd")
	ix := doc.Index()

	tests := []struct {
		name   string
		pos    protocol.Position
		offset int
	}{
		{"start", pos(0, 0), 0},
		{"second line", pos(1, 2), 6},
		{"clamped", pos(0, 40), 2},
		{"last line end", pos(2, 1), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := lspsync.OffsetAt(ix, tt.pos)
			require.NoError(t, err)
			assert.Equal(t, tt.offset, got)
		})
	}

	_, err := lspsync.OffsetAt(ix, pos(3, 0))
	require.ErrorIs(t, err, lineindex.ErrOutOfRange)

	p, err := lspsync.PositionAt(ix, 7)
	require.NoError(t, err)
	assert.Equal(t, pos(1, 3), p)

	offset, length, err := lspsync.Span(ix, protocol.Range{Start: pos(1, 0), End: pos(0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, offset)
	assert.Equal(t, 3, length)
}

func TestApplyEventShapes(t *testing.T) {
	t.Parallel()

	doc := newDoc(t, "hello\nworld")

	rng := protocol.Range{Start: pos(0, 5), End: pos(1, 0)}
	_, err := lspsync.Apply(doc, protocol.TextDocumentContentChangeEvent{Range: &rng, Text: " "})
	require.NoError(t, err)
	assert.Equal(t, "hello world", doc.Text())

	rng = protocol.Range{Start: pos(0, 0), End: pos(0, 0)}
	edit, err := lspsync.Apply(doc, &protocol.TextDocumentContentChangeEvent{Range: &rng, Text: "say\n"})
	require.NoError(t, err)
	assert.Equal(t, "say\nhello world", doc.Text())
	assert.Len(t, edit.Lines.Inserted, 1)

	_, err = lspsync.Apply(doc, map[string]any{
		"range": map[string]any{
			"start": map[string]any{"line": float64(1), "character": float64(5)},
			"end":   map[string]any{"line": float64(1), "character": float64(11)},
		},
		"text": "!",
	})
	require.NoError(t, err)
	assert.Equal(t, "say\nhello!", doc.Text())

	_, err = lspsync.Apply(doc, protocol.TextDocumentContentChangeEventWhole{Text: "fresh\r\ntext"})
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Index().LineCount())

	_, err = lspsync.Apply(doc, map[string]any{"text": "whole"})
	require.NoError(t, err)
	assert.Equal(t, "whole", doc.Text())

	_, err = lspsync.Apply(doc, 42)
	require.ErrorIs(t, err, lspsync.ErrUnsupportedChange)

	_, err = lspsync.Apply(doc, map[string]any{"range": map[string]any{}, "text": "x"})
	require.ErrorIs(t, err, lspsync.ErrUnsupportedChange)
}

func TestWorkspace(t *testing.T) {
	t.Parallel()

	ws := lspsync.NewWorkspace(lineindex.DefaultOptions())
	uri := "file:///notes.txt"

	require.NoError(t, ws.Open(uri, "a\nb", 1))
	assert.Equal(t, 1, ws.Len())

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			rng := protocol.Range{Start: pos(0, 0), End: pos(0, 0)}
			_, err := ws.Change(uri, 2, []any{protocol.TextDocumentContentChangeEvent{Range: &rng, Text: "x"}})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	err := ws.With(uri, func(doc *document.Document, version int32) error {
		assert.Equal(t, "xxxxxxxxa\nb", doc.Text())
		assert.Equal(t, int32(2), version)

		return doc.Index().Check()
	})
	require.NoError(t, err)

	ws.Close(uri)

	_, err = ws.Change(uri, 3, nil)
	require.ErrorIs(t, err, lspsync.ErrUnknownDocument)
}

func TestDescribeAndDiagnostics(t *testing.T) {
	t.Parallel()

	doc := newDoc(t, "one\ntwo\r\nthree\nfour")

	hover, err := lspsync.Describe(doc, pos(1, 1))
	require.NoError(t, err)

	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Contains(t, content.Value, "line 2")
	assert.Contains(t, content.Value, `\r\n`)
	assert.Equal(t, pos(1, 3), hover.Range.End)

	diagnostics := lspsync.Diagnostics(doc, 10)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, pos(1, 3), diagnostics[0].Range.Start)
	assert.Equal(t, pos(2, 0), diagnostics[0].Range.End)

	assert.Empty(t, lspsync.Diagnostics(newDoc(t, "single"), 10))
}
