// Package lspsync keeps indexed documents in sync with a Language Server Protocol client and
// converts between LSP positions and document offsets.
package lspsync

import (
	"errors"
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/safeconv"
)

// ErrUnsupportedChange is returned for content change events of an unknown shape.
var ErrUnsupportedChange = errors.New("unsupported content change event")

// OffsetAt converts an LSP position to a UTF-16 document offset. Characters past the end of the
// line clamp to the line's content length.
func OffsetAt(ix *lineindex.Index, pos protocol.Position) (int, error) {
	row := safeconv.MustUint32ToInt(uint32(pos.Line))

	line, err := ix.LineAtRow(row)
	if err != nil {
		return 0, fmt.Errorf("position %d:%d: %w", pos.Line, pos.Character, err)
	}

	return line.Start + min(safeconv.MustUint32ToInt(uint32(pos.Character)), line.Content), nil
}

// PositionAt converts a UTF-16 document offset to an LSP position.
func PositionAt(ix *lineindex.Index, offset int) (protocol.Position, error) {
	point, err := ix.RowColumn(offset)
	if err != nil {
		return protocol.Position{}, err
	}

	return protocol.Position{
		Line:      protocol.UInteger(safeconv.MustIntToUint32(point.Row)),
		Character: protocol.UInteger(safeconv.MustIntToUint32(point.Column)),
	}, nil
}

// Span converts an LSP range to a document offset and length.
func Span(ix *lineindex.Index, rng protocol.Range) (offset, length int, err error) {
	start, err := OffsetAt(ix, rng.Start)
	if err != nil {
		return 0, 0, err
	}

	end, err := OffsetAt(ix, rng.End)
	if err != nil {
		return 0, 0, err
	}

	if end < start {
		start, end = end, start
	}

	return start, end - start, nil
}

// RangeOf converts a document span to an LSP range.
func RangeOf(ix *lineindex.Index, offset, length int) (protocol.Range, error) {
	start, err := PositionAt(ix, offset)
	if err != nil {
		return protocol.Range{}, err
	}

	end, err := PositionAt(ix, offset+length)
	if err != nil {
		return protocol.Range{}, err
	}

	return protocol.Range{Start: start, End: end}, nil
}

// Apply applies one content change event to doc. Whole-document events rebuild the index and
// return a zero Edit.
func Apply(doc *document.Document, change any) (document.Edit, error) {
	switch ev := change.(type) {
	case protocol.TextDocumentContentChangeEvent:
		return applyRange(doc, ev.Range, ev.Text)
	case *protocol.TextDocumentContentChangeEvent:
		return applyRange(doc, ev.Range, ev.Text)
	case protocol.TextDocumentContentChangeEventWhole:
		return document.Edit{}, doc.SetText(ev.Text)
	case *protocol.TextDocumentContentChangeEventWhole:
		return document.Edit{}, doc.SetText(ev.Text)
	case map[string]any:
		return applyDecoded(doc, ev)
	default:
		return document.Edit{}, fmt.Errorf("%w: %T", ErrUnsupportedChange, change)
	}
}

func applyRange(doc *document.Document, rng *protocol.Range, text string) (document.Edit, error) {
	if rng == nil {
		return document.Edit{}, doc.SetText(text)
	}

	offset, length, err := Span(doc.Index(), *rng)
	if err != nil {
		return document.Edit{}, err
	}

	return doc.Replace(offset, length, text)
}

// applyDecoded handles events left as generic JSON objects.
func applyDecoded(doc *document.Document, ev map[string]any) (document.Edit, error) {
	text, ok := ev["text"].(string)
	if !ok {
		return document.Edit{}, fmt.Errorf("%w: missing text", ErrUnsupportedChange)
	}

	raw, hasRange := ev["range"].(map[string]any)
	if !hasRange {
		return document.Edit{}, doc.SetText(text)
	}

	start, err := decodePosition(raw["start"])
	if err != nil {
		return document.Edit{}, err
	}

	end, err := decodePosition(raw["end"])
	if err != nil {
		return document.Edit{}, err
	}

	return applyRange(doc, &protocol.Range{Start: start, End: end}, text)
}

func decodePosition(v any) (protocol.Position, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return protocol.Position{}, fmt.Errorf("%w: malformed position", ErrUnsupportedChange)
	}

	line, lineOK := m["line"].(float64)
	character, charOK := m["character"].(float64)

	if !lineOK || !charOK || line < 0 || character < 0 {
		return protocol.Position{}, fmt.Errorf("%w: malformed position", ErrUnsupportedChange)
	}

	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(character)}, nil
}
