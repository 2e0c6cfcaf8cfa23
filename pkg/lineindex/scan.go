package lineindex

import (
	"fmt"

	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
	"github.com/Sumatoshi-tech/lineindex/pkg/position"
)

const (
	lineFeed       = '\n'
	carriageReturn = '\r'
)

// scanLines splits units into line records. Lines ending without a delimiter are only valid
// at the end of the document: then atEOF is set and a final record without delimiter is
// always emitted, possibly empty.
func scanLines(units []uint16, atEOF bool, height float64) ([]linetree.Record, error) {
	var recs []linetree.Record

	start := 0

	emit := func(end int, delim linetree.Delimiter) {
		recs = append(recs, linetree.Record{
			Content:   end - start,
			Delimiter: delim,
			Bytes:     position.UTF8Len(units[start:end]) + delim.Len(),
			Height:    height,
		})
	}

	for i := 0; i < len(units); i++ {
		switch units[i] {
		case lineFeed:
			emit(i, linetree.LF)
			start = i + 1
		case carriageReturn:
			if i+1 < len(units) && units[i+1] == lineFeed {
				emit(i, linetree.CRLF)
				i++
			} else {
				emit(i, linetree.CR)
			}

			start = i + 1
		}
	}

	switch {
	case atEOF:
		emit(len(units), linetree.None)
	case start != len(units):
		return nil, fmt.Errorf("%w: %d code units after the last delimiter", ErrInconsistentState, len(units)-start)
	}

	return recs, nil
}
