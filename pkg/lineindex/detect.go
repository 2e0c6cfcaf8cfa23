package lineindex

import (
	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
)

// lineEndingSampleLines is the number of leading lines DetectLineEnding looks at.
const lineEndingSampleLines = 20

// DetectLineEnding returns the most frequent delimiter among the first lines of the document.
// Ties resolve in the order LF, CR, CRLF. ok is false when none of those lines is delimited.
func (ix *Index) DetectLineEnding() (linetree.Delimiter, bool) {
	counts := map[linetree.Delimiter]int{}
	seen := 0

	for it := ix.tree.Begin(); !it.Limit() && seen < lineEndingSampleLines; it = it.Next() {
		seen++

		if delim := it.Record().Delimiter; delim != linetree.None {
			counts[delim]++
		}
	}

	best, bestCount := linetree.None, 0

	for _, delim := range []linetree.Delimiter{linetree.LF, linetree.CR, linetree.CRLF} {
		if counts[delim] > bestCount {
			best, bestCount = delim, counts[delim]
		}
	}

	return best, bestCount > 0
}
