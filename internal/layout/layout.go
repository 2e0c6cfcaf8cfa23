// Package layout estimates line heights for a monospace viewport with soft wrapping and
// feeds them to an index through a HeightQueue.
package layout

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/mattn/go-runewidth"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
	"github.com/Sumatoshi-tech/lineindex/pkg/textbuf"
)

// ErrInvalidWrapper is returned for a wrapper with no columns or a non-positive row height.
var ErrInvalidWrapper = errors.New("invalid wrapper")

// Wrapper wraps lines at a fixed number of display columns.
type Wrapper struct {
	// Columns is the viewport width in cells. Wide runes take two cells.
	Columns int
	// RowHeight is the height of one visual row.
	RowHeight float64
}

// Validate checks that the wrapper can measure.
func (w Wrapper) Validate() error {
	if w.Columns <= 0 || w.RowHeight <= 0 {
		return fmt.Errorf("%w: %d columns, row height %g", ErrInvalidWrapper, w.Columns, w.RowHeight)
	}

	return nil
}

// Rows returns the number of visual rows text occupies. Empty text still takes one.
func (w Wrapper) Rows(text string) int {
	width := runewidth.StringWidth(text)

	return max(1, (width+w.Columns-1)/w.Columns)
}

// Height returns the measured height of a line with the given content.
func (w Wrapper) Height(text string) float64 {
	return float64(w.Rows(text)) * w.RowHeight
}

type job struct {
	line linetree.Handle
	text string
}

// Measure computes the height of every line of doc on workers goroutines and applies the
// results on the calling goroutine. workers <= 0 uses GOMAXPROCS.
func Measure(ctx context.Context, doc *document.Document, w Wrapper, workers int) (lineindex.DrainResult, error) {
	if err := w.Validate(); err != nil {
		return lineindex.DrainResult{}, err
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ix := doc.Index()
	jobs := make(chan job, workers)
	queue := lineindex.NewHeightQueue(ix.LineCount())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)

		for line := range ix.Lines() {
			text := textbuf.FromUnits(doc.Slice(line.Start, line.ContentEnd())).String()

			select {
			case jobs <- job{line: line.ID, text: text}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		return nil
	})

	for range workers {
		g.Go(func() error {
			for j := range jobs {
				if err := queue.Post(gctx, lineindex.HeightUpdate{Line: j.line, Height: w.Height(j.text)}); err != nil {
					return err
				}
			}

			return nil
		})
	}

	err := g.Wait()

	queue.Close()

	if err != nil {
		return lineindex.DrainResult{}, fmt.Errorf("measure: %w", err)
	}

	return queue.Drain(ix)
}
