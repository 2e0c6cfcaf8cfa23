package lineindex

import (
	"context"
	"errors"
	"sync"

	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
)

// HeightUpdate is a measured line height produced off the mutating goroutine.
type HeightUpdate struct {
	Line   linetree.Handle
	Height float64
}

// DrainResult summarizes one Drain.
type DrainResult struct {
	// Applied counts updates of live lines.
	Applied int
	// Changed counts applied updates that moved the content height.
	Changed int
	// Stale counts updates for lines destroyed since they were measured.
	Stale int
}

// HeightQueue carries height updates from layout workers to the goroutine that owns an Index.
// Post may be called from any goroutine; Drain only from the owner.
type HeightQueue struct {
	updates chan HeightUpdate
	done    chan struct{}
	once    sync.Once
}

// NewHeightQueue creates a queue buffering up to capacity updates.
func NewHeightQueue(capacity int) *HeightQueue {
	return &HeightQueue{
		updates: make(chan HeightUpdate, max(capacity, 1)),
		done:    make(chan struct{}),
	}
}

// Post enqueues an update, blocking while the queue is full.
func (q *HeightQueue) Post(ctx context.Context, update HeightUpdate) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.updates <- update:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further posts. Updates already queued can still be drained.
func (q *HeightQueue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Drain applies every queued update to ix without blocking.
func (q *HeightQueue) Drain(ix *Index) (DrainResult, error) {
	var res DrainResult

	for {
		select {
		case update := <-q.updates:
			changed, err := ix.SetHeight(update.Line, update.Height)

			switch {
			case errors.Is(err, ErrStaleHandle):
				res.Stale++
			case err != nil:
				return res, err
			default:
				res.Applied++

				if changed {
					res.Changed++
				}
			}
		default:
			if res.Stale > 0 {
				ix.logger.Warn("dropped height updates for destroyed lines", "stale", res.Stale)
			}

			ix.opts.Recorder.RecordHeights(res.Applied, res.Changed, res.Stale)

			return res, nil
		}
	}
}
