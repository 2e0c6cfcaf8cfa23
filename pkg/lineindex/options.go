package lineindex

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
)

// DefaultEstimatedLineHeight is the height given to lines before layout measures them.
const DefaultEstimatedLineHeight = 12.0

// Errors returned by the index.
var (
	// ErrOutOfRange is returned for offsets, rows or byte offsets outside the document.
	ErrOutOfRange = linetree.ErrOutOfRange
	// ErrStaleHandle is returned for lines destroyed by an edit or a rebuild.
	ErrStaleHandle = linetree.ErrStaleHandle
	// ErrInconsistentState is returned when the tree or the storage contradict the index.
	ErrInconsistentState = linetree.ErrInconsistentState
	// ErrQueueClosed is returned when posting to a closed height queue.
	ErrQueueClosed = errors.New("height queue closed")
)

// Storage is the raw text of a document as UTF-16 code units. The index only reads it.
type Storage interface {
	// Len returns the number of code units.
	Len() int
	// Slice returns the code units in [start, end).
	Slice(start, end int) []uint16
}

// EditKind names the mutation reported to a Recorder.
type EditKind string

// Edit kinds.
const (
	EditInsert  EditKind = "insert"
	EditRemove  EditKind = "remove"
	EditReplace EditKind = "replace"
)

// Recorder receives measurements of index operations.
type Recorder interface {
	RecordEdit(kind EditKind, changes LineChangeSet, elapsed time.Duration)
	RecordRebuild(lines int, elapsed time.Duration)
	RecordHeights(applied, changed, stale int)
}

type nopRecorder struct{}

func (nopRecorder) RecordEdit(EditKind, LineChangeSet, time.Duration) {}
func (nopRecorder) RecordRebuild(int, time.Duration)                 {}
func (nopRecorder) RecordHeights(int, int, int)                      {}

// Options configures an Index.
type Options struct {
	// EstimatedLineHeight is the height of lines created by edits and rebuilds.
	EstimatedLineHeight float64
	// CheckInvariants runs a full consistency check after every mutation and panics on failure.
	CheckInvariants bool
	// Logger receives debug and warning events. Nil discards them.
	Logger *slog.Logger
	// Recorder receives operation measurements. Nil discards them.
	Recorder Recorder
}

// DefaultOptions returns the options used by New when none are given.
func DefaultOptions() Options {
	return Options{
		EstimatedLineHeight: DefaultEstimatedLineHeight,
		CheckInvariants:     false,
		Logger:              nil,
		Recorder:            nil,
	}
}

func (opts Options) withDefaults() Options {
	if opts.EstimatedLineHeight <= 0 {
		opts.EstimatedLineHeight = DefaultEstimatedLineHeight
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}

	return opts
}
