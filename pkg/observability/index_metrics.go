package observability

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
)

const (
	metricEditsTotal      = "lineindex.edits.total"
	metricEditDuration    = "lineindex.edit.duration.seconds"
	metricLinesChanged    = "lineindex.lines.changed.total"
	metricRebuildsTotal   = "lineindex.rebuilds.total"
	metricRebuildDuration = "lineindex.rebuild.duration.seconds"
	metricRebuildLines    = "lineindex.rebuild.lines"
	metricHeightsApplied  = "lineindex.heights.applied.total"
	metricHeightsChanged  = "lineindex.heights.changed.total"
	metricHeightsStale    = "lineindex.heights.stale.total"

	attrKind   = "kind"
	attrChange = "change"

	changeInserted = "inserted"
	changeRemoved  = "removed"
	changeEdited   = "edited"
)

// editBucketBoundaries covers 1µs to 100ms; region rescans of a few lines
// finish in microseconds.
var editBucketBoundaries = []float64{1e-6, 5e-6, 1e-5, 2.5e-5, 5e-5, 1e-4, 2.5e-4, 5e-4, 1e-3, 5e-3, 1e-2, 1e-1}

var rebuildBucketBoundaries = []float64{1e-4, 1e-3, 1e-2, 0.05, 0.1, 0.5, 1, 2.5, 10}

// IndexMetrics records line index operations as OTel instruments.
// It implements [lineindex.Recorder] and is safe for concurrent use.
type IndexMetrics struct {
	editsTotal      metric.Int64Counter
	editDuration    metric.Float64Histogram
	linesChanged    metric.Int64Counter
	rebuildsTotal   metric.Int64Counter
	rebuildDuration metric.Float64Histogram
	heightsApplied  metric.Int64Counter
	heightsChanged  metric.Int64Counter
	heightsStale    metric.Int64Counter

	rebuildLines atomic.Int64
}

var _ lineindex.Recorder = (*IndexMetrics)(nil)

// NewIndexMetrics creates the index instruments on mt.
func NewIndexMetrics(mt metric.Meter) (*IndexMetrics, error) {
	in := &instruments{meter: mt}

	im := &IndexMetrics{}
	im.editsTotal = in.counter(metricEditsTotal, "Edits applied to the index", "{edit}")
	im.editDuration = in.seconds(metricEditDuration, "Edit duration in seconds", editBucketBoundaries)
	im.linesChanged = in.counter(metricLinesChanged, "Lines reported in edit change sets", "{line}")
	im.rebuildsTotal = in.counter(metricRebuildsTotal, "Full index rebuilds", "{rebuild}")
	im.rebuildDuration = in.seconds(metricRebuildDuration, "Rebuild duration in seconds", rebuildBucketBoundaries)
	im.heightsApplied = in.counter(metricHeightsApplied, "Height updates applied", "{update}")
	im.heightsChanged = in.counter(metricHeightsChanged, "Height updates that changed a line", "{update}")
	im.heightsStale = in.counter(metricHeightsStale, "Height updates dropped for stale lines", "{update}")
	in.lines(metricRebuildLines, "Line count after the last rebuild", &im.rebuildLines)

	if in.err != nil {
		return nil, in.err
	}

	return im, nil
}

// RecordEdit implements [lineindex.Recorder].
func (im *IndexMetrics) RecordEdit(kind lineindex.EditKind, changes lineindex.LineChangeSet, elapsed time.Duration) {
	ctx := context.Background()
	kindAttr := metric.WithAttributes(attribute.String(attrKind, string(kind)))

	im.editsTotal.Add(ctx, 1, kindAttr)
	im.editDuration.Record(ctx, elapsed.Seconds(), kindAttr)

	im.addLines(ctx, changeInserted, len(changes.Inserted))
	im.addLines(ctx, changeRemoved, len(changes.Removed))
	im.addLines(ctx, changeEdited, len(changes.Edited))
}

func (im *IndexMetrics) addLines(ctx context.Context, change string, n int) {
	if n == 0 {
		return
	}

	im.linesChanged.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrChange, change)))
}

// RecordRebuild implements [lineindex.Recorder].
func (im *IndexMetrics) RecordRebuild(lines int, elapsed time.Duration) {
	ctx := context.Background()

	im.rebuildsTotal.Add(ctx, 1)
	im.rebuildDuration.Record(ctx, elapsed.Seconds())
	im.rebuildLines.Store(int64(lines))
}

// RecordHeights implements [lineindex.Recorder].
func (im *IndexMetrics) RecordHeights(applied, changed, stale int) {
	ctx := context.Background()

	im.heightsApplied.Add(ctx, int64(applied))
	im.heightsChanged.Add(ctx, int64(changed))
	im.heightsStale.Add(ctx, int64(stale))
}
