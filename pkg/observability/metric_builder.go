package observability

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
)

// instruments creates the index instruments on one meter. Only the first failure is kept,
// so a constructor checks err once after declaring everything.
type instruments struct {
	meter metric.Meter
	err   error
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.fail(name, err)

	return c
}

// seconds creates a duration histogram with explicit bucket bounds.
func (in *instruments) seconds(name, desc string, bounds []float64) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	in.fail(name, err)

	return h
}

// lines exports the current value of v as a line count gauge.
func (in *instruments) lines(name, desc string, v *atomic.Int64) {
	_, err := in.meter.Int64ObservableGauge(name, metric.WithDescription(desc), metric.WithUnit("{line}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(v.Load())

			return nil
		}))
	in.fail(name, err)
}

func (in *instruments) fail(name string, err error) {
	if err != nil && in.err == nil {
		in.err = fmt.Errorf("create %s: %w", name, err)
	}
}
