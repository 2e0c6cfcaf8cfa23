package report

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "100%"
	chartHeight = "500px"
	// profileLimit caps the points of the per-row profile.
	profileLimit = 5000
)

// Bucket counts lines whose length falls in [Low, High].
type Bucket struct {
	Low   int
	High  int
	Count int
}

// Label returns the bucket range, e.g. "9-16".
func (b Bucket) Label() string {
	if b.Low == b.High {
		return fmt.Sprint(b.Low)
	}

	return fmt.Sprintf("%d-%d", b.Low, b.High)
}

// Histogram groups lengths into power-of-two buckets: 0, 1, 2, 3-4, 5-8 and so on.
func Histogram(lengths []int) []Bucket {
	var buckets []Bucket

	for _, n := range lengths {
		idx := 0
		if n > 0 {
			idx = bits.Len(uint(n-1)) + 1
		}

		for len(buckets) <= idx {
			k := len(buckets)

			switch k {
			case 0:
				buckets = append(buckets, Bucket{})
			case 1:
				buckets = append(buckets, Bucket{Low: 1, High: 1})
			default:
				buckets = append(buckets, Bucket{Low: 1<<(k-2) + 1, High: 1 << (k - 1)})
			}
		}

		buckets[idx].Count++
	}

	return buckets
}

// WriteChart renders an HTML page with the line length histogram and per-row profile of stats.
func WriteChart(w io.Writer, stats Stats) error {
	page := components.NewPage()
	page.PageTitle = "Line lengths: " + stats.File
	page.AddCharts(histogramChart(stats), profileChart(stats))

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

func histogramChart(stats Stats) *charts.Bar {
	buckets := Histogram(stats.LineLengths)

	labels := make([]string, len(buckets))
	data := make([]opts.BarData, len(buckets))

	for i, b := range buckets {
		labels[i] = b.Label()
		data[i] = opts.BarData{Value: b.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Line length distribution",
			Subtitle: fmt.Sprintf("%d lines, UTF-16 code units without terminator", stats.Lines),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "length"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "lines"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("lines", data)

	return bar
}

func profileChart(stats Stats) *charts.Line {
	lengths := stats.LineLengths
	if len(lengths) > profileLimit {
		lengths = lengths[:profileLimit]
	}

	rows := make([]int, len(lengths))
	data := make([]opts.LineData, len(lengths))

	for i, n := range lengths {
		rows[i] = i
		data[i] = opts.LineData{Value: n}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Line length by row"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}, opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "row"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "length"}),
	)
	line.SetXAxis(rows)
	line.AddSeries("length", data)

	return line
}
