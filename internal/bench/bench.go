// Package bench drives a document with a seeded random edit workload and
// measures the latency of each edit.
package bench

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/replay"
)

// ErrInvalidConfig is returned for non-positive workload sizes.
var ErrInvalidConfig = errors.New("invalid bench config")

const (
	heightBatch      = 16
	maxLineWidth     = 80
	minLineHeight    = 8
	lineHeightSpread = 24
	// surrogate is a non-BMP rune; it exercises UTF-16 pairs.
	surrogate = '😀'
)

// Config shapes the workload.
type Config struct {
	// Operations is the number of edits.
	Operations int
	// Seed makes the workload reproducible.
	Seed int64
	// MaxInsert bounds the length of inserted text in code points.
	MaxInsert int
	// Lines is the line count of the initial document.
	Lines int
	// VerifyEvery rebuilds and compares the index every n edits. Zero only verifies at the end.
	VerifyEvery int
}

// Latency summarizes edit durations.
type Latency struct {
	P50  time.Duration `json:"p50"  yaml:"p50"`
	P90  time.Duration `json:"p90"  yaml:"p90"`
	P99  time.Duration `json:"p99"  yaml:"p99"`
	Max  time.Duration `json:"max"  yaml:"max"`
	Mean time.Duration `json:"mean" yaml:"mean"`
}

// Result is the outcome of a run.
type Result struct {
	Operations    int           `json:"operations"     yaml:"operations"`
	Inserts       int           `json:"inserts"        yaml:"inserts"`
	Removes       int           `json:"removes"        yaml:"removes"`
	Replaces      int           `json:"replaces"       yaml:"replaces"`
	HeightUpdates int           `json:"height_updates" yaml:"height_updates"`
	StaleHeights  int           `json:"stale_heights"  yaml:"stale_heights"`
	Lines         int           `json:"lines"          yaml:"lines"`
	Length        int           `json:"length"         yaml:"length"`
	Elapsed       time.Duration `json:"elapsed"        yaml:"elapsed"`
	Latency       Latency       `json:"latency"        yaml:"latency"`
}

type runner struct {
	cfg   Config
	rng   *rand.Rand
	doc   *document.Document
	queue *lineindex.HeightQueue
	res   Result
	taken []time.Duration
}

// Run executes the workload against a document built with opts.
func Run(ctx context.Context, cfg Config, opts lineindex.Options) (Result, error) {
	if cfg.Operations <= 0 || cfg.MaxInsert <= 0 || cfg.Lines <= 0 || cfg.VerifyEvery < 0 {
		return Result{}, fmt.Errorf("%w: %+v", ErrInvalidConfig, cfg)
	}

	seed := uint64(cfg.Seed) //nolint:gosec // the seed is a bit pattern
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	doc, err := document.New(initialText(rng, cfg.Lines), opts)
	if err != nil {
		return Result{}, err
	}

	r := &runner{
		cfg:   cfg,
		rng:   rng,
		doc:   doc,
		queue: lineindex.NewHeightQueue(heightBatch),
		taken: make([]time.Duration, 0, cfg.Operations),
	}
	defer r.queue.Close()

	start := time.Now()

	for i := range cfg.Operations {
		if err = ctx.Err(); err != nil {
			return r.res, fmt.Errorf("bench interrupted: %w", err)
		}

		if err = r.step(ctx); err != nil {
			return r.res, fmt.Errorf("operation %d: %w", i, err)
		}

		if cfg.VerifyEvery > 0 && (i+1)%cfg.VerifyEvery == 0 {
			if err = replay.Verify(doc); err != nil {
				return r.res, fmt.Errorf("operation %d: %w", i, err)
			}
		}
	}

	r.res.Elapsed = time.Since(start)

	if err = replay.Verify(doc); err != nil {
		return r.res, err
	}

	r.res.Lines = doc.Index().LineCount()
	r.res.Length = doc.Len()
	r.res.Latency = summarize(r.taken)

	return r.res, nil
}

func (r *runner) step(ctx context.Context) error {
	length := r.doc.Len()
	offset := r.boundary(r.rng.IntN(length + 1))

	var (
		edit document.Edit
		err  error
	)

	began := time.Now()

	switch kind := r.rng.IntN(3); {
	case kind == 0 || length == 0:
		edit, err = r.doc.Insert(offset, r.text())
		r.res.Inserts++
	case kind == 1:
		edit, err = r.doc.Remove(offset, r.span(offset))
		r.res.Removes++
	default:
		edit, err = r.doc.Replace(offset, r.span(offset), r.text())
		r.res.Replaces++
	}

	r.taken = append(r.taken, time.Since(began))

	if err != nil {
		return err
	}

	r.res.Operations++

	return r.measure(ctx, edit)
}

// measure posts layout heights for the lines an edit touched, as a typesetter would,
// plus one for a line the edit destroyed.
func (r *runner) measure(ctx context.Context, edit document.Edit) error {
	touched := slices.Concat(edit.Lines.Inserted, edit.Lines.Edited)
	if len(edit.Lines.Removed) > 0 {
		touched = append(touched, edit.Lines.Removed[0])
	}

	for i, h := range touched {
		height := float64(minLineHeight + r.rng.IntN(lineHeightSpread))

		if err := r.queue.Post(ctx, lineindex.HeightUpdate{Line: h, Height: height}); err != nil {
			return err
		}

		if (i+1)%heightBatch == 0 {
			if err := r.drain(); err != nil {
				return err
			}
		}
	}

	return r.drain()
}

func (r *runner) drain() error {
	res, err := r.queue.Drain(r.doc.Index())
	if err != nil {
		return err
	}

	r.res.HeightUpdates += res.Applied
	r.res.StaleHeights += res.Stale

	return nil
}

// boundary moves offset off the low half of a surrogate pair.
func (r *runner) boundary(offset int) int {
	if offset == 0 || offset >= r.doc.Len() {
		return offset
	}

	if u := r.doc.Slice(offset, offset+1)[0]; u >= 0xdc00 && u <= 0xdfff {
		return offset - 1
	}

	return offset
}

func (r *runner) span(offset int) int {
	limit := min(r.doc.Len()-offset, r.cfg.MaxInsert*2)
	if limit <= 0 {
		return 0
	}

	length := r.rng.IntN(limit + 1)

	return r.boundary(offset+length) - offset
}

func (r *runner) text() string {
	return randomText(r.rng, 1+r.rng.IntN(r.cfg.MaxInsert))
}

func randomText(rng *rand.Rand, n int) string {
	var sb strings.Builder

	for range n {
		switch p := rng.IntN(100); {
		case p < 8:
			sb.WriteByte('\n')
		case p < 10:
			sb.WriteByte('\r')
		case p < 12:
			sb.WriteString("\r\n")
		case p < 14:
			sb.WriteRune(surrogate)
		case p < 16:
			sb.WriteRune('é')
		default:
			sb.WriteByte(byte('a' + rng.IntN(26)))
		}
	}

	return sb.String()
}

func initialText(rng *rand.Rand, lines int) string {
	var sb strings.Builder

	for i := range lines {
		width := rng.IntN(maxLineWidth)
		for range width {
			sb.WriteByte(byte('a' + rng.IntN(26)))
		}

		if i < lines-1 {
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

func summarize(taken []time.Duration) Latency {
	if len(taken) == 0 {
		return Latency{}
	}

	sorted := slices.Clone(taken)
	slices.Sort(sorted)

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	at := func(p int) time.Duration {
		return sorted[(len(sorted)-1)*p/100]
	}

	return Latency{
		P50:  at(50),
		P90:  at(90),
		P99:  at(99),
		Max:  sorted[len(sorted)-1],
		Mean: total / time.Duration(len(sorted)),
	}
}
