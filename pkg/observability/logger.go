package observability

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
)

// TracingHandler is an [slog.Handler] that adds the active trace_id and span_id
// to every record. Service and trace attributes stay at the top level under WithGroup.
type TracingHandler struct {
	// root is the wrapped handler before the first group was opened.
	root   slog.Handler
	groups []logGroup
}

// logGroup is an open group with the attributes added while it was innermost.
type logGroup struct {
	name  string
	attrs []slog.Attr
}

// NewTracingHandler wraps inner with trace context and service metadata.
func NewTracingHandler(inner slog.Handler, service, env string, mode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(mode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{root: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.root.Enabled(ctx, level)
}

// Handle adds the span context of ctx, nests the record under the open groups, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := record.Clone()

	if len(th.groups) > 0 {
		out = slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if len(th.groups) > 0 {
		out.AddAttrs(th.nest(record)...)
	}

	err := th.root.Handle(ctx, out)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// nest wraps the record attributes in the open groups, innermost first.
func (th *TracingHandler) nest(record slog.Record) []slog.Attr {
	tail := make([]slog.Attr, 0, record.NumAttrs())

	record.Attrs(func(a slog.Attr) bool {
		tail = append(tail, a)

		return true
	})

	for i := len(th.groups) - 1; i >= 0; i-- {
		g := th.groups[i]
		tail = []slog.Attr{{Key: g.name, Value: slog.GroupValue(append(slices.Clone(g.attrs), tail...)...)}}
	}

	return tail
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return th
	}

	if len(th.groups) == 0 {
		return &TracingHandler{root: th.root.WithAttrs(attrs)}
	}

	groups := slices.Clone(th.groups)
	last := &groups[len(groups)-1]
	last.attrs = append(slices.Clone(last.attrs), attrs...)

	return &TracingHandler{root: th.root, groups: groups}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return th
	}

	groups := append(slices.Clone(th.groups), logGroup{name: name})

	return &TracingHandler{root: th.root, groups: groups}
}
