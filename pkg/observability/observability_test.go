package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.Nil(t, providers.MetricsHandler)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_PrometheusServesIndexMetrics(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true
	cfg.Mode = observability.ModeBench

	providers, err := observability.InitWithWriter(cfg, io.Discard)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })
	require.NotNil(t, providers.MetricsHandler)

	im, err := observability.NewIndexMetrics(providers.Meter)
	require.NoError(t, err)

	im.RecordHeights(2, 1, 0)

	rec := httptest.NewRecorder()
	providers.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lineindex_heights_applied")
}

func TestInit_LoggerWritesServiceAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.Environment = "test"

	providers, err := observability.InitWithWriter(cfg, &buf)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	providers.Logger.Info("hello")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "lineindex", record["service"])
	assert.Equal(t, "cli", record["mode"])
	assert.Equal(t, "test", record["env"])
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "api-key=secret", want: map[string]string{"api-key": "secret"}},
		{name: "spaces", raw: " a = 1 , b=2", want: map[string]string{"a": "1", "b": "2"}},
		{name: "invalid", raw: "novalue", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.raw))
		})
	}
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "svc", "", observability.ModeLSP))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.WithGroup("edit").InfoContext(ctx, "applied", "lines", 3)

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "svc", record["service"])
	assert.Equal(t, "lsp", record["mode"])
	assert.NotContains(t, record, "env")
	assert.Equal(t, map[string]any{"lines": float64(3)}, record["edit"])
}

func TestTracingHandler_NestedGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "svc", "prod", observability.ModeCLI))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID}))

	logger.With("doc", "a.txt").WithGroup("index").With("kind", "insert").
		WithGroup("changes").InfoContext(ctx, "edit", "inserted", 2)

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "a.txt", record["doc"])
	assert.Equal(t, "prod", record["env"])
	assert.Equal(t, map[string]any{
		"kind":    "insert",
		"changes": map[string]any{"inserted": float64(2)},
	}, record["index"])

	buf.Reset()
	logger.WithGroup("empty").Info("bare")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "bare", record["msg"])
}

func setupTestMeter(t *testing.T) (*observability.IndexMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	im, err := observability.NewIndexMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return im, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumWhere(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()

	m := findMetric(rm, name)
	require.NotNil(t, m, "%s not found", name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64

	for _, dp := range sum.DataPoints {
		if key != "" {
			v, found := dp.Attributes.Value(attribute.Key(key))
			if !found || v.AsString() != value {
				continue
			}
		}

		total += dp.Value
	}

	return total
}

func TestIndexMetrics_RecordsDocumentEdits(t *testing.T) {
	t.Parallel()

	im, reader := setupTestMeter(t)

	doc, err := document.New("one\ntwo\nthree", lineindex.Options{Recorder: im})
	require.NoError(t, err)

	_, err = doc.Insert(1, "x\ny")
	require.NoError(t, err)

	_, err = doc.Remove(0, 2)
	require.NoError(t, err)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(1), sumWhere(t, rm, "lineindex.edits.total", "kind", "insert"))
	assert.Equal(t, int64(1), sumWhere(t, rm, "lineindex.edits.total", "kind", "remove"))
	assert.Equal(t, int64(1), sumWhere(t, rm, "lineindex.lines.changed.total", "change", "inserted"))
	assert.Equal(t, int64(1), sumWhere(t, rm, "lineindex.rebuilds.total", "", ""))
	assert.NotNil(t, findMetric(rm, "lineindex.edit.duration.seconds"))
	assert.NotNil(t, findMetric(rm, "lineindex.rebuild.duration.seconds"))

	lines := findMetric(rm, "lineindex.rebuild.lines")
	require.NotNil(t, lines)

	gauge, ok := lines.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(3), gauge.DataPoints[0].Value)
}

func TestIndexMetrics_RecordHeights(t *testing.T) {
	t.Parallel()

	im, reader := setupTestMeter(t)

	im.RecordHeights(5, 3, 2)
	im.RecordHeights(1, 0, 0)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(6), sumWhere(t, rm, "lineindex.heights.applied.total", "", ""))
	assert.Equal(t, int64(3), sumWhere(t, rm, "lineindex.heights.changed.total", "", ""))
	assert.Equal(t, int64(2), sumWhere(t, rm, "lineindex.heights.stale.total", "", ""))
}

func TestTraced(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)).Tracer("test")
	errBoom := errors.New("boom")

	require.NoError(t, observability.Traced(context.Background(), tracer, "ok", func(context.Context) error {
		return nil
	}, attribute.Int("lines", 4)))

	err := observability.Traced(context.Background(), tracer, "fail", func(context.Context) error {
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "ok", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("lines", 4))

	assert.Equal(t, "fail", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Len(t, spans[1].Events(), 1)
}

func TestHealthAndReadyHandlers(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	observability.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	failing := func(context.Context) error { return errors.New("index not loaded") }

	rec = httptest.NewRecorder()
	observability.ReadyHandler(failing).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","reason":"index not loaded"}`, rec.Body.String())
}

func TestDiagnosticsServer(t *testing.T) {
	t.Parallel()

	mp, handler, err := observability.PrometheusProvider()
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	im, err := observability.NewIndexMetrics(mp.Meter("test"))
	require.NoError(t, err)

	im.RecordRebuild(42, 0)

	ctx := context.Background()

	srv, err := observability.NewDiagnosticsServer(ctx, "127.0.0.1:0", handler, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, srv.Close(ctx)) })

	for path, want := range map[string]string{
		"/healthz": `"ok"`,
		"/readyz":  `"ok"`,
		"/metrics": "lineindex_rebuild_lines",
	} {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+srv.Addr()+path, nil)
		require.NoError(t, reqErr)

		resp, getErr := http.DefaultClient.Do(req)
		require.NoError(t, getErr)

		body, readErr := io.ReadAll(resp.Body)
		require.NoError(t, readErr)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.True(t, strings.Contains(string(body), want), "%s: %s", path, body)
	}
}
