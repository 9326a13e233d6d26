package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfigs(t *testing.T) {
	tc := DefaultTracerConfig("testkit")
	if tc.ServiceName != "testkit" || tc.Endpoint != "localhost:4318" || tc.SampleRate != 1.0 || !tc.Insecure {
		t.Errorf("unexpected tracer defaults: %+v", tc)
	}
	mc := DefaultMeterConfig("testkit")
	if mc.Interval != 15*time.Second || mc.Environment != "local" {
		t.Errorf("unexpected meter defaults: %+v", mc)
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("testkit", "1.2.3", "ci")
	if err != nil {
		t.Fatalf("newResource failed: %v", err)
	}
	found := false
	for _, kv := range res.Attributes() {
		if kv.Key == AttrServiceName && kv.Value.AsString() == "testkit" {
			found = true
		}
	}
	if !found {
		t.Error("expected service.name attribute on resource")
	}
}

func TestNewMetricsNoop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordUnit(ctx, "posts", "passed", 10*time.Millisecond)
	metrics.ViewAcquired(ctx, "memory")
	metrics.ViewReleased(ctx, "memory")
	metrics.RecordViolation(ctx, "UNEXPECTED_CALL")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordUnit(ctx, "s", "passed", time.Millisecond)
	m.ViewAcquired(ctx, "memory")
	m.ViewReleased(ctx, "memory")
	m.RecordViolation(ctx, "MISSING_CALLS")
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, not an int64 sum", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestStartUnitRecordsSpanAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	ctx := context.Background()
	ctx, scope := StartUnit(ctx, tp.Tracer("test"), metrics, UnitInfo{RunID: "run-1", Unit: "notify", Suite: "mail", Worker: 2})
	metrics.ViewAcquired(ctx, "memory")
	scope.End(ctx, "failed", []string{"UNEXPECTED_CALL", "MISSING_CALLS"}, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != SpanUnit {
		t.Errorf("expected span %q, got %q", SpanUnit, span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status for violations, got %v", span.Status().Code)
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs[AttrUnit].AsString() != "notify" || attrs[AttrStatus].AsString() != "failed" {
		t.Errorf("unexpected span attributes: %v", span.Attributes())
	}
	if attrs[AttrWorker].AsInt64() != 2 {
		t.Errorf("expected worker attribute 2, got %v", attrs[AttrWorker])
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if got := sumValue(t, rm, "unit.total"); got != 1 {
		t.Errorf("expected unit.total 1, got %d", got)
	}
	if got := sumValue(t, rm, "mock.violation.total"); got != 2 {
		t.Errorf("expected 2 violations, got %d", got)
	}
	if got := sumValue(t, rm, "view.active"); got != 1 {
		t.Errorf("expected 1 active view, got %d", got)
	}
}

func TestUnitScopeRecordsCause(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, scope := StartUnit(context.Background(), tp.Tracer("test"), nil, UnitInfo{Unit: "boom"})
	scope.End(ctx, "errored", nil, fmt.Errorf("setup raised"))

	span := recorder.Ended()[0]
	if span.Status().Code != codes.Error || span.Status().Description != "setup raised" {
		t.Errorf("unexpected status: %+v", span.Status())
	}
	if len(span.Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestUnitScopePassedIsUnset(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, scope := StartUnit(context.Background(), tp.Tracer("test"), nil, UnitInfo{Unit: "ok"})
	if scope.Duration() < 0 {
		t.Error("expected non-negative duration")
	}
	scope.End(ctx, "passed", nil, nil)

	if code := recorder.Ended()[0].Status().Code; code != codes.Unset {
		t.Errorf("expected unset status, got %v", code)
	}
}

func TestStartUnitDefaultTracer(t *testing.T) {
	ctx, scope := StartUnit(context.Background(), nil, nil, UnitInfo{Unit: "noop"})
	scope.End(ctx, "passed", nil, nil)
}

func TestSpanHelpersWithoutRecordingSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	SetSpanAttribute(ctx, "key", "value")
	if SpanFromContext(ctx) == nil {
		t.Fatal("expected non-nil span")
	}
	if Tracer("x") == nil || Meter("x") == nil {
		t.Fatal("expected global tracer and meter")
	}
}

func TestSetSpanAttributeRecording(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "attrs")
	SetSpanAttribute(ctx, "s", "v")
	SetSpanAttribute(ctx, "i", 1)
	SetSpanAttribute(ctx, "i64", int64(2))
	SetSpanAttribute(ctx, "b", true)
	SetSpanAttribute(ctx, "ss", []string{"a"})
	SetSpanAttribute(ctx, "ignored", struct{}{})
	span.End()

	if got := len(recorder.Ended()[0].Attributes()); got != 5 {
		t.Errorf("expected 5 attributes, got %d", got)
	}
}

func TestSetupDisabled(t *testing.T) {
	tel, err := Setup(context.Background(), TelemetryConfig{})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if tel.Tracer == nil {
		t.Error("expected the global tracer")
	}
	if tel.Metrics != nil {
		t.Error("disabled telemetry should not create metrics")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown of disabled telemetry failed: %v", err)
	}
}

func TestTelemetryConfig(t *testing.T) {
	cfg := TelemetryConfig{Enabled: true}
	cfg.ApplyDefaults()
	if cfg.SampleRate != 1.0 || cfg.Endpoint != "localhost:4318" || cfg.MetricInterval != 15*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	if _, err := Setup(context.Background(), TelemetryConfig{SampleRate: 1.5}); err == nil {
		t.Error("expected sample rate above 1 to be rejected")
	}
}
