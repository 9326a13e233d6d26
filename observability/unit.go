package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UnitInfo identifies one unit execution.
type UnitInfo struct {
	RunID  string
	Unit   string
	Suite  string
	Worker int
}

// UnitScope is the span and timer of one unit execution.
type UnitScope struct {
	info    UnitInfo
	span    trace.Span
	metrics *Metrics
	start   time.Time
}

// StartUnit opens the unit span. A nil tracer uses the global provider; nil
// metrics records nothing.
func StartUnit(ctx context.Context, tracer trace.Tracer, metrics *Metrics, info UnitInfo) (context.Context, *UnitScope) {
	if tracer == nil {
		tracer = Tracer(defaultTracerName)
	}
	ctx, span := tracer.Start(ctx, SpanUnit, trace.WithAttributes(
		attribute.String(AttrRunID, info.RunID),
		attribute.String(AttrUnit, info.Unit),
		attribute.String(AttrSuite, info.Suite),
		attribute.Int(AttrWorker, info.Worker),
	))
	return ctx, &UnitScope{info: info, span: span, metrics: metrics, start: time.Now()}
}

// End closes the span and records metrics. status is the outcome status
// name; violations are violation codes; cause is the failure cause, if any.
func (s *UnitScope) End(ctx context.Context, status string, violations []string, cause error) {
	duration := time.Since(s.start)

	s.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.StringSlice(AttrViolations, violations),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	if cause != nil {
		s.span.RecordError(cause)
		s.span.SetStatus(codes.Error, cause.Error())
	} else if len(violations) > 0 {
		s.span.SetStatus(codes.Error, status)
	}
	s.span.End()

	s.metrics.RecordUnit(ctx, s.info.Suite, status, duration)
	for _, code := range violations {
		s.metrics.RecordViolation(ctx, code)
	}
}

// Duration returns the elapsed time since the unit started.
func (s *UnitScope) Duration() time.Duration {
	return time.Since(s.start)
}
