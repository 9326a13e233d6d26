package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/testkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "local",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.WithComponent("observability").Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the run instruments. A nil *Metrics records nothing.
type Metrics struct {
	unitTotal      metric.Int64Counter
	unitDuration   metric.Float64Histogram
	viewActive     metric.Int64UpDownCounter
	violationTotal metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	unitTotal, err := meter.Int64Counter("unit.total",
		metric.WithDescription("Executed units by outcome status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating unit.total counter: %w", err)
	}

	unitDuration, err := meter.Float64Histogram("unit.duration",
		metric.WithDescription("Duration of unit executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating unit.duration histogram: %w", err)
	}

	viewActive, err := meter.Int64UpDownCounter("view.active",
		metric.WithDescription("Working views currently acquired"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating view.active counter: %w", err)
	}

	violationTotal, err := meter.Int64Counter("mock.violation.total",
		metric.WithDescription("Violations by code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mock.violation.total counter: %w", err)
	}

	return &Metrics{
		unitTotal:      unitTotal,
		unitDuration:   unitDuration,
		viewActive:     viewActive,
		violationTotal: violationTotal,
	}, nil
}

// RecordUnit records one finished unit.
func (m *Metrics) RecordUnit(ctx context.Context, suite, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.unitTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("suite", suite),
		attribute.String("status", status),
	))
	m.unitDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("suite", suite),
	))
}

// ViewAcquired increments the active view gauge.
func (m *Metrics) ViewAcquired(ctx context.Context, backend string) {
	if m == nil {
		return
	}
	m.viewActive.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend)))
}

// ViewReleased decrements the active view gauge.
func (m *Metrics) ViewReleased(ctx context.Context, backend string) {
	if m == nil {
		return
	}
	m.viewActive.Add(ctx, -1, metric.WithAttributes(attribute.String("backend", backend)))
}

// RecordViolation counts one violation by code.
func (m *Metrics) RecordViolation(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.violationTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}
