// Package monitor provides optional OpenTelemetry self-instrumentation
// for the monitor daemon: counters for collector ticks and log
// appends, rotation truncations, and spans around snapshot and
// diagnose requests. Disabled by default; everything degrades to
// no-ops.
package monitor

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ExporterType defines the telemetry exporter to use.
type ExporterType string

const (
	// ExporterNone disables self-telemetry (no-op).
	ExporterNone ExporterType = "none"
	// ExporterStdout exports to stdout (useful for debugging).
	ExporterStdout ExporterType = "stdout"
	// ExporterOTLPGRPC exports via OTLP over gRPC.
	ExporterOTLPGRPC ExporterType = "otlp-grpc"
	// ExporterOTLPHTTP exports via OTLP over HTTP.
	ExporterOTLPHTTP ExporterType = "otlp-http"
)

// MetricsConfig holds configuration for self-metrics.
type MetricsConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	ExporterType   ExporterType
	OTLPEndpoint   string
	OTLPInsecure   bool
}

// DefaultMetricsConfig returns a configuration with metrics disabled.
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled:      false,
		ServiceName:  "claude-monitor",
		ExporterType: ExporterNone,
	}
}

// Metrics wraps the meter provider plus the daemon's instruments.
type Metrics struct {
	config        *MetricsConfig
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	shutdown      func(context.Context) error

	tickCounter     metric.Int64Counter
	tickErrors      metric.Int64Counter
	appendCounter   metric.Int64Counter
	rotationDropped metric.Int64Counter
	snapshotLatency metric.Float64Histogram
	ingestRecords   metric.Int64Counter
}

var (
	globalMetrics   *Metrics
	globalMetricsMu sync.RWMutex
)

// NewMetrics creates a Metrics instance. With Enabled=false or
// ExporterNone the returned instance records into a no-op provider.
func NewMetrics(ctx context.Context, cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil {
		cfg = DefaultMetricsConfig()
	}

	m := &Metrics{config: cfg}

	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		m.meterProvider = sdkmetric.NewMeterProvider()
		m.meter = m.meterProvider.Meter(cfg.ServiceName)
		m.shutdown = func(context.Context) error { return nil }
		if err := m.registerInstruments(); err != nil {
			return nil, err
		}
		return m, nil
	}

	exporter, err := m.createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	m.meterProvider = mp
	m.meter = mp.Meter(cfg.ServiceName)
	m.shutdown = mp.Shutdown

	if err := m.registerInstruments(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) createExporter(ctx context.Context, cfg *MetricsConfig) (sdkmetric.Exporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdoutmetric.New()

	case ExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)

	case ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.ExporterType)
	}
}

func newResource(serviceName, serviceVersion string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
	}
	if serviceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(serviceVersion))
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", attrs...),
	)
}

func (m *Metrics) registerInstruments() error {
	var err error

	m.tickCounter, err = m.meter.Int64Counter(
		"monitor.collector.ticks",
		metric.WithDescription("Count of collector ticks by collector"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tick counter: %w", err)
	}

	m.tickErrors, err = m.meter.Int64Counter(
		"monitor.collector.tick_errors",
		metric.WithDescription("Count of failed collector ticks"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tick error counter: %w", err)
	}

	m.appendCounter, err = m.meter.Int64Counter(
		"monitor.log.appends",
		metric.WithDescription("Count of records appended per log file"),
	)
	if err != nil {
		return fmt.Errorf("failed to create append counter: %w", err)
	}

	m.rotationDropped, err = m.meter.Int64Counter(
		"monitor.log.rotated_lines",
		metric.WithDescription("Count of lines removed by rotation"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rotation counter: %w", err)
	}

	m.snapshotLatency, err = m.meter.Float64Histogram(
		"monitor.snapshot.latency",
		metric.WithDescription("Latency of aggregate snapshot queries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot latency histogram: %w", err)
	}

	m.ingestRecords, err = m.meter.Int64Counter(
		"monitor.ingest.records",
		metric.WithDescription("Count of push-telemetry records by outcome"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ingest counter: %w", err)
	}

	return nil
}

// RecordTick records one collector tick.
func (m *Metrics) RecordTick(ctx context.Context, collector string, ok bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("collector", collector))
	m.tickCounter.Add(ctx, 1, attrs)
	if !ok {
		m.tickErrors.Add(ctx, 1, attrs)
	}
}

// RecordAppend records n appended records for a log file.
func (m *Metrics) RecordAppend(ctx context.Context, file string, n int64) {
	if m == nil {
		return
	}
	m.appendCounter.Add(ctx, n, metric.WithAttributes(attribute.String("file", file)))
}

// RecordRotation records lines dropped by one rotation pass.
func (m *Metrics) RecordRotation(ctx context.Context, file string, dropped int64) {
	if m == nil || dropped <= 0 {
		return
	}
	m.rotationDropped.Add(ctx, dropped, metric.WithAttributes(attribute.String("file", file)))
}

// RecordSnapshotLatency records one aggregate query duration.
func (m *Metrics) RecordSnapshotLatency(ctx context.Context, latencyMs float64) {
	if m == nil {
		return
	}
	m.snapshotLatency.Record(ctx, latencyMs)
}

// RecordIngest records accepted and dropped push-telemetry records.
func (m *Metrics) RecordIngest(ctx context.Context, agent string, accepted, dropped int64) {
	if m == nil {
		return
	}
	if accepted > 0 {
		m.ingestRecords.Add(ctx, accepted, metric.WithAttributes(
			attribute.String("agent", agent), attribute.String("outcome", "accepted")))
	}
	if dropped > 0 {
		m.ingestRecords.Add(ctx, dropped, metric.WithAttributes(
			attribute.String("agent", agent), attribute.String("outcome", "dropped")))
	}
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.shutdown == nil {
		return nil
	}
	return m.shutdown(ctx)
}

// SetGlobalMetrics sets the global metrics instance.
func SetGlobalMetrics(m *Metrics) {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	globalMetrics = m
}

// GetGlobalMetrics returns the global metrics instance, or nil when
// none is configured. All Record helpers are nil-safe.
func GetGlobalMetrics() *Metrics {
	globalMetricsMu.RLock()
	defer globalMetricsMu.RUnlock()
	return globalMetrics
}
