package monitor

import (
	"context"
	"testing"
)

func TestDisabledMetricsAreNoop(t *testing.T) {
	m, err := NewMetrics(context.Background(), DefaultMetricsConfig())
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	ctx := context.Background()
	m.RecordTick(ctx, "system", true)
	m.RecordTick(ctx, "system", false)
	m.RecordAppend(ctx, "system.jsonl", 3)
	m.RecordRotation(ctx, "system.jsonl", 10)
	m.RecordSnapshotLatency(ctx, 12.5)
	m.RecordIngest(ctx, "claude", 5, 1)

	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestNilMetricsHelpersAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordTick(ctx, "system", true)
	m.RecordAppend(ctx, "system.jsonl", 1)
	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("nil Shutdown returned error: %v", err)
	}
}

func TestStdoutMetricsExporter(t *testing.T) {
	cfg := &MetricsConfig{
		Enabled:      true,
		ServiceName:  "claude-monitor-test",
		ExporterType: ExporterStdout,
	}
	m, err := NewMetrics(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewMetrics with stdout exporter failed: %v", err)
	}
	m.Shutdown(context.Background())
}

func TestUnknownExporterRejected(t *testing.T) {
	cfg := &MetricsConfig{Enabled: true, ServiceName: "x", ExporterType: "bogus"}
	if _, err := NewMetrics(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown exporter type")
	}
}

func TestDisabledTracerSpans(t *testing.T) {
	tr, err := NewTracer(context.Background(), DefaultTracerConfig())
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	ctx, span := tr.Start(context.Background(), "snapshot")
	if ctx == nil {
		t.Fatal("expected context from Start")
	}
	span.End()

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
