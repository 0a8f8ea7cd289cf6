package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AntMonss/claude-monitor/internal/event"
)

func TestLatencyProbeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewLatencySampler("network.jsonl", []string{server.URL})
	samples, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}

	rec := samples[0].Record.(event.LatencyProbe)
	if !rec.OK {
		t.Errorf("probe against live server failed: %s", rec.Error)
	}
	if rec.Endpoint != server.URL {
		t.Errorf("endpoint = %q, want %q", rec.Endpoint, server.URL)
	}
	if rec.LatencyMs < 0 {
		t.Errorf("negative latency: %d", rec.LatencyMs)
	}
}

func TestLatencyProbeConnectionRefused(t *testing.T) {
	// Reserve a port and close it so nothing is listening.
	server := httptest.NewServer(http.NewServeMux())
	url := server.URL
	server.Close()

	s := NewLatencySampler("network.jsonl", []string{url})
	samples, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	rec := samples[0].Record.(event.LatencyProbe)
	if rec.OK {
		t.Error("probe against closed port reported success")
	}
	if rec.Error == "" {
		t.Error("expected error reason to be recorded")
	}
}

func TestLatencyProbeTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer slow.Close()

	s := NewLatencySampler("network.jsonl", []string{slow.URL})
	s.timeout = 50 * time.Millisecond

	samples, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	rec := samples[0].Record.(event.LatencyProbe)
	if rec.OK {
		t.Error("timed-out probe reported success")
	}
	if rec.Error != "timeout" {
		t.Errorf("error = %q, want timeout", rec.Error)
	}
}

func TestLatencyProbesKeepEndpointOrder(t *testing.T) {
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer b.Close()

	s := NewLatencySampler("network.jsonl", []string{a.URL, b.URL})
	samples, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Record.(event.LatencyProbe).Endpoint != a.URL ||
		samples[1].Record.(event.LatencyProbe).Endpoint != b.URL {
		t.Error("samples do not preserve endpoint order")
	}
}
