package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AntMonss/claude-monitor/internal/aggregate"
	"github.com/AntMonss/claude-monitor/internal/collector"
	"github.com/AntMonss/claude-monitor/internal/config"
	"github.com/AntMonss/claude-monitor/internal/diagnose"
	"github.com/AntMonss/claude-monitor/internal/event"
	"github.com/AntMonss/claude-monitor/internal/logstore"
	"github.com/AntMonss/claude-monitor/internal/mode"
	"github.com/AntMonss/claude-monitor/internal/scoring"
	"github.com/AntMonss/claude-monitor/internal/watchstate"
)

func startTestServer(t *testing.T) (*Server, *logstore.Store) {
	t.Helper()
	return startTestServerWith(t, diagnose.NewRunner([]string{"/bin/echo"}, 10*time.Second))
}

func startTestServerWith(t *testing.T, diagnoser *diagnose.Runner) (*Server, *logstore.Store) {
	t.Helper()

	dir := t.TempDir()
	store, err := logstore.Open(dir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	detector := mode.NewDetector("http://127.0.0.1:1/health", store, 100*time.Millisecond, 5*time.Minute)
	aggregator := aggregate.New(store, detector, config.Default())
	watch := watchstate.NewFile(filepath.Join(dir, config.WatchStateFile))

	srv := NewServer("127.0.0.1:0", aggregator, detector, watch, collector.NewSupervisor(), diagnoser)
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start api server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, store
}

func getJSON(t *testing.T, url string, into any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("GET %s returned invalid JSON: %v", url, err)
		}
	}
	return resp
}

func TestSnapshotEndpoint(t *testing.T) {
	srv, store := startTestServer(t)

	store.Append(config.SystemLog, event.SystemMetrics{
		TS: time.Now().UnixMilli(), Measurement: "system", CPULoad: 85, MemTotal: 16 << 30, MemUsed: 4 << 30,
	})

	var resp SnapshotResponse
	getJSON(t, srv.URL()+"/api/snapshot?limit=10", &resp)

	if len(resp.System) != 1 {
		t.Fatalf("system records = %d, want 1", len(resp.System))
	}
	if resp.Mode.Mode != mode.Passive {
		t.Errorf("mode = %q, want passive", resp.Mode.Mode)
	}
	if resp.Diagnosis.TopIssue == nil || resp.Diagnosis.TopIssue.SourceID != scoring.SourceCPU {
		t.Errorf("diagnosis topIssue = %+v, want cpu", resp.Diagnosis.TopIssue)
	}
	if resp.Diagnosis.Summary != scoring.StatusError {
		t.Errorf("summary = %q, want error at cpuLoad 85", resp.Diagnosis.Summary)
	}
}

func TestSnapshotEmptyStoreAwaitsData(t *testing.T) {
	srv, _ := startTestServer(t)

	var resp SnapshotResponse
	getJSON(t, srv.URL()+"/api/snapshot", &resp)

	if !resp.Diagnosis.AwaitingData {
		t.Error("awaitingData not set for empty store")
	}
	if resp.System == nil {
		t.Error("system array is null, want []")
	}
}

func TestSnapshotRejectsBadLimit(t *testing.T) {
	srv, _ := startTestServer(t)

	resp := getJSON(t, srv.URL()+"/api/snapshot?limit=abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestModeEndpoint(t *testing.T) {
	srv, _ := startTestServer(t)

	var res mode.Result
	getJSON(t, srv.URL()+"/api/mode", &res)
	if res.Mode != mode.Passive {
		t.Errorf("mode = %q, want passive", res.Mode)
	}
}

func TestWatchToggle(t *testing.T) {
	srv, _ := startTestServer(t)

	var state WatchStateResponse
	getJSON(t, srv.URL()+"/api/watch", &state)
	if !state.Enabled {
		t.Fatal("watching not enabled by default")
	}

	resp, err := http.Post(srv.URL()+"/api/watch", "application/json", bytes.NewReader([]byte(`{"enabled": false}`)))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state.Enabled {
		t.Error("watching still enabled after disable")
	}

	getJSON(t, srv.URL()+"/api/watch", &state)
	if state.Enabled {
		t.Error("disable did not persist")
	}
}

func TestWatchRejectsMissingField(t *testing.T) {
	srv, _ := startTestServer(t)

	for _, body := range []string{`{}`, `{"enabled": "yes"}`, `not json`} {
		resp, err := http.Post(srv.URL()+"/api/watch", "application/json", bytes.NewReader([]byte(body)))
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestDiagnoseEndpoint(t *testing.T) {
	srv, _ := startTestServer(t)

	resp, err := http.Post(srv.URL()+"/api/diagnose", "application/json", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result diagnose.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.RequestID == "" {
		t.Error("requestId not set")
	}
}

func TestDiagnoseAcceptsCallerSnapshot(t *testing.T) {
	srv, _ := startTestServer(t)

	resp, err := http.Post(srv.URL()+"/api/diagnose", "application/json",
		bytes.NewReader([]byte(`{"cpuLoad": 99}`)))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result diagnose.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	// /bin/echo echoes the prompt, which embeds the posted snapshot.
	if !strings.Contains(result.Output, `"cpuLoad": 99`) {
		t.Errorf("caller snapshot not forwarded: %q", result.Output)
	}
}

func TestDiagnoseTimeoutReturns504(t *testing.T) {
	srv, _ := startTestServerWith(t, diagnose.NewRunner([]string{"/bin/sh", "-c", "sleep 30"}, 100*time.Millisecond))

	resp, err := http.Post(srv.URL()+"/api/diagnose", "application/json", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatal(err)
	}
	if errResp.ErrorType != ErrorTypeTimeout {
		t.Errorf("errorType = %q, want %q", errResp.ErrorType, ErrorTypeTimeout)
	}
}

func TestDiagnoseMethodNotAllowed(t *testing.T) {
	srv, _ := startTestServer(t)

	resp := getJSON(t, srv.URL()+"/api/diagnose", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := startTestServer(t)

	var health HealthResponse
	resp := getJSON(t, srv.URL()+"/healthz", &health)
	if resp.StatusCode != http.StatusOK || health.Status != "ok" {
		t.Errorf("healthz = %d %q, want 200 ok", resp.StatusCode, health.Status)
	}
}
