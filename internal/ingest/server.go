// Package ingest runs the push-telemetry listener. Coding agents that
// support OTLP export (Claude Code, Codex) are pointed at it over
// OTLP/HTTP; accepted log records are flattened into telemetry events
// and appended to the per-agent telemetry logs. The listener always
// acknowledges a well-formed batch: a record the mapper cannot use is
// dropped and counted, never refused, so exporters do not retry into a
// growing backlog.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"

	"github.com/AntMonss/claude-monitor/internal/config"
	"github.com/AntMonss/claude-monitor/internal/event"
	"github.com/AntMonss/claude-monitor/internal/events"
	"github.com/AntMonss/claude-monitor/internal/logstore"
	"github.com/AntMonss/claude-monitor/internal/monitor"
)

// maxIngestBody caps request size. Agent exporters batch small; 8 MiB
// leaves generous headroom.
const maxIngestBody = 8 << 20

type Server struct {
	store    *logstore.Store
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
	running  bool
	addr     string
}

func NewServer(addr string, store *logstore.Store) *Server {
	return &Server{store: store, addr: addr}
}

func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("ingest server already running")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/logs", s.handleLogs)
	mux.HandleFunc("/v1/metrics", s.handleMetrics)
	mux.HandleFunc("/health", s.handleHealth)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           mux,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.running = true

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			fmt.Printf("ingest server error: %v\n", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.Addr())
}

func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeIngestError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		writeIngestError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var req collogspb.ExportLogsServiceRequest
	if err := unmarshalOTLP(r.Header.Get("Content-Type"), body, &req); err != nil {
		writeIngestError(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return
	}

	type counts struct{ accepted, dropped int }
	perAgent := make(map[event.Agent]*counts)

	for _, rl := range req.GetResourceLogs() {
		resAttrs := make(map[string]any)
		flattenAttrs(rl.GetResource().GetAttributes(), "", resAttrs)
		agent := agentFor(resAttrs)

		c := perAgent[agent]
		if c == nil {
			c = &counts{}
			perAgent[agent] = c
		}

		file := config.ClaudeTelemetryLog
		if agent == event.AgentCodex {
			file = config.CodexTelemetryLog
		}

		for _, sl := range rl.GetScopeLogs() {
			for _, rec := range sl.GetLogRecords() {
				te, ok := telemetryEvent(agent, rec)
				if !ok {
					c.dropped++
					continue
				}
				if err := s.store.Append(file, te); err != nil {
					c.dropped++
					continue
				}
				c.accepted++
			}
		}
	}

	for agent, c := range perAgent {
		events.GetGlobalEventLogger().LogIngestBatch(string(agent), c.accepted, c.dropped)
		monitor.GetGlobalMetrics().RecordIngest(r.Context(), string(agent), int64(c.accepted), int64(c.dropped))
	}

	writeAck(w)
}

// handleMetrics acknowledges OTLP metric batches without storing them.
// Resource metrics come from the daemon's own collectors; accepting the
// endpoint keeps exporters configured with a shared OTLP base URL from
// logging delivery failures.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeIngestError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		writeIngestError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var req colmetricspb.ExportMetricsServiceRequest
	if err := unmarshalOTLP(r.Header.Get("Content-Type"), body, &req); err != nil {
		writeIngestError(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return
	}

	writeAck(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// unmarshalOTLP decodes a request body as binary protobuf or OTLP/JSON
// depending on the declared content type. JSON is the permissive
// default since agent exporters ship http/json out of the box.
func unmarshalOTLP(contentType string, body []byte, msg proto.Message) error {
	if strings.Contains(contentType, "application/x-protobuf") {
		return proto.Unmarshal(body, msg)
	}
	return protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(body, msg)
}

func writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("{}"))
}

func writeIngestError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
