// Package api serves the local query and control surface: snapshot
// reads, liveness mode, the watching toggle, and on-demand deep
// diagnostics. It binds to loopback only; there is no auth layer
// because the daemon is a single-user local tool.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/AntMonss/claude-monitor/internal/aggregate"
	"github.com/AntMonss/claude-monitor/internal/collector"
	"github.com/AntMonss/claude-monitor/internal/diagnose"
	"github.com/AntMonss/claude-monitor/internal/mode"
	"github.com/AntMonss/claude-monitor/internal/watchstate"
)

type Server struct {
	aggregator *aggregate.Aggregator
	detector   *mode.Detector
	watch      *watchstate.File
	supervisor *collector.Supervisor
	diagnoser  *diagnose.Runner
	server     *http.Server
	listener   net.Listener
	mu         sync.Mutex
	running    bool
	addr       string
}

func NewServer(addr string, aggregator *aggregate.Aggregator, detector *mode.Detector, watch *watchstate.File, supervisor *collector.Supervisor, diagnoser *diagnose.Runner) *Server {
	return &Server{
		aggregator: aggregator,
		detector:   detector,
		watch:      watch,
		supervisor: supervisor,
		diagnoser:  diagnoser,
		addr:       addr,
	}
}

func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/mode", s.handleMode)
	mux.HandleFunc("/api/watch", s.handleWatch)
	mux.HandleFunc("/api/diagnose", s.handleDiagnose)
	mux.HandleFunc("/healthz", s.handleHealthz)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           mux,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second, // diagnose runs an agent subprocess
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.running = true

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			fmt.Printf("api server error: %v\n", err)
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
