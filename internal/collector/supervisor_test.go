package collector

import (
	"context"
	"testing"
	"time"
)

func newTestSupervisor(t *testing.T, names ...string) (*Supervisor, map[string]*fakeSampler) {
	t.Helper()
	store, watch := newTestEnv(t)
	s := NewSupervisor()
	samplers := make(map[string]*fakeSampler, len(names))
	for _, name := range names {
		f := &fakeSampler{name: name}
		samplers[name] = f
		if err := s.Register(NewRunner(f, 10*time.Millisecond, store, watch)); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}
	return s, samplers
}

func TestSupervisorStartStop(t *testing.T) {
	s, samplers := newTestSupervisor(t, "system", "latency")
	ctx := context.Background()

	if err := s.StartAll(ctx); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	running := s.Running()
	if len(running) != 2 {
		t.Fatalf("expected 2 running collectors, got %v", running)
	}

	s.Stop("system")
	running = s.Running()
	if len(running) != 1 || running[0] != "latency" {
		t.Errorf("after Stop(system): running = %v, want [latency]", running)
	}

	s.StopAll()
	if len(s.Running()) != 0 {
		t.Errorf("after StopAll: running = %v, want empty", s.Running())
	}

	// Stopped collectors must not keep ticking.
	idle := samplers["latency"].collects.Load()
	time.Sleep(50 * time.Millisecond)
	if got := samplers["latency"].collects.Load(); got != idle {
		t.Errorf("stopped collector kept ticking: %d -> %d", idle, got)
	}
}

func TestSupervisorDoubleStartIsNoop(t *testing.T) {
	s, _ := newTestSupervisor(t, "system")
	ctx := context.Background()

	if err := s.Start(ctx, "system"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(ctx, "system"); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if len(s.Running()) != 1 {
		t.Errorf("running = %v, want exactly one entry", s.Running())
	}
	s.StopAll()
}

func TestSupervisorUnknownCollector(t *testing.T) {
	s, _ := newTestSupervisor(t)
	if err := s.Start(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown collector name")
	}
}

func TestSupervisorStopUnstartedIsNoop(t *testing.T) {
	s, _ := newTestSupervisor(t, "system")
	s.Stop("system") // must not block or panic
}

func TestSupervisorShutdownRefusesStarts(t *testing.T) {
	s, _ := newTestSupervisor(t, "system")
	s.Shutdown()
	if err := s.Start(context.Background(), "system"); err == nil {
		t.Error("expected error starting after Shutdown")
	}
}
