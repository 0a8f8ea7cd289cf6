package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Supervisor is the explicit table of collector loops, keyed by
// collector name. It owns start/stop; nothing else touches the
// runners once registered.
type Supervisor struct {
	mu       sync.Mutex
	runners  map[string]*Runner
	running  map[string]*managed
	shutdown bool
}

type managed struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor creates an empty supervision table.
func NewSupervisor() *Supervisor {
	return &Supervisor{
		runners: make(map[string]*Runner),
		running: make(map[string]*managed),
	}
}

// Register adds a runner to the table. Registering a duplicate name
// replaces the entry only when that collector is not running.
func (s *Supervisor) Register(r *Runner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.running[r.Name()]; ok {
		return fmt.Errorf("collector %s is running; stop it before re-registering", r.Name())
	}
	s.runners[r.Name()] = r
	return nil
}

// Start launches the named collector loop. Starting an already-running
// collector is a no-op.
func (s *Supervisor) Start(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return fmt.Errorf("supervisor is shut down")
	}
	r, ok := s.runners[name]
	if !ok {
		return fmt.Errorf("unknown collector: %s", name)
	}
	if _, ok := s.running[name]; ok {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	m := &managed{cancel: cancel, done: make(chan struct{})}
	s.running[name] = m

	go func() {
		defer close(m.done)
		r.Run(runCtx)
	}()
	return nil
}

// Stop cancels the named collector loop and waits for it to exit.
// Stopping a collector that is not running is a no-op.
func (s *Supervisor) Stop(name string) {
	s.mu.Lock()
	m, ok := s.running[name]
	if ok {
		delete(s.running, name)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	m.cancel()
	<-m.done
}

// StartAll starts every registered collector.
func (s *Supervisor) StartAll(ctx context.Context) error {
	for _, name := range s.Names() {
		if err := s.Start(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops every running collector and waits for them to exit.
func (s *Supervisor) StopAll() {
	for _, name := range s.Running() {
		s.Stop(name)
	}
}

// Shutdown stops everything and refuses further starts.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.StopAll()
}

// Names returns all registered collector names, sorted.
func (s *Supervisor) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.runners))
	for name := range s.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Running returns the names of currently running collectors, sorted.
func (s *Supervisor) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.running))
	for name := range s.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
