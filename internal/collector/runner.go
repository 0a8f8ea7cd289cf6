// Package collector implements the periodic samplers that feed the
// append-only logs, the loop runner that drives them, and the
// supervision table that starts and stops them by name.
package collector

import (
	"context"
	"time"

	"github.com/AntMonss/claude-monitor/internal/events"
	"github.com/AntMonss/claude-monitor/internal/logstore"
	"github.com/AntMonss/claude-monitor/internal/monitor"
	"github.com/AntMonss/claude-monitor/internal/watchstate"
)

// Sample is one record destined for one log file.
type Sample struct {
	File   string
	Record any
}

// Sampler gathers raw values from one source and normalizes them into
// samples. Implementations must honor ctx cancellation and bound their
// own I/O.
type Sampler interface {
	Name() string
	Collect(ctx context.Context) ([]Sample, error)
}

// minTickTimeout is the floor for the per-tick deadline so short
// intervals do not starve slower sources.
const minTickTimeout = 10 * time.Second

// Runner drives a Sampler on a fixed tick interval. Each tick consults
// the watching state first and skips entirely when disabled. Gather
// and append failures are logged and swallowed; the loop only exits
// when its context is cancelled.
type Runner struct {
	sampler  Sampler
	interval time.Duration
	store    *logstore.Store
	watch    *watchstate.File
}

// NewRunner creates a Runner for one sampler.
func NewRunner(sampler Sampler, interval time.Duration, store *logstore.Store, watch *watchstate.File) *Runner {
	return &Runner{
		sampler:  sampler,
		interval: interval,
		store:    store,
		watch:    watch,
	}
}

// Name returns the underlying sampler's name.
func (r *Runner) Name() string {
	return r.sampler.Name()
}

// Run blocks until ctx is cancelled. The first tick fires immediately.
func (r *Runner) Run(ctx context.Context) {
	events.GetGlobalEventLogger().LogCollectorStarted(r.sampler.Name(), r.interval.Milliseconds())
	defer events.GetGlobalEventLogger().LogCollectorStopped(r.sampler.Name())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	state, err := r.watch.Read()
	if err != nil {
		events.GetGlobalEventLogger().LogTickError(r.sampler.Name(), err)
		return
	}
	if !state.Enabled {
		return
	}

	timeout := r.interval
	if timeout < minTickTimeout {
		timeout = minTickTimeout
	}
	tickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	samples, err := r.sampler.Collect(tickCtx)
	ok := err == nil
	if err != nil {
		events.GetGlobalEventLogger().LogTickError(r.sampler.Name(), err)
	}
	monitor.GetGlobalMetrics().RecordTick(ctx, r.sampler.Name(), ok)

	for _, s := range samples {
		if err := r.store.Append(s.File, s.Record); err != nil {
			events.GetGlobalEventLogger().LogTickError(r.sampler.Name(), err)
			continue
		}
		monitor.GetGlobalMetrics().RecordAppend(ctx, s.File, 1)
	}
}
