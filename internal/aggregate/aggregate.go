// Package aggregate assembles the unified dashboard snapshot: the
// last-N records of every log plus the current liveness mode. Each
// source is read independently so one slow or failing file never
// blocks the rest; a source that cannot be read contributes an empty
// array. No cross-source ordering is imposed here.
package aggregate

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AntMonss/claude-monitor/internal/config"
	"github.com/AntMonss/claude-monitor/internal/event"
	"github.com/AntMonss/claude-monitor/internal/logstore"
	"github.com/AntMonss/claude-monitor/internal/mode"
	"github.com/AntMonss/claude-monitor/internal/monitor"
)

// Snapshot is one aggregated view over all sources. Arrays are always
// present, possibly empty, oldest record first within each source.
type Snapshot struct {
	TS              int64       `json:"ts"`
	Limit           int         `json:"limit"`
	Mode            mode.Result `json:"mode"`
	System          []event.Raw `json:"system"`
	Processes       []event.Raw `json:"processes"`
	Network         []event.Raw `json:"network"`
	ClaudeTelemetry []event.Raw `json:"claudeTelemetry"`
	ClaudeLocal     []event.Raw `json:"claudeLocal"`
	CodexTelemetry  []event.Raw `json:"codexTelemetry"`
	CodexLocal      []event.Raw `json:"codexLocal"`
}

type Aggregator struct {
	store    *logstore.Store
	detector *mode.Detector

	limitMin     int
	limitMax     int
	limitDefault int
}

func New(store *logstore.Store, detector *mode.Detector, cfg config.Config) *Aggregator {
	return &Aggregator{
		store:        store,
		detector:     detector,
		limitMin:     cfg.SnapshotLimitMin,
		limitMax:     cfg.SnapshotLimitMax,
		limitDefault: cfg.SnapshotLimitDefault,
	}
}

// ClampLimit normalizes a requested record limit: zero or negative
// falls back to the default, out-of-range values clamp to the bounds.
func (a *Aggregator) ClampLimit(limit int) int {
	if limit <= 0 {
		return a.limitDefault
	}
	if limit < a.limitMin {
		return a.limitMin
	}
	if limit > a.limitMax {
		return a.limitMax
	}
	return limit
}

// Snapshot reads all sources concurrently and returns the merged view.
func (a *Aggregator) Snapshot(ctx context.Context, limit int) Snapshot {
	start := time.Now()
	limit = a.ClampLimit(limit)

	ctx, span := monitor.GetGlobalTracer().Start(ctx, "monitor.snapshot")
	defer span.End()
	span.SetAttributes(attribute.Int("snapshot.limit", limit))

	snap := Snapshot{
		TS:    time.Now().UnixMilli(),
		Limit: limit,
	}

	var wg sync.WaitGroup
	read := func(file string, dst *[]event.Raw) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raws, err := a.store.ReadLast(file, limit)
			if err != nil || raws == nil {
				raws = []event.Raw{}
			}
			*dst = raws
		}()
	}

	read(config.SystemLog, &snap.System)
	read(config.ProcessLog, &snap.Processes)
	read(config.NetworkLog, &snap.Network)
	read(config.ClaudeTelemetryLog, &snap.ClaudeTelemetry)
	read(config.ClaudeLocalLog, &snap.ClaudeLocal)
	read(config.CodexTelemetryLog, &snap.CodexTelemetry)
	read(config.CodexLocalLog, &snap.CodexLocal)

	wg.Add(1)
	go func() {
		defer wg.Done()
		snap.Mode = a.detector.Detect(ctx)
	}()

	wg.Wait()

	span.SetAttributes(attribute.String("snapshot.mode", string(snap.Mode.Mode)))
	monitor.GetGlobalMetrics().RecordSnapshotLatency(ctx, float64(time.Since(start).Milliseconds()))
	return snap
}
