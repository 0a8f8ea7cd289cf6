// Package mode decides whether the monitor is receiving live push
// telemetry (active) or must rely on scraped local files (passive).
// Active requires both a responsive ingest listener and a recent
// telemetry event: a healthy listener nobody exports to is still
// passive.
package mode

import (
	"context"
	"net/http"
	"time"

	"github.com/AntMonss/claude-monitor/internal/config"
	"github.com/AntMonss/claude-monitor/internal/event"
	"github.com/AntMonss/claude-monitor/internal/events"
	"github.com/AntMonss/claude-monitor/internal/logstore"
)

type Mode string

const (
	Active  Mode = "active"
	Passive Mode = "passive"
)

// Result is one liveness determination.
type Result struct {
	Mode        Mode  `json:"mode"`
	ProbeOK     bool  `json:"probeOk"`
	LastEventTS int64 `json:"lastEventTs,omitempty"`
}

type Detector struct {
	client       *http.Client
	healthURL    string
	store        *logstore.Store
	files        []string
	window       time.Duration
	probeTimeout time.Duration
}

// NewDetector creates a detector probing healthURL and checking the
// telemetry logs in store for events newer than window.
func NewDetector(healthURL string, store *logstore.Store, probeTimeout, window time.Duration) *Detector {
	return &Detector{
		client:       &http.Client{},
		healthURL:    healthURL,
		store:        store,
		files:        []string{config.ClaudeTelemetryLog, config.CodexTelemetryLog},
		window:       window,
		probeTimeout: probeTimeout,
	}
}

// Detect runs one liveness check.
func (d *Detector) Detect(ctx context.Context) Result {
	res := Result{
		ProbeOK:     d.probe(ctx),
		LastEventTS: d.newestEventTS(),
	}

	cutoff := time.Now().Add(-d.window).UnixMilli()
	if res.ProbeOK && res.LastEventTS >= cutoff && res.LastEventTS > 0 {
		res.Mode = Active
	} else {
		res.Mode = Passive
	}

	ageMs := int64(-1)
	if res.LastEventTS > 0 {
		ageMs = time.Now().UnixMilli() - res.LastEventTS
	}
	events.GetGlobalEventLogger().LogModeDetected(string(res.Mode), res.ProbeOK, ageMs)

	return res
}

func (d *Detector) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, d.healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// newestEventTS returns the newest timestamp across all telemetry
// logs, 0 when none have a readable record.
func (d *Detector) newestEventTS() int64 {
	var newest int64
	for _, file := range d.files {
		raws, err := d.store.ReadLast(file, 1)
		if err != nil || len(raws) == 0 {
			continue
		}
		if ts := event.TS(raws[len(raws)-1]); ts > newest {
			newest = ts
		}
	}
	return newest
}
