// Package scoring converts the latest record from each monitored
// source into 0-100 suspicion scores and ranks the probable cause of a
// slowdown. The engine is a pure function: it never reads files, never
// errors, and treats missing fields as zero signal.
package scoring

import (
	"fmt"

	"github.com/AntMonss/claude-monitor/internal/event"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusUnknown Status = "unknown"
)

// Source identifiers, in ranking tie-break order.
const (
	SourceCPU             = "cpu"
	SourceMemory          = "memory"
	SourceSwap            = "swap"
	SourceAPILatency      = "api_latency"
	SourceNetwork         = "network"
	SourceTopProcess      = "top_process"
	SourceSessionRatio    = "session_ratio"
	SourceSessionDuration = "session_duration"
	SourceBlockedTasks    = "blocked_tasks"
)

// Tunable thresholds. Each rule scores high when the metric crosses the
// error bound, low when it crosses the warn bound, zero otherwise.
// Bounds are exclusive: a value exactly at the bound does not fire.
const (
	cpuErrorPct, cpuWarnPct           = 80.0, 60.0
	memErrorPct, memWarnPct           = 90.0, 75.0
	swapErrorBytes, swapWarnBytes     = uint64(4 << 30), uint64(1 << 30)
	latencyErrorMs, latencyWarnMs     = 10000.0, 5000.0
	procErrorPct, procWarnPct         = 50.0, 30.0
	procInclusionPct                  = 20.0
	ratioErrorBound, ratioWarnBound   = 10.0, 7.0
	durationErrorMin, durationWarnMin = 480.0, 240.0
	blockedErrorCount, blockedWarnCnt = 5, 2
)

// SourceScore is one source's diagnosis.
type SourceScore struct {
	SourceID string `json:"sourceId"`
	Status   Status `json:"status"`
	Score    int    `json:"score"`
	Detail   string `json:"detail,omitempty"`
}

// Diagnosis is the engine's full output: all sources, the top-ranked
// one, and a summary tier. AwaitingData is set when no source has any
// sample yet; the summary is then warning regardless of scores.
type Diagnosis struct {
	Sources      []SourceScore `json:"sources"`
	TopIssue     *SourceScore  `json:"topIssue,omitempty"`
	Summary      Status        `json:"summary"`
	AwaitingData bool          `json:"awaitingData,omitempty"`
}

// Inputs carries the latest record from each source. A nil field means
// that source has no data at all.
type Inputs struct {
	System    *event.SystemMetrics
	Processes *event.ProcessSnapshot
	Network   *event.LatencyProbe   // worst of each endpoint's latest probe
	Telemetry *event.TelemetryEvent // most recent api_request
	Local     *event.LocalSnapshot
}

// Score produces a diagnosis from the latest records.
func Score(in Inputs) Diagnosis {
	sources := []SourceScore{
		scoreCPU(in.System),
		scoreMemory(in.System),
		scoreSwap(in.System),
		scoreAPILatency(in.Telemetry),
		scoreNetwork(in.Network),
		scoreTopProcess(in.Processes),
		scoreSessionRatio(in.Local),
		scoreSessionDuration(in.Local),
		scoreBlockedTasks(in.Local),
	}

	d := Diagnosis{Sources: sources}

	// Highest score among sources with data wins; unknown sources are
	// never ranked. Ties keep the earlier source.
	top := -1
	for i, s := range sources {
		if s.Status == StatusUnknown {
			continue
		}
		if top < 0 || s.Score > sources[top].Score {
			top = i
		}
	}

	if top < 0 {
		d.Summary = StatusWarning
		d.AwaitingData = true
		return d
	}

	d.TopIssue = &sources[top]
	switch {
	case sources[top].Score >= 80:
		d.Summary = StatusError
	case sources[top].Score >= 40:
		d.Summary = StatusWarning
	default:
		d.Summary = StatusOK
	}
	return d
}

func statusFor(score int) Status {
	switch {
	case score >= 80:
		return StatusError
	case score >= 40:
		return StatusWarning
	default:
		return StatusOK
	}
}

func unknown(sourceID string) SourceScore {
	return SourceScore{SourceID: sourceID, Status: StatusUnknown}
}

func scored(sourceID string, score int, detail string) SourceScore {
	return SourceScore{
		SourceID: sourceID,
		Status:   statusFor(score),
		Score:    score,
		Detail:   detail,
	}
}

func scoreCPU(sys *event.SystemMetrics) SourceScore {
	if sys == nil {
		return unknown(SourceCPU)
	}
	score := 0
	switch {
	case sys.CPULoad > cpuErrorPct:
		score = 90
	case sys.CPULoad > cpuWarnPct:
		score = 50
	}
	return scored(SourceCPU, score, fmt.Sprintf("cpu load %.1f%%", sys.CPULoad))
}

func scoreMemory(sys *event.SystemMetrics) SourceScore {
	if sys == nil {
		return unknown(SourceMemory)
	}
	pct := 0.0
	if sys.MemTotal > 0 {
		pct = float64(sys.MemUsed) / float64(sys.MemTotal) * 100
	}
	score := 0
	switch {
	case pct > memErrorPct:
		score = 85
	case pct > memWarnPct:
		score = 40
	}
	return scored(SourceMemory, score, fmt.Sprintf("memory used %.1f%%", pct))
}

func scoreSwap(sys *event.SystemMetrics) SourceScore {
	if sys == nil {
		return unknown(SourceSwap)
	}
	score := 0
	switch {
	case sys.SwapUsed > swapErrorBytes:
		score = 80
	case sys.SwapUsed > swapWarnBytes:
		score = 35
	}
	return scored(SourceSwap, score, fmt.Sprintf("swap used %.1f GiB", float64(sys.SwapUsed)/(1<<30)))
}

func scoreAPILatency(te *event.TelemetryEvent) SourceScore {
	if te == nil {
		return unknown(SourceAPILatency)
	}
	score := 0
	switch {
	case te.DurationMs > latencyErrorMs:
		score = 95
	case te.DurationMs > latencyWarnMs:
		score = 70
	}
	return scored(SourceAPILatency, score, fmt.Sprintf("last api request %.0fms", te.DurationMs))
}

func scoreNetwork(p *event.LatencyProbe) SourceScore {
	if p == nil {
		return unknown(SourceNetwork)
	}
	if !p.OK {
		detail := fmt.Sprintf("%s unreachable", p.Endpoint)
		if p.Error != "" {
			detail = fmt.Sprintf("%s unreachable: %s", p.Endpoint, p.Error)
		}
		return scored(SourceNetwork, 95, detail)
	}
	score := 0
	switch {
	case float64(p.LatencyMs) > latencyErrorMs:
		score = 95
	case float64(p.LatencyMs) > latencyWarnMs:
		score = 70
	}
	return scored(SourceNetwork, score, fmt.Sprintf("%s responded in %dms", p.Endpoint, p.LatencyMs))
}

func scoreTopProcess(ps *event.ProcessSnapshot) SourceScore {
	if ps == nil || len(ps.Top) == 0 {
		return unknown(SourceTopProcess)
	}
	top := ps.Top[0]
	for _, p := range ps.Top[1:] {
		if p.CPUPercent > top.CPUPercent {
			top = p
		}
	}
	score := 0
	if top.CPUPercent > procInclusionPct {
		switch {
		case top.CPUPercent > procErrorPct:
			score = 75
		case top.CPUPercent > procWarnPct:
			score = 45
		}
	}
	return scored(SourceTopProcess, score, fmt.Sprintf("%s at %.1f%% cpu", top.Name, top.CPUPercent))
}

func scoreSessionRatio(ls *event.LocalSnapshot) SourceScore {
	if ls == nil {
		return unknown(SourceSessionRatio)
	}
	score := 0
	switch {
	case ls.Ratio > ratioErrorBound:
		score = 85
	case ls.Ratio > ratioWarnBound:
		score = 55
	}
	return scored(SourceSessionRatio, score, fmt.Sprintf("%.1f messages per tool call", ls.Ratio))
}

func scoreSessionDuration(ls *event.LocalSnapshot) SourceScore {
	if ls == nil {
		return unknown(SourceSessionDuration)
	}
	score := 0
	switch {
	case ls.DurationMin > durationErrorMin:
		score = 70
	case ls.DurationMin > durationWarnMin:
		score = 40
	}
	return scored(SourceSessionDuration, score, fmt.Sprintf("session running %.0f min", ls.DurationMin))
}

func scoreBlockedTasks(ls *event.LocalSnapshot) SourceScore {
	if ls == nil {
		return unknown(SourceBlockedTasks)
	}
	score := 0
	switch {
	case ls.TasksBlocked > blockedErrorCount:
		score = 70
	case ls.TasksBlocked > blockedWarnCnt:
		score = 35
	}
	return scored(SourceBlockedTasks, score, fmt.Sprintf("%d blocked tasks", ls.TasksBlocked))
}
