// Package event defines the record families written to the append-only
// logs. Every record is one JSON object per line, always carrying a
// millisecond epoch timestamp in "ts". Shapes vary per family and are
// tagged by the "event" (or "measurement") field; consumers must treat
// missing fields as absent, never as an error.
package event

import "encoding/json"

// Agent identifies which coding agent a telemetry or local-snapshot
// record belongs to.
type Agent string

const (
	AgentClaude Agent = "claude"
	AgentCodex  Agent = "codex"
)

// SystemMetrics is one host-level resource sample.
type SystemMetrics struct {
	TS          int64   `json:"ts"`
	Measurement string  `json:"measurement"` // always "system"
	CPULoad     float64 `json:"cpuLoad"`     // total CPU percent, 0-100
	CPUUser     float64 `json:"cpuUser"`
	CPUSystem   float64 `json:"cpuSystem"`
	LoadAvg1    float64 `json:"loadAvg1"`
	MemUsed     uint64  `json:"memUsed"`
	MemTotal    uint64  `json:"memTotal"`
	SwapUsed    uint64  `json:"swapUsed"`
	DiskRead    uint64  `json:"diskReadBytes"` // cumulative counters
	DiskWrite   uint64  `json:"diskWriteBytes"`
	NetRxRate   float64 `json:"netRxRate"` // bytes/sec over the last tick
	NetTxRate   float64 `json:"netTxRate"`
	Watchers    int     `json:"watcherCount"` // matched agent-related processes
}

// ProcessInfo is one row of a process snapshot.
type ProcessInfo struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpuPercent"`
	MemRSS     uint64  `json:"memRss"`
}

// ProcessSnapshot is the top-N processes by CPU plus the subset whose
// names match known agent-related keywords.
type ProcessSnapshot struct {
	TS       int64         `json:"ts"`
	Event    string        `json:"event"` // always "processes"
	Top      []ProcessInfo `json:"top"`
	Watchers []ProcessInfo `json:"watchers"`
}

// LatencyProbe is one round-trip measurement against an external API
// host.
type LatencyProbe struct {
	TS        int64  `json:"ts"`
	Event     string `json:"event"` // always "latency"
	Endpoint  string `json:"endpoint"`
	LatencyMs int64  `json:"latencyMs"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// TelemetryEvent is one push-telemetry record flattened from an OTLP
// log record (active mode). Kind carries the event name with the
// exporter prefix stripped: api_request, tool_result, api_error, ...
type TelemetryEvent struct {
	TS           int64   `json:"ts"`
	Event        string  `json:"event"`
	Agent        Agent   `json:"agent"`
	SessionID    string  `json:"sessionId,omitempty"`
	DurationMs   float64 `json:"durationMs,omitempty"`
	Model        string  `json:"model,omitempty"`
	InputTokens  int64   `json:"inputTokens,omitempty"`
	OutputTokens int64   `json:"outputTokens,omitempty"`
	CostUSD      float64 `json:"costUsd,omitempty"`
	Tool         string  `json:"tool,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// LocalSnapshot is one per-session summary scraped from an agent's
// local files (passive mode). Patterns maps detected anomaly names to
// a severity tier ("warning" or "error").
type LocalSnapshot struct {
	TS            int64             `json:"ts"`
	Event         string            `json:"event"` // always "session_snapshot"
	Agent         Agent             `json:"agent"`
	SessionID     string            `json:"sessionId"`
	MessageCount  int               `json:"messageCount"`
	ToolCallCount int               `json:"toolCallCount"`
	Ratio         float64           `json:"messageToolRatio"`
	DurationMin   float64           `json:"durationMin"`
	TasksPending  int               `json:"tasksPending"`
	TasksBlocked  int               `json:"tasksBlocked"`
	PromptsPerHr  float64           `json:"promptsPerHour"`
	Patterns      map[string]string `json:"patterns,omitempty"`
}

// Raw is an undecoded log record. Consumers that only need ts or a few
// fields decode it leniently instead of assuming a family.
type Raw = json.RawMessage

// TS extracts the millisecond timestamp from a raw record, returning 0
// when the field is missing or the record is malformed.
func TS(raw Raw) int64 {
	var probe struct {
		TS int64 `json:"ts"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0
	}
	return probe.TS
}

// Kind extracts the discriminant field ("event", falling back to
// "measurement") from a raw record. Empty string means unknown.
func Kind(raw Raw) string {
	var probe struct {
		Event       string `json:"event"`
		Measurement string `json:"measurement"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	if probe.Event != "" {
		return probe.Event
	}
	return probe.Measurement
}
