// Package config holds the environment-tunable knobs shared by the
// monitor daemon: sampling intervals, ports, the data directory, and
// request-limit bounds. Every value has a default; environment
// variables override defaults, flags override both.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Log file names inside the data directory, one per event family.
const (
	SystemLog          = "system.jsonl"
	ProcessLog         = "processes.jsonl"
	NetworkLog         = "network.jsonl"
	ClaudeTelemetryLog = "claude_telemetry.jsonl"
	ClaudeLocalLog     = "claude_local.jsonl"
	CodexTelemetryLog  = "codex_telemetry.jsonl"
	CodexLocalLog      = "codex_local.jsonl"
	WatchStateFile     = "watching.json"
)

// Config is the daemon configuration.
type Config struct {
	DataDir    string
	APIAddr    string
	IngestAddr string

	SystemInterval  time.Duration
	ProcessInterval time.Duration
	LatencyInterval time.Duration
	LocalInterval   time.Duration

	RotationInterval time.Duration
	RotationMaxLines int

	SnapshotLimitMin     int
	SnapshotLimitMax     int
	SnapshotLimitDefault int

	ClaudeDir string
	CodexDir  string

	LatencyEndpoints   []string
	WatcherKeywords    []string
	TopProcessCount    int
	MaxSessionsPerTick int

	ProbeTimeout    time.Duration
	TelemetryWindow time.Duration

	DiagnoseCommand []string
	DiagnoseTimeout time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:    filepath.Join(home, ".claude-monitor"),
		APIAddr:    "127.0.0.1:8181",
		IngestAddr: "127.0.0.1:4318",

		SystemInterval:  5 * time.Second,
		ProcessInterval: 5 * time.Second,
		LatencyInterval: 10 * time.Second,
		LocalInterval:   30 * time.Second,

		RotationInterval: 5 * time.Minute,
		RotationMaxLines: 500,

		SnapshotLimitMin:     5,
		SnapshotLimitMax:     200,
		SnapshotLimitDefault: 50,

		ClaudeDir: filepath.Join(home, ".claude"),
		CodexDir:  filepath.Join(home, ".codex"),

		LatencyEndpoints: []string{
			"https://api.anthropic.com",
			"https://api.openai.com",
			"https://api.github.com",
		},
		WatcherKeywords:    []string{"claude", "codex", "node", "bun"},
		TopProcessCount:    10,
		MaxSessionsPerTick: 5,

		ProbeTimeout:    2 * time.Second,
		TelemetryWindow: 5 * time.Minute,

		DiagnoseCommand: []string{"claude", "-p"},
		DiagnoseTimeout: 60 * time.Second,
	}
}

// FromEnv returns the default configuration with CLAUDE_MONITOR_*
// environment overrides applied.
func FromEnv() Config {
	cfg := Default()

	cfg.DataDir = envString("CLAUDE_MONITOR_DATA_DIR", cfg.DataDir)
	cfg.APIAddr = envString("CLAUDE_MONITOR_API_ADDR", cfg.APIAddr)
	cfg.IngestAddr = envString("CLAUDE_MONITOR_INGEST_ADDR", cfg.IngestAddr)

	cfg.SystemInterval = envDuration("CLAUDE_MONITOR_SYSTEM_INTERVAL", cfg.SystemInterval)
	cfg.ProcessInterval = envDuration("CLAUDE_MONITOR_PROCESS_INTERVAL", cfg.ProcessInterval)
	cfg.LatencyInterval = envDuration("CLAUDE_MONITOR_LATENCY_INTERVAL", cfg.LatencyInterval)
	cfg.LocalInterval = envDuration("CLAUDE_MONITOR_LOCAL_INTERVAL", cfg.LocalInterval)

	cfg.RotationInterval = envDuration("CLAUDE_MONITOR_ROTATION_INTERVAL", cfg.RotationInterval)
	cfg.RotationMaxLines = envInt("CLAUDE_MONITOR_ROTATION_MAX_LINES", cfg.RotationMaxLines)

	cfg.SnapshotLimitMin = envInt("CLAUDE_MONITOR_LIMIT_MIN", cfg.SnapshotLimitMin)
	cfg.SnapshotLimitMax = envInt("CLAUDE_MONITOR_LIMIT_MAX", cfg.SnapshotLimitMax)
	cfg.SnapshotLimitDefault = envInt("CLAUDE_MONITOR_LIMIT_DEFAULT", cfg.SnapshotLimitDefault)

	cfg.ClaudeDir = envString("CLAUDE_MONITOR_CLAUDE_DIR", cfg.ClaudeDir)
	cfg.CodexDir = envString("CLAUDE_MONITOR_CODEX_DIR", cfg.CodexDir)

	cfg.LatencyEndpoints = envList("CLAUDE_MONITOR_LATENCY_ENDPOINTS", cfg.LatencyEndpoints)
	cfg.WatcherKeywords = envList("CLAUDE_MONITOR_WATCHER_KEYWORDS", cfg.WatcherKeywords)
	cfg.MaxSessionsPerTick = envInt("CLAUDE_MONITOR_MAX_SESSIONS", cfg.MaxSessionsPerTick)

	cfg.DiagnoseCommand = envList("CLAUDE_MONITOR_DIAGNOSE_COMMAND", cfg.DiagnoseCommand)
	cfg.DiagnoseTimeout = envDuration("CLAUDE_MONITOR_DIAGNOSE_TIMEOUT", cfg.DiagnoseTimeout)

	return cfg
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	def := Default()
	result := c
	if result.DataDir == "" {
		result.DataDir = def.DataDir
	}
	if result.APIAddr == "" {
		result.APIAddr = def.APIAddr
	}
	if result.IngestAddr == "" {
		result.IngestAddr = def.IngestAddr
	}
	if result.SystemInterval <= 0 {
		result.SystemInterval = def.SystemInterval
	}
	if result.ProcessInterval <= 0 {
		result.ProcessInterval = def.ProcessInterval
	}
	if result.LatencyInterval <= 0 {
		result.LatencyInterval = def.LatencyInterval
	}
	if result.LocalInterval <= 0 {
		result.LocalInterval = def.LocalInterval
	}
	if result.RotationInterval <= 0 {
		result.RotationInterval = def.RotationInterval
	}
	if result.RotationMaxLines <= 0 {
		result.RotationMaxLines = def.RotationMaxLines
	}
	if result.SnapshotLimitMin <= 0 {
		result.SnapshotLimitMin = def.SnapshotLimitMin
	}
	if result.SnapshotLimitMax <= 0 {
		result.SnapshotLimitMax = def.SnapshotLimitMax
	}
	if result.SnapshotLimitDefault <= 0 {
		result.SnapshotLimitDefault = def.SnapshotLimitDefault
	}
	if len(result.LatencyEndpoints) == 0 {
		result.LatencyEndpoints = def.LatencyEndpoints
	}
	if len(result.WatcherKeywords) == 0 {
		result.WatcherKeywords = def.WatcherKeywords
	}
	if result.TopProcessCount <= 0 {
		result.TopProcessCount = def.TopProcessCount
	}
	if result.MaxSessionsPerTick <= 0 {
		result.MaxSessionsPerTick = def.MaxSessionsPerTick
	}
	if result.ProbeTimeout <= 0 {
		result.ProbeTimeout = def.ProbeTimeout
	}
	if result.TelemetryWindow <= 0 {
		result.TelemetryWindow = def.TelemetryWindow
	}
	if len(result.DiagnoseCommand) == 0 {
		result.DiagnoseCommand = def.DiagnoseCommand
	}
	if result.DiagnoseTimeout <= 0 {
		result.DiagnoseTimeout = def.DiagnoseTimeout
	}
	return result
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
