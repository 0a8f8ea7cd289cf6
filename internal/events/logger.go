// Package events provides structured logging for key events in the
// monitor daemon.
package events

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// EventLogger emits JSON log lines for operational events.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger creates a new EventLogger with JSON output to stdout.
func NewEventLogger() *EventLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &EventLogger{logger: slog.New(handler)}
}

// NewEventLoggerWithWriter creates a new EventLogger writing to a
// custom writer. Useful for testing or redirecting output.
func NewEventLoggerWithWriter(w io.Writer) *EventLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &EventLogger{logger: slog.New(handler)}
}

// LogCollectorStarted logs a collector loop starting.
// event: "collector_started"
func (el *EventLogger) LogCollectorStarted(name string, intervalMs int64) {
	el.logger.Info("collector_started",
		"collector", name,
		"interval_ms", intervalMs,
	)
}

// LogCollectorStopped logs a collector loop stopping.
// event: "collector_stopped"
func (el *EventLogger) LogCollectorStopped(name string) {
	el.logger.Info("collector_stopped", "collector", name)
}

// LogTickError logs a failed collector tick. The loop continues.
// event: "tick_error"
func (el *EventLogger) LogTickError(name string, err error) {
	el.logger.Warn("tick_error",
		"collector", name,
		"error", err.Error(),
	)
}

// LogRotated logs a log file truncation.
// event: "log_rotated"
func (el *EventLogger) LogRotated(file string, kept int) {
	el.logger.Info("log_rotated",
		"file", file,
		"kept_lines", kept,
	)
}

// LogModeDetected logs the outcome of a liveness check.
// event: "mode_detected"
func (el *EventLogger) LogModeDetected(mode string, probeOK bool, lastEventAgeMs int64) {
	el.logger.Info("mode_detected",
		"mode", mode,
		"probe_ok", probeOK,
		"last_event_age_ms", lastEventAgeMs,
	)
}

// LogIngestBatch logs one accepted push-telemetry batch.
// event: "ingest_batch"
func (el *EventLogger) LogIngestBatch(agent string, accepted, dropped int) {
	el.logger.Info("ingest_batch",
		"agent", agent,
		"accepted", accepted,
		"dropped", dropped,
	)
}

// LogWatchToggled logs a change of the watching flag.
// event: "watch_toggled"
func (el *EventLogger) LogWatchToggled(enabled bool) {
	el.logger.Info("watch_toggled", "enabled", enabled)
}

// LogDiagnoseFinished logs the outcome of a deep-diagnostic request.
// event: "diagnose_finished"
func (el *EventLogger) LogDiagnoseFinished(requestID string, durationMs int64, err error) {
	if err != nil {
		el.logger.Warn("diagnose_finished",
			"request_id", requestID,
			"duration_ms", durationMs,
			"error", err.Error(),
		)
		return
	}
	el.logger.Info("diagnose_finished",
		"request_id", requestID,
		"duration_ms", durationMs,
	)
}

// Global logger management
var (
	globalLogger *EventLogger
	globalMu     sync.RWMutex
)

// SetGlobalEventLogger sets the global event logger instance.
func SetGlobalEventLogger(l *EventLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalEventLogger returns the global event logger instance.
// If no logger is set, returns a no-op logger.
func GetGlobalEventLogger() *EventLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger
	}
	return NoopEventLogger()
}

// NoopEventLogger returns an event logger that discards all events.
func NoopEventLogger() *EventLogger {
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &EventLogger{logger: slog.New(handler)}
}
