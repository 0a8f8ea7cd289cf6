package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		out = append(out, m)
	}
	return out
}

func TestLogTickErrorFields(t *testing.T) {
	var buf bytes.Buffer
	el := NewEventLoggerWithWriter(&buf)

	el.LogTickError("system", errors.New("sample failed"))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(lines))
	}
	if lines[0]["msg"] != "tick_error" {
		t.Errorf("msg = %v, want tick_error", lines[0]["msg"])
	}
	if lines[0]["collector"] != "system" {
		t.Errorf("collector = %v, want system", lines[0]["collector"])
	}
	if lines[0]["error"] != "sample failed" {
		t.Errorf("error = %v, want sample failed", lines[0]["error"])
	}
}

func TestGlobalLoggerFallsBackToNoop(t *testing.T) {
	SetGlobalEventLogger(nil)
	el := GetGlobalEventLogger()
	if el == nil {
		t.Fatal("expected noop logger, got nil")
	}
	// Must not panic.
	el.LogWatchToggled(true)
}

func TestSetGlobalEventLogger(t *testing.T) {
	var buf bytes.Buffer
	el := NewEventLoggerWithWriter(&buf)
	SetGlobalEventLogger(el)
	defer SetGlobalEventLogger(nil)

	GetGlobalEventLogger().LogRotated("system.jsonl", 500)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "log_rotated" {
		t.Fatalf("expected log_rotated line, got %v", lines)
	}
}
