package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AntMonss/claude-monitor/internal/event"
	"github.com/AntMonss/claude-monitor/internal/patterns"
)

// writeClaudeTranscript writes a minimal session transcript with the
// given message and tool-use counts spread over spanMin minutes.
func writeClaudeTranscript(t *testing.T, dir, sessionID string, messages, toolUses int, spanMin int) string {
	t.Helper()
	projDir := filepath.Join(dir, "projects", "demo")
	if err := os.MkdirAll(projDir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	path := filepath.Join(projDir, sessionID+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer f.Close()

	start := time.Now().Add(-time.Duration(spanMin) * time.Minute)
	step := time.Duration(spanMin) * time.Minute
	if messages > 1 {
		step = time.Duration(spanMin) * time.Minute / time.Duration(messages-1)
	}

	for i := 0; i < messages; i++ {
		rec := map[string]any{
			"type":      "user",
			"sessionId": sessionID,
			"timestamp": start.Add(time.Duration(i) * step).Format(time.RFC3339),
			"message":   map[string]any{"role": "user", "content": []any{map[string]any{"type": "text", "text": "hi"}}},
		}
		if i < toolUses {
			rec["type"] = "assistant"
			rec["message"] = map[string]any{
				"role":    "assistant",
				"content": []any{map[string]any{"type": "tool_use", "name": "Bash"}},
			}
		}
		line, _ := json.Marshal(rec)
		fmt.Fprintf(f, "%s\n", line)
	}
	return path
}

func writeClaudeTodos(t *testing.T, dir, sessionID string, pending, blocked int) {
	t.Helper()
	todosDir := filepath.Join(dir, "todos")
	if err := os.MkdirAll(todosDir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	var tasks []map[string]string
	for i := 0; i < pending; i++ {
		tasks = append(tasks, map[string]string{"content": "task", "status": "pending"})
	}
	for i := 0; i < blocked; i++ {
		tasks = append(tasks, map[string]string{"content": "task", "status": "blocked"})
	}
	data, _ := json.Marshal(tasks)
	if err := os.WriteFile(filepath.Join(todosDir, sessionID+"-agent.json"), data, 0o644); err != nil {
		t.Fatalf("write todos failed: %v", err)
	}
}

func collectLocalSnapshots(t *testing.T, s Sampler) []event.LocalSnapshot {
	t.Helper()
	samples, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	out := make([]event.LocalSnapshot, 0, len(samples))
	for _, sample := range samples {
		snap, ok := sample.Record.(event.LocalSnapshot)
		if !ok {
			t.Fatalf("unexpected record type %T", sample.Record)
		}
		out = append(out, snap)
	}
	return out
}

func TestClaudeLocalMissingDirYieldsNothing(t *testing.T) {
	s := NewClaudeLocalSampler("claude_local.jsonl", filepath.Join(t.TempDir(), "absent"), 5)
	samples, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect on missing dir returned error: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("expected no samples, got %d", len(samples))
	}
}

func TestClaudeLocalSessionCounts(t *testing.T) {
	dir := t.TempDir()
	writeClaudeTranscript(t, dir, "sess-1", 20, 4, 30)
	writeClaudeTodos(t, dir, "sess-1", 2, 1)

	snaps := collectLocalSnapshots(t, NewClaudeLocalSampler("claude_local.jsonl", dir, 5))
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}

	snap := snaps[0]
	if snap.SessionID != "sess-1" {
		t.Errorf("sessionID = %q, want sess-1", snap.SessionID)
	}
	if snap.MessageCount != 20 || snap.ToolCallCount != 4 {
		t.Errorf("counts = %d msgs / %d tools, want 20/4", snap.MessageCount, snap.ToolCallCount)
	}
	if snap.Ratio != 5.0 {
		t.Errorf("ratio = %v, want 5.0", snap.Ratio)
	}
	if snap.DurationMin < 29 || snap.DurationMin > 31 {
		t.Errorf("duration = %v minutes, want ~30", snap.DurationMin)
	}
	if snap.TasksPending != 2 || snap.TasksBlocked != 1 {
		t.Errorf("tasks = %d pending / %d blocked, want 2/1", snap.TasksPending, snap.TasksBlocked)
	}
	if len(snap.Patterns) != 0 {
		t.Errorf("quiet session fired patterns: %v", snap.Patterns)
	}
}

func TestClaudeLocalDetectsHighRatio(t *testing.T) {
	dir := t.TempDir()
	// 60 messages, 5 tool calls: ratio 12 is above the error cutoff.
	writeClaudeTranscript(t, dir, "sess-busy", 60, 5, 10)

	snaps := collectLocalSnapshots(t, NewClaudeLocalSampler("claude_local.jsonl", dir, 5))
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if got := snaps[0].Patterns[patterns.HighMessageToolRatio]; got != "error" {
		t.Errorf("ratio pattern = %q, want error (patterns: %v)", got, snaps[0].Patterns)
	}
}

func TestClaudeLocalCapsSessionsPerTick(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 6; i++ {
		writeClaudeTranscript(t, dir, fmt.Sprintf("sess-%d", i), 3, 1, 5)
	}

	snaps := collectLocalSnapshots(t, NewClaudeLocalSampler("claude_local.jsonl", dir, 2))
	if len(snaps) != 2 {
		t.Errorf("expected session cap of 2, got %d snapshots", len(snaps))
	}
}

func TestClaudeTranscriptSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeClaudeTranscript(t, dir, "sess-x", 4, 0, 5)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	f.WriteString("{broken json\n")
	f.Close()

	stats := parseClaudeTranscript(path)
	if stats.MessageCount != 4 {
		t.Errorf("messageCount = %d, want 4 (malformed line must be skipped)", stats.MessageCount)
	}
}
