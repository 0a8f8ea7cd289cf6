package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AntMonss/claude-monitor/internal/event"
	"github.com/AntMonss/claude-monitor/internal/patterns"
)

// CodexLocalSampler is the Codex counterpart of ClaudeLocalSampler:
// it scrapes rollout transcripts under ~/.codex/sessions and the Codex
// prompt history. Codex exposes no task files, so task counts stay
// zero.
type CodexLocalSampler struct {
	file        string
	dir         string
	maxSessions int
}

// NewCodexLocalSampler creates a sampler over the Codex home directory
// (normally ~/.codex) writing to file.
func NewCodexLocalSampler(file, codexDir string, maxSessions int) *CodexLocalSampler {
	return &CodexLocalSampler{file: file, dir: codexDir, maxSessions: maxSessions}
}

// Name implements Sampler.
func (s *CodexLocalSampler) Name() string { return "codexlocal" }

// Collect implements Sampler.
func (s *CodexLocalSampler) Collect(ctx context.Context) ([]Sample, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, nil
	}

	promptsPerHour := float64(countRecentEntries(
		filepath.Join(s.dir, "history.jsonl"), "ts", time.Hour, localTailWindow))

	// Rollouts live either flat or under date subdirectories.
	rollouts := newestFiles([]string{
		filepath.Join(s.dir, "sessions", "rollout-*.jsonl"),
		filepath.Join(s.dir, "sessions", "*", "*", "*", "rollout-*.jsonl"),
	}, s.maxSessions)

	now := time.Now().UnixMilli()
	var samples []Sample
	for _, path := range rollouts {
		if ctx.Err() != nil {
			return samples, ctx.Err()
		}
		stats := parseCodexRollout(path)
		if stats.SessionID == "" {
			continue
		}

		rec := event.LocalSnapshot{
			TS:            now,
			Event:         "session_snapshot",
			Agent:         event.AgentCodex,
			SessionID:     stats.SessionID,
			MessageCount:  stats.MessageCount,
			ToolCallCount: stats.ToolCallCount,
			Ratio:         stats.ratio(),
			DurationMin:   stats.durationMin(),
			PromptsPerHr:  promptsPerHour,
		}
		rec.Patterns = patterns.Detect(patterns.SessionSignals{
			MessageToolRatio: rec.Ratio,
			DurationMin:      rec.DurationMin,
			PromptsPerHour:   rec.PromptsPerHr,
		})
		samples = append(samples, Sample{File: s.file, Record: rec})
	}
	return samples, nil
}

// parseCodexRollout tail-reads one rollout transcript. Messages and
// function calls arrive as response_item records with a typed payload.
func parseCodexRollout(path string) sessionStats {
	stats := sessionStats{
		SessionID: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	for _, rec := range tailJSONLines(path, localTailWindow) {
		if ts := parseAnyTS(rec["timestamp"]); ts > 0 {
			if stats.FirstTS == 0 || ts < stats.FirstTS {
				stats.FirstTS = ts
			}
			if ts > stats.LastTS {
				stats.LastTS = ts
			}
		}

		payload, _ := rec["payload"].(map[string]any)
		if payload == nil {
			continue
		}
		if id, ok := payload["id"].(string); ok && rec["type"] == "session_meta" && id != "" {
			stats.SessionID = id
		}
		switch payload["type"] {
		case "message":
			stats.MessageCount++
		case "function_call", "local_shell_call", "custom_tool_call":
			stats.ToolCallCount++
		}
	}
	return stats
}
