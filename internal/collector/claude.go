package collector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AntMonss/claude-monitor/internal/event"
	"github.com/AntMonss/claude-monitor/internal/patterns"
)

// ClaudeLocalSampler scrapes Claude Code's local files when no push
// telemetry is flowing: project session transcripts for message and
// tool counts, todo files for task state, and the prompt history for
// prompt frequency. Each tick emits one snapshot per active session,
// newest first.
type ClaudeLocalSampler struct {
	file        string
	dir         string
	maxSessions int
}

// NewClaudeLocalSampler creates a sampler over the Claude home
// directory (normally ~/.claude) writing to file.
func NewClaudeLocalSampler(file, claudeDir string, maxSessions int) *ClaudeLocalSampler {
	return &ClaudeLocalSampler{file: file, dir: claudeDir, maxSessions: maxSessions}
}

// Name implements Sampler.
func (s *ClaudeLocalSampler) Name() string { return "claudelocal" }

// Collect implements Sampler. A missing Claude directory yields no
// samples and no error; the agent may simply not be installed.
func (s *ClaudeLocalSampler) Collect(ctx context.Context) ([]Sample, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, nil
	}

	promptsPerHour := float64(countRecentEntries(
		filepath.Join(s.dir, "history.jsonl"), "timestamp", time.Hour, localTailWindow))

	transcripts := newestFiles(
		[]string{filepath.Join(s.dir, "projects", "*", "*.jsonl")}, s.maxSessions)

	now := time.Now().UnixMilli()
	var samples []Sample
	for _, path := range transcripts {
		if ctx.Err() != nil {
			return samples, ctx.Err()
		}
		stats := parseClaudeTranscript(path)
		if stats.SessionID == "" {
			continue
		}
		pending, blocked := readClaudeTasks(filepath.Join(s.dir, "todos"), stats.SessionID)

		rec := event.LocalSnapshot{
			TS:            now,
			Event:         "session_snapshot",
			Agent:         event.AgentClaude,
			SessionID:     stats.SessionID,
			MessageCount:  stats.MessageCount,
			ToolCallCount: stats.ToolCallCount,
			Ratio:         stats.ratio(),
			DurationMin:   stats.durationMin(),
			TasksPending:  pending,
			TasksBlocked:  blocked,
			PromptsPerHr:  promptsPerHour,
		}
		rec.Patterns = patterns.Detect(patterns.SessionSignals{
			MessageToolRatio: rec.Ratio,
			DurationMin:      rec.DurationMin,
			BlockedTasks:     rec.TasksBlocked,
			PromptsPerHour:   rec.PromptsPerHr,
		})
		samples = append(samples, Sample{File: s.file, Record: rec})
	}
	return samples, nil
}

// parseClaudeTranscript tail-reads one session transcript and counts
// user/assistant messages and tool_use content blocks. The session ID
// comes from the records when present, else from the file name.
func parseClaudeTranscript(path string) sessionStats {
	stats := sessionStats{
		SessionID: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	for _, rec := range tailJSONLines(path, localTailWindow) {
		recType, _ := rec["type"].(string)
		if recType != "user" && recType != "assistant" {
			continue
		}
		stats.MessageCount++

		if id, ok := rec["sessionId"].(string); ok && id != "" {
			stats.SessionID = id
		}
		if ts := parseAnyTS(rec["timestamp"]); ts > 0 {
			if stats.FirstTS == 0 || ts < stats.FirstTS {
				stats.FirstTS = ts
			}
			if ts > stats.LastTS {
				stats.LastTS = ts
			}
		}

		message, _ := rec["message"].(map[string]any)
		content, _ := message["content"].([]any)
		for _, item := range content {
			block, _ := item.(map[string]any)
			if blockType, _ := block["type"].(string); blockType == "tool_use" {
				stats.ToolCallCount++
			}
		}
	}
	return stats
}

// readClaudeTasks counts pending and blocked entries across the todo
// files belonging to a session. Missing directory or malformed files
// count as zero.
func readClaudeTasks(todosDir, sessionID string) (pending, blocked int) {
	matches, err := filepath.Glob(filepath.Join(todosDir, sessionID+"*.json"))
	if err != nil {
		return 0, 0
	}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var tasks []struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(data, &tasks); err != nil {
			continue
		}
		for _, t := range tasks {
			switch t.Status {
			case "pending":
				pending++
			case "blocked":
				blocked++
			}
		}
	}
	return pending, blocked
}
