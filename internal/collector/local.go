package collector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/AntMonss/claude-monitor/internal/logstore"
)

// localTailWindow caps how much of a source file a local collector
// scans per tick. Agent transcripts grow without bound; scanning a
// fixed window from the end keeps tick cost flat.
const localTailWindow int64 = 256 * 1024

// sessionStats is what a transcript parser extracts from one session
// file's tail window.
type sessionStats struct {
	SessionID     string
	MessageCount  int
	ToolCallCount int
	FirstTS       int64 // ms, earliest seen inside the window
	LastTS        int64 // ms
}

// durationMin returns the session duration in minutes as observed
// inside the scanned window.
func (s sessionStats) durationMin() float64 {
	if s.LastTS <= s.FirstTS {
		return 0
	}
	return float64(s.LastTS-s.FirstTS) / 60000.0
}

// ratio returns messages per tool call; with zero tool calls the
// message count itself is used so chat-only sessions still register.
func (s sessionStats) ratio() float64 {
	if s.ToolCallCount == 0 {
		return float64(s.MessageCount)
	}
	return float64(s.MessageCount) / float64(s.ToolCallCount)
}

// newestFiles globs the given patterns and returns up to n matches,
// most recently modified first.
func newestFiles(patterns []string, n int) []string {
	type entry struct {
		path    string
		modTime time.Time
	}
	var entries []entry
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			entries = append(entries, entry{path: m, modTime: info.ModTime()})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.After(entries[j].modTime)
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.path
	}
	return paths
}

// tailJSONLines tail-reads path and returns each parseable line as a
// generic map. Malformed lines are skipped.
func tailJSONLines(path string, maxBytes int64) []map[string]any {
	lines, err := logstore.TailLines(path, maxBytes)
	if err != nil {
		return nil
	}
	out := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// normalizeTS converts a numeric timestamp in seconds or milliseconds
// to milliseconds. Values that are clearly second-resolution (before
// ~2001 when read as ms) get scaled up.
func normalizeTS(v float64) int64 {
	if v <= 0 {
		return 0
	}
	if v < 1e12 {
		return int64(v * 1000)
	}
	return int64(v)
}

// parseAnyTS accepts the timestamp encodings seen across agent files:
// RFC3339 strings and numeric seconds or milliseconds.
func parseAnyTS(v any) int64 {
	switch t := v.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UnixMilli()
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UnixMilli()
		}
		return 0
	case float64:
		return normalizeTS(t)
	default:
		return 0
	}
}

// countRecentEntries counts history entries whose timestamp falls
// inside the trailing window. tsField names the timestamp key.
func countRecentEntries(path string, tsField string, window time.Duration, maxBytes int64) int {
	cutoff := time.Now().Add(-window).UnixMilli()
	count := 0
	for _, rec := range tailJSONLines(path, maxBytes) {
		if ts := parseAnyTS(rec[tsField]); ts >= cutoff && ts > 0 {
			count++
		}
	}
	return count
}
