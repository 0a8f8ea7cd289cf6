package collector

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestNormalizeTS(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int64
	}{
		{name: "seconds", in: 1700000000, want: 1700000000000},
		{name: "milliseconds", in: 1700000000000, want: 1700000000000},
		{name: "zero", in: 0, want: 0},
		{name: "negative", in: -5, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeTS(tt.in); got != tt.want {
				t.Errorf("normalizeTS(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAnyTS(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC).UnixMilli()

	if got := parseAnyTS("2026-03-01T12:30:00Z"); got != want {
		t.Errorf("RFC3339 string = %d, want %d", got, want)
	}
	if got := parseAnyTS("2026-03-01T12:30:00.000Z"); got != want {
		t.Errorf("RFC3339Nano string = %d, want %d", got, want)
	}
	if got := parseAnyTS(float64(want)); got != want {
		t.Errorf("numeric ms = %d, want %d", got, want)
	}
	if got := parseAnyTS("not a timestamp"); got != 0 {
		t.Errorf("garbage string = %d, want 0", got)
	}
	if got := parseAnyTS(nil); got != 0 {
		t.Errorf("nil = %d, want 0", got)
	}
}

func TestNewestFilesOrdersByModTime(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.jsonl")
	mid := filepath.Join(dir, "mid.jsonl")
	recent := filepath.Join(dir, "recent.jsonl")

	for _, p := range []string{old, mid, recent} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	now := time.Now()
	os.Chtimes(old, now.Add(-2*time.Hour), now.Add(-2*time.Hour))
	os.Chtimes(mid, now.Add(-time.Hour), now.Add(-time.Hour))
	os.Chtimes(recent, now, now)

	got := newestFiles([]string{filepath.Join(dir, "*.jsonl")}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 files, got %d", len(got))
	}
	if got[0] != recent || got[1] != mid {
		t.Errorf("order = %v, want [recent mid]", got)
	}
}

func TestCountRecentEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.jsonl")

	now := time.Now()
	lines := "" +
		`{"timestamp":` + formatMs(now.Add(-10*time.Minute)) + `}` + "\n" +
		`{"timestamp":` + formatMs(now.Add(-30*time.Minute)) + `}` + "\n" +
		`{"timestamp":` + formatMs(now.Add(-2*time.Hour)) + `}` + "\n" +
		`{"other":"field"}` + "\n"
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := countRecentEntries(path, "timestamp", time.Hour, localTailWindow); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func formatMs(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
