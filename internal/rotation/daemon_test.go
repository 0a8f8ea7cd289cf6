package rotation

import (
	"testing"
	"time"

	"github.com/AntMonss/claude-monitor/internal/config"
	"github.com/AntMonss/claude-monitor/internal/event"
	"github.com/AntMonss/claude-monitor/internal/logstore"
)

func newTestStore(t *testing.T) *logstore.Store {
	t.Helper()
	store, err := logstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return store
}

func fill(t *testing.T, store *logstore.Store, file string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := store.Append(file, event.SystemMetrics{TS: int64(i), Measurement: "system"}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
}

func TestRunNowTruncatesAllLogs(t *testing.T) {
	store := newTestStore(t)
	fill(t, store, config.SystemLog, 30)
	fill(t, store, config.NetworkLog, 25)
	fill(t, store, config.ClaudeLocalLog, 5)

	d := NewDaemon(store, time.Hour, 10)
	d.RunNow()

	for file, want := range map[string]int{
		config.SystemLog:      10,
		config.NetworkLog:     10,
		config.ClaudeLocalLog: 5, // under the cap, untouched
	} {
		records, err := store.ReadLast(file, 100)
		if err != nil {
			t.Fatalf("ReadLast(%s) failed: %v", file, err)
		}
		if len(records) != want {
			t.Errorf("%s has %d records after rotation, want %d", file, len(records), want)
		}
	}

	// Newest records survive.
	records, _ := store.ReadLast(config.SystemLog, 100)
	if event.TS(records[len(records)-1]) != 29 {
		t.Error("rotation dropped the newest record")
	}
}

func TestDaemonRotatesOnTimer(t *testing.T) {
	store := newTestStore(t)
	fill(t, store, config.SystemLog, 50)

	d := NewDaemon(store, 20*time.Millisecond, 10)
	d.Start()
	defer d.Stop()

	deadline := time.After(2 * time.Second)
	for {
		records, err := store.ReadLast(config.SystemLog, 100)
		if err != nil {
			t.Fatalf("ReadLast failed: %v", err)
		}
		if len(records) == 10 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("log not rotated after 2s, still %d records", len(records))
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d := NewDaemon(newTestStore(t), time.Hour, 10)
	d.Start()
	d.Start() // double start is a no-op
	d.Stop()
	d.Stop() // double stop must not panic or block
}

func TestStopWithoutStart(t *testing.T) {
	d := NewDaemon(newTestStore(t), time.Hour, 10)
	d.Stop()
}
