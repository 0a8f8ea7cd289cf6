// Package rotation runs the background daemon that keeps every log
// file bounded. It ticks on its own timer, decoupled from collector
// cadence, so the worst-case file size between rotations is the
// line cap plus whatever the collectors appended since the last tick.
package rotation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/AntMonss/claude-monitor/internal/events"
	"github.com/AntMonss/claude-monitor/internal/logstore"
	"github.com/AntMonss/claude-monitor/internal/monitor"
)

// Daemon periodically truncates every log file to the line cap.
type Daemon struct {
	store     *logstore.Store
	interval  time.Duration
	maxLines  int
	stopCh    chan struct{}
	stoppedCh chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewDaemon creates a rotation daemon over the given store.
func NewDaemon(store *logstore.Store, interval time.Duration, maxLines int) *Daemon {
	return &Daemon{
		store:     store,
		interval:  interval,
		maxLines:  maxLines,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start begins the background rotation goroutine.
func (d *Daemon) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	go d.run()
}

// Stop signals the background goroutine to stop and waits for it to
// exit.
func (d *Daemon) Stop() {
	shouldStop := false
	func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if !d.running {
			return
		}
		d.running = false
		shouldStop = true
	}()

	if !shouldStop {
		return
	}

	close(d.stopCh)
	<-d.stoppedCh
}

func (d *Daemon) run() {
	defer close(d.stoppedCh)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.rotateAll()
		case <-d.stopCh:
			return
		}
	}
}

func (d *Daemon) rotateAll() {
	files, err := d.store.LogFiles()
	if err != nil {
		log.Printf("rotation: failed to list log files: %v", err)
		return
	}

	for _, file := range files {
		dropped, err := d.store.Rotate(file, d.maxLines)
		if err != nil {
			log.Printf("rotation: failed to rotate %s: %v", file, err)
			continue
		}
		if dropped > 0 {
			events.GetGlobalEventLogger().LogRotated(file, d.maxLines)
			monitor.GetGlobalMetrics().RecordRotation(context.Background(), file, int64(dropped))
		}
	}
}

// RunNow triggers an immediate rotation pass (useful for testing).
func (d *Daemon) RunNow() {
	d.rotateAll()
}
