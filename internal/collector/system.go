package collector

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/AntMonss/claude-monitor/internal/event"
)

// SystemSampler samples host-level resources: CPU, memory, swap, disk
// counters, network throughput, and the count of agent-related
// watcher processes.
type SystemSampler struct {
	file     string
	keywords []string

	prevCPU    *cpu.TimesStat
	prevNetRx  uint64
	prevNetTx  uint64
	prevNetAt  time.Time
	havePrev   bool
}

// NewSystemSampler creates a system metrics sampler writing to file.
func NewSystemSampler(file string, watcherKeywords []string) *SystemSampler {
	return &SystemSampler{file: file, keywords: watcherKeywords}
}

// Name implements Sampler.
func (s *SystemSampler) Name() string { return "system" }

// Collect implements Sampler. Individual gopsutil failures leave the
// corresponding fields zero rather than failing the whole sample.
func (s *SystemSampler) Collect(ctx context.Context) ([]Sample, error) {
	rec := event.SystemMetrics{
		TS:          time.Now().UnixMilli(),
		Measurement: "system",
	}

	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		rec.CPULoad = pcts[0]
	}
	if times, err := cpu.TimesWithContext(ctx, false); err == nil && len(times) > 0 {
		user, system := s.cpuShares(&times[0])
		rec.CPUUser = user
		rec.CPUSystem = system
	}
	if loadAvg, err := load.AvgWithContext(ctx); err == nil && loadAvg != nil {
		rec.LoadAvg1 = loadAvg.Load1
	}
	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil && memInfo != nil {
		rec.MemUsed = memInfo.Used
		rec.MemTotal = memInfo.Total
	}
	if swapInfo, err := mem.SwapMemoryWithContext(ctx); err == nil && swapInfo != nil {
		rec.SwapUsed = swapInfo.Used
	}
	if counters, err := disk.IOCountersWithContext(ctx); err == nil {
		for _, c := range counters {
			rec.DiskRead += c.ReadBytes
			rec.DiskWrite += c.WriteBytes
		}
	}
	if counters, err := psnet.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		rec.NetRxRate, rec.NetTxRate = s.netRates(counters[0].BytesRecv, counters[0].BytesSent)
	}
	rec.Watchers = countWatchers(ctx, s.keywords)

	return []Sample{{File: s.file, Record: rec}}, nil
}

// cpuShares converts cumulative CPU times into user/system percent of
// the interval since the previous tick. The first tick reports zeros.
func (s *SystemSampler) cpuShares(cur *cpu.TimesStat) (user, system float64) {
	prev := s.prevCPU
	s.prevCPU = cur
	if prev == nil {
		return 0, 0
	}

	total := (cur.User + cur.System + cur.Idle + cur.Nice + cur.Iowait + cur.Irq + cur.Softirq + cur.Steal) -
		(prev.User + prev.System + prev.Idle + prev.Nice + prev.Iowait + prev.Irq + prev.Softirq + prev.Steal)
	if total <= 0 {
		return 0, 0
	}
	return (cur.User - prev.User) / total * 100, (cur.System - prev.System) / total * 100
}

// netRates converts cumulative rx/tx byte counters into bytes/sec over
// the interval since the previous tick. The first tick reports zeros.
func (s *SystemSampler) netRates(rx, tx uint64) (rxRate, txRate float64) {
	now := time.Now()
	if s.havePrev {
		elapsed := now.Sub(s.prevNetAt).Seconds()
		if elapsed > 0 && rx >= s.prevNetRx && tx >= s.prevNetTx {
			rxRate = float64(rx-s.prevNetRx) / elapsed
			txRate = float64(tx-s.prevNetTx) / elapsed
		}
	}
	s.prevNetRx, s.prevNetTx, s.prevNetAt = rx, tx, now
	s.havePrev = true
	return rxRate, txRate
}

// countWatchers counts processes whose name matches one of the
// agent-related keywords. Errors count as zero; a missing process
// table is not worth failing a tick over.
func countWatchers(ctx context.Context, keywords []string) int {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0
	}
	count := 0
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if matchesKeyword(name, keywords) {
			count++
		}
	}
	return count
}

func matchesKeyword(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
