package collector

import (
	"context"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/AntMonss/claude-monitor/internal/event"
)

// ProcessSampler snapshots the top-N processes by CPU plus the subset
// whose names match known agent-related keywords.
type ProcessSampler struct {
	file     string
	topN     int
	keywords []string
}

// NewProcessSampler creates a process table sampler writing to file.
func NewProcessSampler(file string, topN int, watcherKeywords []string) *ProcessSampler {
	return &ProcessSampler{file: file, topN: topN, keywords: watcherKeywords}
}

// Name implements Sampler.
func (s *ProcessSampler) Name() string { return "process" }

// Collect implements Sampler.
func (s *ProcessSampler) Collect(ctx context.Context) ([]Sample, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]event.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Process may have exited between listing and inspection.
			continue
		}
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		info := event.ProcessInfo{
			PID:        p.Pid,
			Name:       name,
			CPUPercent: cpuPct,
		}
		if memInfo, err := p.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			info.MemRSS = memInfo.RSS
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CPUPercent > infos[j].CPUPercent
	})

	top := infos
	if len(top) > s.topN {
		top = top[:s.topN]
	}

	var watchers []event.ProcessInfo
	for _, info := range infos {
		if matchesKeyword(info.Name, s.keywords) {
			watchers = append(watchers, info)
		}
	}

	rec := event.ProcessSnapshot{
		TS:       time.Now().UnixMilli(),
		Event:    "processes",
		Top:      top,
		Watchers: watchers,
	}
	return []Sample{{File: s.file, Record: rec}}, nil
}
