package scoring

import (
	"encoding/json"

	"github.com/AntMonss/claude-monitor/internal/event"
)

// LatestInputs extracts the newest usable record per source from raw
// log arrays, in the lenient style the engine expects: malformed
// records are skipped, empty arrays yield nil fields.
func LatestInputs(system, processes, network, claudeTel, codexTel, claudeLocal, codexLocal []event.Raw) Inputs {
	var in Inputs

	if raw := lastValid(system); raw != nil {
		var sm event.SystemMetrics
		if json.Unmarshal(raw, &sm) == nil {
			in.System = &sm
		}
	}
	if raw := lastValid(processes); raw != nil {
		var ps event.ProcessSnapshot
		if json.Unmarshal(raw, &ps) == nil {
			in.Processes = &ps
		}
	}
	in.Network = worstRecentProbe(network)
	in.Telemetry = latestAPIRequest(claudeTel, codexTel)
	in.Local = latestLocalSnapshot(claudeLocal, codexLocal)
	return in
}

// worstRecentProbe takes each endpoint's most recent probe and returns
// the worst of them: one dead API host must not be masked by a healthy
// probe appended just after it.
func worstRecentProbe(raws []event.Raw) *event.LatencyProbe {
	seen := make(map[string]bool)
	var worst *event.LatencyProbe
	for i := len(raws) - 1; i >= 0; i-- {
		var p event.LatencyProbe
		if json.Unmarshal(raws[i], &p) != nil || p.Event != "latency" {
			continue
		}
		if seen[p.Endpoint] {
			continue
		}
		seen[p.Endpoint] = true
		if worst == nil || probeWorse(p, *worst) {
			copied := p
			worst = &copied
		}
	}
	return worst
}

func probeWorse(a, b event.LatencyProbe) bool {
	if a.OK != b.OK {
		return !a.OK
	}
	return a.LatencyMs > b.LatencyMs
}

func lastValid(raws []event.Raw) event.Raw {
	for i := len(raws) - 1; i >= 0; i-- {
		if json.Valid(raws[i]) {
			return raws[i]
		}
	}
	return nil
}

// latestAPIRequest finds the newest api_request event across the
// telemetry streams. Other event kinds carry no latency signal.
func latestAPIRequest(streams ...[]event.Raw) *event.TelemetryEvent {
	var newest *event.TelemetryEvent
	for _, raws := range streams {
		for i := len(raws) - 1; i >= 0; i-- {
			var te event.TelemetryEvent
			if json.Unmarshal(raws[i], &te) != nil || te.Event != "api_request" {
				continue
			}
			if newest == nil || te.TS > newest.TS {
				copied := te
				newest = &copied
			}
			break
		}
	}
	return newest
}

func latestLocalSnapshot(streams ...[]event.Raw) *event.LocalSnapshot {
	var newest *event.LocalSnapshot
	for _, raws := range streams {
		for i := len(raws) - 1; i >= 0; i-- {
			var ls event.LocalSnapshot
			if json.Unmarshal(raws[i], &ls) != nil || ls.Event != "session_snapshot" {
				continue
			}
			if newest == nil || ls.TS > newest.TS {
				copied := ls
				newest = &copied
			}
			break
		}
	}
	return newest
}
