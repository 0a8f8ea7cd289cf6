// Package patterns maps raw session metrics to severity tiers via
// fixed two-cutoff rules. All comparisons are strict: the value must
// exceed the cutoff, so a ratio of exactly 10.0 lands on the warning
// tier, not error.
package patterns

// Severity is a detected-anomaly tier.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Pattern keys emitted on local snapshots.
const (
	HighMessageToolRatio = "highMessageToolRatio"
	LongSession          = "longSession"
	BlockedTasks         = "blockedTasks"
	HighPromptFrequency  = "highPromptFrequency"
)

// Threshold is a warning/error cutoff pair.
type Threshold struct {
	Warning float64
	Error   float64
}

var (
	messageToolRatio = Threshold{Warning: 7.0, Error: 10.0}
	sessionDuration  = Threshold{Warning: 240, Error: 480} // minutes
	blockedTasks     = Threshold{Warning: 2, Error: 5}
	promptFrequency  = Threshold{Warning: 50, Error: 100} // per hour
)

// Classify compares value against a threshold pair, error cutoff
// first.
func (t Threshold) Classify(value float64) Severity {
	if value > t.Error {
		return SeverityError
	}
	if value > t.Warning {
		return SeverityWarning
	}
	return SeverityOK
}

// SessionSignals are the raw per-session metrics the collectors feed
// into pattern detection.
type SessionSignals struct {
	MessageToolRatio float64
	DurationMin      float64
	BlockedTasks     int
	PromptsPerHour   float64
}

// Detect runs every signal rule independently and returns the fired
// patterns keyed by name. Signals that stay under their warning cutoff
// do not appear in the map.
func Detect(sig SessionSignals) map[string]string {
	out := map[string]string{}
	add := func(key string, sev Severity) {
		if sev != SeverityOK {
			out[key] = string(sev)
		}
	}
	add(HighMessageToolRatio, messageToolRatio.Classify(sig.MessageToolRatio))
	add(LongSession, sessionDuration.Classify(sig.DurationMin))
	add(BlockedTasks, blockedTasks.Classify(float64(sig.BlockedTasks)))
	add(HighPromptFrequency, promptFrequency.Classify(sig.PromptsPerHour))
	if len(out) == 0 {
		return nil
	}
	return out
}

// Worst merges a patterns map into a single tier: error beats warning
// beats ok. Used where a consumer needs one status for a composite
// source.
func Worst(patterns map[string]string) Severity {
	worst := SeverityOK
	for _, v := range patterns {
		switch Severity(v) {
		case SeverityError:
			return SeverityError
		case SeverityWarning:
			worst = SeverityWarning
		}
	}
	return worst
}
