package patterns

import "testing"

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		th    Threshold
		value float64
		want  Severity
	}{
		{"under warning", Threshold{7, 10}, 5.0, SeverityOK},
		{"exactly warning", Threshold{7, 10}, 7.0, SeverityOK},
		{"above warning", Threshold{7, 10}, 7.5, SeverityWarning},
		{"exactly error falls to warning", Threshold{7, 10}, 10.0, SeverityWarning},
		{"above error", Threshold{7, 10}, 10.1, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.th.Classify(tt.value); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}

func TestDetectRatioFromCounts(t *testing.T) {
	// 100 messages over 10 tool calls is exactly 10.0: strict
	// boundary puts this on warning.
	got := Detect(SessionSignals{MessageToolRatio: 100.0 / 10.0})
	if got[HighMessageToolRatio] != string(SeverityWarning) {
		t.Errorf("ratio 10.0: got %q, want warning", got[HighMessageToolRatio])
	}
}

func TestDetectIndependentSignals(t *testing.T) {
	got := Detect(SessionSignals{
		MessageToolRatio: 12,  // error
		DurationMin:      300, // warning
		BlockedTasks:     6,   // error
		PromptsPerHour:   10,  // ok
	})

	if len(got) != 3 {
		t.Fatalf("expected 3 fired patterns, got %d: %v", len(got), got)
	}
	if got[HighMessageToolRatio] != "error" {
		t.Errorf("ratio: got %q, want error", got[HighMessageToolRatio])
	}
	if got[LongSession] != "warning" {
		t.Errorf("duration: got %q, want warning", got[LongSession])
	}
	if got[BlockedTasks] != "error" {
		t.Errorf("blocked: got %q, want error", got[BlockedTasks])
	}
	if _, ok := got[HighPromptFrequency]; ok {
		t.Error("prompt frequency under cutoff must not fire")
	}
}

func TestDetectQuietSessionReturnsNil(t *testing.T) {
	if got := Detect(SessionSignals{}); got != nil {
		t.Errorf("expected nil map for quiet session, got %v", got)
	}
}

func TestWorst(t *testing.T) {
	tests := []struct {
		name     string
		patterns map[string]string
		want     Severity
	}{
		{"empty", nil, SeverityOK},
		{"single warning", map[string]string{"a": "warning"}, SeverityWarning},
		{"warning and error", map[string]string{"a": "warning", "b": "error"}, SeverityError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Worst(tt.patterns); got != tt.want {
				t.Errorf("Worst(%v) = %s, want %s", tt.patterns, got, tt.want)
			}
		})
	}
}
