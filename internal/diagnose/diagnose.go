// Package diagnose runs an on-demand deep diagnostic by handing the
// current snapshot to a local agent CLI (claude -p by default) and
// returning its verdict. The subprocess is killed at the deadline; a
// hung agent never hangs the daemon.
package diagnose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AntMonss/claude-monitor/internal/events"
	"github.com/AntMonss/claude-monitor/internal/monitor"
)

const diagnosePrompt = `You are reviewing a monitoring snapshot from a machine running AI coding-agent sessions. Identify the most likely cause of any slowdown: system resource pressure, API latency, or a stuck agent session. Answer in a few short sentences; say "nothing notable" if the snapshot looks healthy.

Snapshot:
`

// ErrNoCommand indicates no diagnose command is configured.
var ErrNoCommand = errors.New("no diagnose command configured")

// ErrTimedOut indicates the agent subprocess was killed at the
// deadline.
var ErrTimedOut = errors.New("diagnose timed out")

// maxStderr bounds how much subprocess stderr is carried into an
// error message.
const maxStderr = 512

// Result is one completed diagnostic run.
type Result struct {
	RequestID  string `json:"requestId"`
	TS         int64  `json:"ts"`
	DurationMs int64  `json:"durationMs"`
	Output     string `json:"output"`
}

// Runner invokes the configured agent CLI with a snapshot-bearing
// prompt.
type Runner struct {
	command []string
	timeout time.Duration
}

func NewRunner(command []string, timeout time.Duration) *Runner {
	return &Runner{command: command, timeout: timeout}
}

// Run executes one diagnostic over the given snapshot. The snapshot is
// serialized into the prompt as JSON.
func (r *Runner) Run(ctx context.Context, snapshot any) (*Result, error) {
	if len(r.command) == 0 {
		return nil, ErrNoCommand
	}

	requestID := uuid.New().String()
	start := time.Now()

	ctx, span := monitor.GetGlobalTracer().Start(ctx, "monitor.diagnose")
	defer span.End()
	span.SetAttributes(attribute.String("diagnose.request_id", requestID))

	res, err := r.run(ctx, requestID, snapshot)
	if err != nil {
		span.RecordError(err)
	}
	events.GetGlobalEventLogger().LogDiagnoseFinished(requestID, time.Since(start).Milliseconds(), err)
	return res, err
}

func (r *Runner) run(ctx context.Context, requestID string, snapshot any) (*Result, error) {
	snapJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.command[1:]...), diagnosePrompt+string(snapJSON))
	cmd := exec.CommandContext(runCtx, r.command[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s", ErrTimedOut, r.timeout)
		}
		if tail := stderrTail(stderr.Bytes()); tail != "" {
			return nil, fmt.Errorf("diagnose command failed: %w: %s", err, tail)
		}
		return nil, fmt.Errorf("diagnose command failed: %w", err)
	}

	return &Result{
		RequestID:  requestID,
		TS:         time.Now().UnixMilli(),
		DurationMs: time.Since(start).Milliseconds(),
		Output:     strings.TrimSpace(stdout.String()),
	}, nil
}

func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxStderr {
		s = s[len(s)-maxStderr:]
	}
	return s
}
