package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/AntMonss/claude-monitor/internal/diagnose"
	"github.com/AntMonss/claude-monitor/internal/events"
	"github.com/AntMonss/claude-monitor/internal/scoring"
)

// maxRequestBodySize caps control-request bodies. They are tiny; 64KiB
// is already generous.
const maxRequestBodySize = 64 * 1024

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeMethodNotAllowed(w, r.Method, "GET")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, &ErrorResponse{
				ErrorType:    ErrorTypeInvalidArgument,
				ErrorCode:    "INVALID_LIMIT",
				ErrorMessage: "limit must be an integer",
				Retryable:    false,
				Details:      map[string]any{"limit": raw},
			})
			return
		}
		limit = n
	}

	snap := s.aggregator.Snapshot(r.Context(), limit)
	resp := SnapshotResponse{
		Snapshot: snap,
		Diagnosis: scoring.Score(scoring.LatestInputs(
			snap.System, snap.Processes, snap.Network,
			snap.ClaudeTelemetry, snap.CodexTelemetry,
			snap.ClaudeLocal, snap.CodexLocal,
		)),
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeMethodNotAllowed(w, r.Method, "GET")
		return
	}
	s.writeJSON(w, http.StatusOK, s.detector.Detect(r.Context()))
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetWatch(w, r)
	case http.MethodPost:
		s.handleSetWatch(w, r)
	default:
		s.writeMethodNotAllowed(w, r.Method, "GET, POST")
	}
}

func (s *Server) handleGetWatch(w http.ResponseWriter, r *http.Request) {
	state, err := s.watch.Read()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, &ErrorResponse{
			ErrorType:    ErrorTypeInternal,
			ErrorCode:    "WATCH_STATE_READ_FAILED",
			ErrorMessage: err.Error(),
			Retryable:    true,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, WatchStateResponse{Enabled: state.Enabled, UpdatedAt: state.UpdatedAt})
}

func (s *Server) handleSetWatch(w http.ResponseWriter, r *http.Request) {
	var req WatchRequest
	decoder := json.NewDecoder(limitedBody(w, r))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil || req.Enabled == nil {
		s.writeError(w, http.StatusBadRequest, &ErrorResponse{
			ErrorType:    ErrorTypeInvalidArgument,
			ErrorCode:    "INVALID_WATCH_REQUEST",
			ErrorMessage: `body must be {"enabled": true|false}`,
			Retryable:    false,
		})
		return
	}

	state, err := s.watch.Write(*req.Enabled)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, &ErrorResponse{
			ErrorType:    ErrorTypeInternal,
			ErrorCode:    "WATCH_STATE_WRITE_FAILED",
			ErrorMessage: err.Error(),
			Retryable:    true,
		})
		return
	}

	events.GetGlobalEventLogger().LogWatchToggled(state.Enabled)

	// Collectors also consult the state file each tick; starting and
	// stopping the loops here just saves the idle wakeups.
	if s.supervisor != nil {
		if state.Enabled {
			s.supervisor.StartAll(context.Background())
		} else {
			s.supervisor.StopAll()
		}
	}

	s.writeJSON(w, http.StatusOK, WatchStateResponse{Enabled: state.Enabled, UpdatedAt: state.UpdatedAt})
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeMethodNotAllowed(w, r.Method, "POST")
		return
	}
	if s.diagnoser == nil {
		s.writeError(w, http.StatusServiceUnavailable, &ErrorResponse{
			ErrorType:    ErrorTypeUnavailable,
			ErrorCode:    "DIAGNOSE_DISABLED",
			ErrorMessage: "no diagnose command configured",
			Retryable:    false,
		})
		return
	}

	// A caller may post its own snapshot; with an empty body the
	// current aggregate is used.
	var payload any
	body, readErr := io.ReadAll(limitedBody(w, r))
	if readErr == nil && len(body) > 0 && json.Valid(body) {
		payload = json.RawMessage(body)
	} else {
		payload = s.aggregator.Snapshot(r.Context(), 0)
	}

	result, err := s.diagnoser.Run(r.Context(), payload)
	if err != nil {
		status := http.StatusInternalServerError
		errType := ErrorTypeInternal
		if errors.Is(err, diagnose.ErrTimedOut) {
			status = http.StatusGatewayTimeout
			errType = ErrorTypeTimeout
		}
		if errors.Is(err, diagnose.ErrNoCommand) {
			status = http.StatusServiceUnavailable
			errType = ErrorTypeUnavailable
		}
		s.writeError(w, status, &ErrorResponse{
			ErrorType:    errType,
			ErrorCode:    "DIAGNOSE_FAILED",
			ErrorMessage: err.Error(),
			Retryable:    true,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeMethodNotAllowed(w, r.Method, "GET")
		return
	}
	s.writeJSON(w, http.StatusOK, &HealthResponse{Status: "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, errResp *ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errResp)
}

func (s *Server) writeMethodNotAllowed(w http.ResponseWriter, method, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, &ErrorResponse{
		ErrorType:    ErrorTypeInvalidArgument,
		ErrorCode:    "METHOD_NOT_ALLOWED",
		ErrorMessage: "Method not allowed",
		Retryable:    false,
		Details: map[string]any{
			"method":  method,
			"allowed": allowed,
		},
	})
}

// limitedBody returns a reader that limits the body size.
func limitedBody(w http.ResponseWriter, r *http.Request) io.Reader {
	return http.MaxBytesReader(w, r.Body, maxRequestBodySize)
}
