package api

import (
	"github.com/AntMonss/claude-monitor/internal/aggregate"
	"github.com/AntMonss/claude-monitor/internal/scoring"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	ErrorType    string         `json:"error_type"`
	ErrorCode    string         `json:"error_code"`
	ErrorMessage string         `json:"error_message"`
	Retryable    bool           `json:"retryable"`
	Details      map[string]any `json:"details,omitempty"`
}

// ErrorType constants for API errors.
const (
	ErrorTypeInvalidArgument = "invalid_argument"
	ErrorTypeNotFound        = "not_found"
	ErrorTypeTimeout         = "timeout"
	ErrorTypeUnavailable     = "unavailable"
	ErrorTypeInternal        = "internal"
)

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// SnapshotResponse is the response body for GET /api/snapshot: the
// aggregated record arrays plus the scored diagnosis over them.
type SnapshotResponse struct {
	aggregate.Snapshot
	Diagnosis scoring.Diagnosis `json:"diagnosis"`
}

// WatchStateResponse is the response body for GET/POST /api/watch.
type WatchStateResponse struct {
	Enabled   bool  `json:"enabled"`
	UpdatedAt int64 `json:"updatedAt"`
}

// WatchRequest is the request body for POST /api/watch. Enabled is a
// pointer so a missing field is distinguishable from false.
type WatchRequest struct {
	Enabled *bool `json:"enabled"`
}
