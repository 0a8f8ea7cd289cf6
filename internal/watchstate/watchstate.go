// Package watchstate persists the single on/off flag that gates all
// collector work. The state lives in one small JSON file next to the
// logs; reading it when absent creates it with enabled=true.
package watchstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the watching flag plus the time it last changed.
type State struct {
	Enabled   bool  `json:"enabled"`
	UpdatedAt int64 `json:"updatedAt"` // ms epoch
}

// File manages the state file at a fixed path.
type File struct {
	path string
}

// NewFile returns a File for the given path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Read returns the current state, creating the file with the default
// enabled=true state when it does not exist yet. A corrupt file is
// replaced with the default rather than reported as an error, so a
// collector can always answer "am I enabled".
func (f *File) Read() (State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return f.reset()
		}
		return State{}, fmt.Errorf("failed to read watch state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return f.reset()
	}
	return state, nil
}

// Write replaces the state with the given enabled flag and a fresh
// updatedAt, via temp file plus rename.
func (f *File) Write(enabled bool) (State, error) {
	state := State{Enabled: enabled, UpdatedAt: time.Now().UnixMilli()}
	if err := f.store(state); err != nil {
		return State{}, err
	}
	return state, nil
}

func (f *File) reset() (State, error) {
	state := State{Enabled: true, UpdatedAt: time.Now().UnixMilli()}
	if err := f.store(state); err != nil {
		return State{}, err
	}
	return state, nil
}

func (f *File) store(state State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal watch state: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "watching-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write watch state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close watch state: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace watch state: %w", err)
	}
	return nil
}
