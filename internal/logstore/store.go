// Package logstore implements the append-only log primitive: one JSON
// record per line, bounded tail reads, and truncate-on-rotation. A
// crash mid-write corrupts at most the final line, and readers skip
// unparseable lines, so no file-level locking is needed. A rotation
// racing an append may drop the newest record; that is the accepted
// durability model.
package logstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AntMonss/claude-monitor/internal/event"
)

// DefaultTailWindow caps how many bytes ReadLast scans from the end of
// a file, keeping read cost flat regardless of file size.
const DefaultTailWindow int64 = 512 * 1024

// Store is a directory of line-delimited JSON log files.
type Store struct {
	dir        string
	tailWindow int64
}

// Open creates the store directory if needed and returns a Store.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("log directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Store{dir: dir, tailWindow: DefaultTailWindow}, nil
}

// Dir returns the store's base directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path for a log file name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Append serializes record to one JSON line and appends it to the
// named log file, creating the file if absent.
func (s *Store) Append(name string, record any) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	f, err := os.OpenFile(s.Path(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append to %s: %w", name, err)
	}
	return nil
}

// ReadLast returns up to limit most recent parseable records from the
// named log file, ordered oldest to newest. A missing file yields an
// empty slice. Malformed lines are dropped silently.
func (s *Store) ReadLast(name string, limit int) ([]event.Raw, error) {
	if limit <= 0 {
		return nil, nil
	}

	lines, err := TailLines(s.Path(name), s.tailWindow)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	// Walk backwards collecting valid records, then reverse.
	records := make([]event.Raw, 0, limit)
	for i := len(lines) - 1; i >= 0 && len(records) < limit; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || !json.Valid([]byte(trimmed)) {
			continue
		}
		records = append(records, event.Raw(trimmed))
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Rotate rewrites the named log file to contain only its last maxLines
// non-empty lines, returning how many lines were dropped. It is a
// no-op when the file is absent or under the cap. The rewrite goes
// through a temp file plus rename so readers never observe a
// half-written file.
func (s *Store) Rotate(name string, maxLines int) (int, error) {
	if maxLines <= 0 {
		return 0, fmt.Errorf("maxLines must be positive")
	}

	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s: %w", name, err)
	}

	lines := splitNonEmpty(data)
	if len(lines) <= maxLines {
		return 0, nil
	}
	keep := lines[len(lines)-maxLines:]

	tmp, err := os.CreateTemp(s.dir, name+".rotate-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	for _, line := range keep {
		if _, err := tmp.Write(append(line, '\n')); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return 0, fmt.Errorf("failed to write temp file: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return len(lines) - maxLines, nil
}

// LogFiles lists the .jsonl files currently present in the store.
func (s *Store) LogFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// TailLines reads at most maxBytes from the end of path and returns the
// complete lines inside that window. When the window starts mid-line
// the leading partial line is discarded.
func TailLines(path string, maxBytes int64) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	offset := int64(0)
	truncated := false
	if info.Size() > maxBytes {
		offset = info.Size() - maxBytes
		truncated = true
	}
	if _, err := f.Seek(offset, 0); err != nil {
		return nil, err
	}

	data := make([]byte, info.Size()-offset)
	if _, err := io.ReadFull(f, data); err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	if truncated && len(lines) > 0 {
		lines = lines[1:]
	}
	return lines, nil
}

func splitNonEmpty(data []byte) [][]byte {
	raw := bytes.Split(data, []byte("\n"))
	lines := make([][]byte, 0, len(raw))
	for _, line := range raw {
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
