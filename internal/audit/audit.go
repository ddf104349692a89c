// Package audit is the append-only assignment log: one JSON record per line
// per attempted document. Records are never mutated after write; the log is
// the ground truth for reconstructing assignment history even if document
// headers are edited or lost.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Actions recorded per attempted document.
const (
	ActionUpdated = "updated"  // header written with a validated result
	ActionNoMatch = "no_match" // validated result empty, header untouched
	ActionSkipped = "skipped"  // document not sent to the model
	ActionFailed  = "failed"   // provider, parse, or write failure
)

// Record is one immutable log entry.
type Record struct {
	RunID       string            `json:"run_id"`
	Path        string            `json:"path"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Action      string            `json:"action"`
	Reason      string            `json:"reason,omitempty"`
	StreamType  string            `json:"stream_type,omitempty"`
	Glyphs      []string          `json:"glyphs,omitempty"`
	Rationales  map[string]string `json:"rationales,omitempty"`
	Denials     []string          `json:"denials,omitempty"`
	Violations  []string          `json:"violations,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Log appends records to a JSONL file opened in append-only mode, so no
// record can overwrite another even across concurrent runs.
type Log struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens (or creates) the assignment log at the given path.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return &Log{f: f, path: path}, nil
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Append writes one record and flushes it to disk.
func (l *Log) Append(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(data); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return l.f.Sync()
}

// Close closes the underlying file.
func (l *Log) Close() error {
	return l.f.Close()
}

// ReadAll loads every record from a log file, skipping malformed lines. A
// missing file returns an empty history.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // skip malformed lines
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log: %w", err)
	}

	return records, nil
}

// Latest reduces a full history to the most recent record per document path.
// Consumers reconstruct "current" state this way; the log itself keeps every
// entry.
func Latest(records []Record) map[string]Record {
	latest := make(map[string]Record)
	for _, rec := range records {
		prev, ok := latest[rec.Path]
		if !ok || rec.Timestamp.After(prev.Timestamp) || rec.Timestamp.Equal(prev.Timestamp) {
			latest[rec.Path] = rec
		}
	}
	return latest
}
