// Package batch drives concurrency-bounded, resumable ingest runs over a
// directory of scraped listing files.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// FileResult is the durable outcome of one file attempt.
type FileResult struct {
	File      string    `json:"file"`
	FileName  string    `json:"fileName"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Processed int       `json:"processed,omitempty"`
	Errors    int       `json:"errors,omitempty"`
	Skipped   int       `json:"skipped,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Log is the persisted record of per-file outcomes. It makes repeated runs
// idempotent at file granularity and failed files retryable without
// re-specifying them.
type Log struct {
	Processed []FileResult `json:"processed"`
	Failed    []FileResult `json:"failed"`
}

// HasProcessed reports whether a file path already has a successful entry.
func (l *Log) HasProcessed(path string) bool {
	for _, r := range l.Processed {
		if r.File == path {
			return true
		}
	}
	return false
}

// LogStore persists the Log as a single JSON document, rewritten on every
// flush. Only the Driver's coordinating goroutine touches it during a run.
type LogStore struct {
	path   string
	logger *zap.Logger
}

// NewLogStore creates a store backed by the given file path.
func NewLogStore(path string, logger *zap.Logger) *LogStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogStore{path: path, logger: logger}
}

// Load reads the log from disk. A missing or corrupt file is never fatal:
// the run starts with an empty log and a warning.
func (s *LogStore) Load() Log {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Could not load processed log, starting fresh", zap.String("path", s.path), zap.Error(err))
		}
		return Log{}
	}
	var l Log
	if err := json.Unmarshal(data, &l); err != nil {
		s.logger.Warn("Processed log is corrupt, starting fresh", zap.String("path", s.path), zap.Error(err))
		return Log{}
	}
	return l
}

// Save rewrites the full log document.
func (s *LogStore) Save(l Log) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal processed log: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write processed log: %w", err)
	}
	return nil
}

// Clear resets the log to empty.
func (s *LogStore) Clear() error {
	return s.Save(Log{})
}
