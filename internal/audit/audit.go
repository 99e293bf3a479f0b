// Package audit appends one JSON line per mutation attempt to a
// rotating log file, so the history of what touched the configuration
// surfaces survives past any single run.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Entry records one verb invocation outcome.
type Entry struct {
	Time       time.Time `json:"time"`
	Target     string    `json:"target"`
	Verb       string    `json:"verb"`
	Outcome    string    `json:"outcome"`
	BackupPath string    `json:"backup_path,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Log is an append-only mutation journal.
type Log struct {
	w io.WriteCloser
}

// Open returns a log writing to path with size-based rotation.
func Open(path string, maxSizeMB, maxBackups int) *Log {
	return &Log{w: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}}
}

// NewWithWriter is for tests.
func NewWithWriter(w io.WriteCloser) *Log {
	return &Log{w: w}
}

// Record appends one entry.
func (l *Log) Record(e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	if _, err := l.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	return l.w.Close()
}
