// Package runlog appends one line per run to a local log file. Logging
// is best-effort: a write failure is reported to the structured log but
// never masks the pipeline result.
package runlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "success-empty"
	OutcomeFailure Outcome = "failure"
)

// Entry is one run's record. Append-only, never mutated.
type Entry struct {
	At      time.Time
	Outcome Outcome
	Rows    int
	Reason  string // set for failures
}

// Line renders the entry as a single log line.
func (e Entry) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s rows=%d", e.At.UTC().Format(time.RFC3339), e.Outcome, e.Rows)
	if e.Reason != "" {
		fmt.Fprintf(&b, " reason=%q", e.Reason)
	}
	b.WriteByte('\n')
	return b.String()
}

// Logger appends run entries to a file.
type Logger struct {
	path string
	log  *slog.Logger
}

// New creates a run logger writing to path.
func New(path string) *Logger {
	return &Logger{
		path: path,
		log:  slog.With("component", "runlog"),
	}
}

// Record appends the entry. Failures are reported and swallowed.
func (l *Logger) Record(e Entry) {
	if err := l.append(e); err != nil {
		l.log.Warn("failed to record run outcome", "error", err, "outcome", string(e.Outcome))
	}
}

func (l *Logger) append(e Entry) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open run log %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(e.Line()); err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}
