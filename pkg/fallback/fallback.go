// Package fallback is the local-only diagnostic channel of the pipeline.
// Validation rejections, serialization failures and dropped batches are
// reported here and never re-enter the logging pipeline.
package fallback

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Reporter receives pipeline failures. args are slog key/value pairs.
type Reporter interface {
	Report(msg string, args ...any)
}

// SlogReporter writes reports through a dedicated slog text handler.
type SlogReporter struct {
	logger *slog.Logger
}

// New creates a reporter writing to w, or to stderr when w is nil.
func New(w io.Writer) *SlogReporter {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &SlogReporter{logger: slog.New(handler).With(slog.String("channel", "logkit-fallback"))}
}

// Report writes one warning line. A failing writer is ignored.
func (r *SlogReporter) Report(msg string, args ...any) {
	defer func() {
		_ = recover()
	}()
	r.logger.Warn(msg, args...)
}

// Nop discards every report.
type Nop struct{}

// Report does nothing.
func (Nop) Report(string, ...any) {}

// Report is one recorded call.
type Report struct {
	Message string
	Args    []any
}

// Recorder keeps reports in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report records the call.
func (r *Recorder) Report(msg string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Message: msg, Args: append([]any(nil), args...)})
}

// Reports returns a copy of what was recorded so far.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}

// Count returns how many reports carry msg.
func (r *Recorder) Count(msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, report := range r.reports {
		if report.Message == msg {
			n++
		}
	}
	return n
}
