// Package logentry defines the log record shipped by the pipeline, its
// validation rules and its wire encoding.
package logentry

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// DefaultSource is the tier tag carried by every entry of this pipeline.
	DefaultSource = "frontend"

	// TimestampLayout is the wire format of Entry.Timestamp (millisecond precision).
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

	// UnknownValue marks a field that could not be resolved.
	UnknownValue = "unknown"

	// BundledValue marks a module or file inside a bundled artifact.
	BundledValue = "-"

	// AnonymousFunction names call sites without a function identity.
	AnonymousFunction = "anonymous"
)

// Extra holds caller-supplied business fields.
type Extra map[string]any

// Entry is the unit of record. It is built synchronously inside Log and is not
// modified after validation.
type Entry struct {
	Timestamp  time.Time
	Source     string
	Level      Level
	Layer      Layer
	Message    string
	Module     string
	Function   string
	FilePath   *string
	LineNumber *int
	TraceID    string
	RequestID  string
	UserID     string
	DurationMS *float64
	ExtraData  Extra
}

type wireEntry struct {
	Timestamp  string         `json:"timestamp"`
	Source     string         `json:"source"`
	Level      Level          `json:"level"`
	Layer      Layer          `json:"layer"`
	Message    string         `json:"message"`
	Module     string         `json:"module"`
	Function   string         `json:"function"`
	FilePath   *string        `json:"file_path"`
	LineNumber *int           `json:"line_number"`
	TraceID    string         `json:"trace_id,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	DurationMS *float64       `json:"duration_ms,omitempty"`
	ExtraData  map[string]any `json:"extra_data"`
}

// MarshalJSON encodes the entry with the collector's snake_case schema.
func (e Entry) MarshalJSON() ([]byte, error) {
	extra := map[string]any(e.ExtraData)
	if extra == nil {
		extra = map[string]any{}
	}

	return json.Marshal(wireEntry{
		Timestamp:  FormatTimestamp(e.Timestamp),
		Source:     e.Source,
		Level:      e.Level,
		Layer:      e.Layer,
		Message:    e.Message,
		Module:     e.Module,
		Function:   e.Function,
		FilePath:   e.FilePath,
		LineNumber: e.LineNumber,
		TraceID:    e.TraceID,
		RequestID:  e.RequestID,
		UserID:     e.UserID,
		DurationMS: e.DurationMS,
		ExtraData:  extra,
	})
}

// UnmarshalJSON decodes an entry from its wire form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", w.Timestamp, err)
	}

	*e = Entry{
		Timestamp:  ts,
		Source:     w.Source,
		Level:      w.Level,
		Layer:      w.Layer,
		Message:    w.Message,
		Module:     w.Module,
		Function:   w.Function,
		FilePath:   w.FilePath,
		LineNumber: w.LineNumber,
		TraceID:    w.TraceID,
		RequestID:  w.RequestID,
		UserID:     w.UserID,
		DurationMS: w.DurationMS,
		ExtraData:  Extra(w.ExtraData),
	}
	return nil
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(TimestampLayout)
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
