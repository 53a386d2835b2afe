package logentry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EncodeBatch encodes entries as a JSON array, preserving order. An entry that
// cannot be encoded is replaced by FallbackEntry and onError (if set) is told
// about it. The returned error is only non-nil when the fallback itself fails.
func EncodeBatch(entries []Entry, onError func(index int, err error)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			if onError != nil {
				onError(i, err)
			}

			data, err = json.Marshal(FallbackEntry(entry, err))
			if err != nil {
				return nil, fmt.Errorf("failed to encode fallback entry %d: %w", i, err)
			}
		}

		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(data)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// FallbackEntry builds a minimal entry describing a serialization failure of
// original. It only carries plain strings so it always encodes.
func FallbackEntry(original Entry, cause error) Entry {
	ts := original.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	source := original.Source
	if source == "" {
		source = DefaultSource
	}

	module := original.Module
	if module == "" {
		module = UnknownValue
	}

	function := original.Function
	if function == "" {
		function = UnknownValue
	}

	return Entry{
		Timestamp: ts,
		Source:    source,
		Level:     LevelError,
		Layer:     LayerUtils,
		Message:   fmt.Sprintf("log entry serialization failed: %v", cause),
		Module:    module,
		Function:  function,
		TraceID:   original.TraceID,
		RequestID: original.RequestID,
		UserID:    original.UserID,
		ExtraData: Extra{
			"original_message": original.Message,
			"original_level":   original.Level.String(),
			"original_layer":   string(original.Layer),
		},
	}
}
