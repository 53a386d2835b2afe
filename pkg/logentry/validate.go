package logentry

import (
	"fmt"
	"time"
)

// ValidationError describes why an entry was rejected.
type ValidationError struct {
	Field  string // Field that failed validation
	Reason string // Human readable reason
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid log entry: %s %s", e.Field, e.Reason)
}

// requiredKeys must exist in every wire record. line_number may hold null.
var requiredKeys = []string{
	"timestamp",
	"source",
	"level",
	"message",
	"layer",
	"module",
	"function",
	"line_number",
}

// Validator checks entries against the invariants of the pipeline.
type Validator struct {
	source string
	layers LayerSet
}

// NewValidator creates a validator for the given tier tag and layer set.
// An empty source falls back to DefaultSource.
func NewValidator(source string, layers LayerSet) *Validator {
	if source == "" {
		source = DefaultSource
	}
	if len(layers) == 0 {
		layers = NewLayerSet()
	}
	return &Validator{source: source, layers: layers}
}

// Source returns the tier tag enforced by the validator.
func (v *Validator) Source() string {
	return v.source
}

// Layers returns the accepted layer set.
func (v *Validator) Layers() LayerSet {
	return v.layers
}

// Validate checks a constructed entry.
func (v *Validator) Validate(e Entry) error {
	switch {
	case e.Timestamp.IsZero():
		return &ValidationError{Field: "timestamp", Reason: "is required"}
	case e.Source == "":
		return &ValidationError{Field: "source", Reason: "is required"}
	case e.Source != v.source:
		return &ValidationError{Field: "source", Reason: fmt.Sprintf("must be %q, got %q", v.source, e.Source)}
	case !e.Level.IsValid():
		return &ValidationError{Field: "level", Reason: fmt.Sprintf("unknown level %d", int(e.Level))}
	case e.Message == "":
		return &ValidationError{Field: "message", Reason: "is required"}
	case e.Layer == "":
		return &ValidationError{Field: "layer", Reason: "is required"}
	case !v.layers.Contains(e.Layer):
		return &ValidationError{Field: "layer", Reason: fmt.Sprintf("unknown layer %q", e.Layer)}
	case e.Module == "":
		return &ValidationError{Field: "module", Reason: "is required"}
	case e.Function == "":
		return &ValidationError{Field: "function", Reason: "is required"}
	}
	return nil
}

// ValidateRecord checks a decoded wire record, as received by a collector.
func (v *Validator) ValidateRecord(record map[string]any) error {
	if record == nil {
		return &ValidationError{Field: "record", Reason: "is null"}
	}

	for _, key := range requiredKeys {
		if _, ok := record[key]; !ok {
			return &ValidationError{Field: key, Reason: "is missing"}
		}
	}

	ts, ok := record["timestamp"].(string)
	if !ok {
		return &ValidationError{Field: "timestamp", Reason: "must be a string"}
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		return &ValidationError{Field: "timestamp", Reason: "must be an RFC3339 timestamp"}
	}

	if source, _ := record["source"].(string); source != v.source {
		return &ValidationError{Field: "source", Reason: fmt.Sprintf("must be %q", v.source)}
	}

	if !recordLevelValid(record["level"]) {
		return &ValidationError{Field: "level", Reason: fmt.Sprintf("unknown level %v", record["level"])}
	}

	layer, _ := record["layer"].(string)
	if !v.layers.Contains(Layer(layer)) {
		return &ValidationError{Field: "layer", Reason: fmt.Sprintf("unknown layer %v", record["layer"])}
	}

	// Same rules as Validate: a record the client would reject is rejected
	// here too.
	for _, key := range []string{"message", "module", "function"} {
		value, ok := record[key].(string)
		if !ok {
			return &ValidationError{Field: key, Reason: "must be a string"}
		}
		if value == "" {
			return &ValidationError{Field: key, Reason: "is required"}
		}
	}

	switch record["line_number"].(type) {
	case nil, float64, int, int64:
	default:
		return &ValidationError{Field: "line_number", Reason: "must be a number or null"}
	}

	return nil
}

func recordLevelValid(raw any) bool {
	switch value := raw.(type) {
	case string:
		for _, lvl := range Levels() {
			if value == lvl.String() {
				return true
			}
		}
		return false
	case float64:
		return value == float64(int(value)) && Level(int(value)).IsValid()
	case int:
		return Level(value).IsValid()
	default:
		return false
	}
}
