package logentry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// MaxExtraDepth bounds how deep SanitizeExtra descends into nested values.
const MaxExtraDepth = 8

const maxDepthMarker = "[max depth exceeded]"

// SanitizeExtra returns a deep copy of extra that is safe to print and encode.
// Nesting is cut at MaxExtraDepth so self-referencing maps terminate. Errors
// are replaced by their message, map keys are rendered as strings and structs
// are captured through their JSON form, so nothing the caller still holds is
// shared with the entry.
func SanitizeExtra(extra map[string]any) Extra {
	if len(extra) == 0 {
		return Extra{}
	}

	out := make(Extra, len(extra))
	for k, v := range extra {
		out[k] = sanitizeValue(v, 1)
	}
	return out
}

func sanitizeValue(v any, depth int) any {
	if v == nil {
		return nil
	}
	if depth > MaxExtraDepth {
		return maxDepthMarker
	}

	switch value := v.(type) {
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return value
	case []byte:
		return bytes.Clone(value)
	case error:
		return value.Error()
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = sanitizeValue(item, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = sanitizeValue(item, depth+1)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = sanitizeValue(iter.Value().Interface(), depth+1)
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = sanitizeValue(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		if rv.Elem().Kind() == reflect.Struct {
			return snapshot(v, depth)
		}
		return sanitizeValue(rv.Elem().Interface(), depth+1)
	case reflect.Struct:
		return snapshot(v, depth)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("[unsupported %s]", rv.Kind())
	default:
		return v
	}
}

// snapshot renders v through encoding/json at log time. Values JSON cannot
// encode (cycles, channels in fields) fall back to their fmt form.
func snapshot(v any, depth int) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return string(data)
	}
	return sanitizeValue(out, depth)
}
