package logentry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Level represents the severity of a log entry. Higher values are more severe.
type Level int

const (
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarning  Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

var levelNames = map[Level]string{
	LevelDebug:    "DEBUG",
	LevelInfo:     "INFO",
	LevelWarning:  "WARNING",
	LevelError:    "ERROR",
	LevelCritical: "CRITICAL",
}

// Levels returns the defined severities in ascending order.
func Levels() []Level {
	return []Level{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical}
}

// String returns the wire name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// IsValid reports whether l is one of the five defined severities.
func (l Level) IsValid() bool {
	_, ok := levelNames[l]
	return ok
}

// Enabled reports whether l passes the given minimum threshold.
func (l Level) Enabled(min Level) bool {
	return l >= min
}

// ParseLevel converts a level name (case-insensitive) or its numeric value.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "CRITICAL", "FATAL":
		return LevelCritical, nil
	}

	if n, err := strconv.Atoi(name); err == nil {
		if lvl := Level(n); lvl.IsValid() {
			return lvl, nil
		}
	}

	return 0, fmt.Errorf("unknown log level %q", s)
}

// MarshalJSON encodes the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("cannot marshal invalid level %d", int(l))
	}
	return json.Marshal(l.String())
}

// UnmarshalJSON accepts either the level name or its numeric value.
func (l *Level) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseLevel(name)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("level must be a string or number: %w", err)
	}
	if !Level(n).IsValid() {
		return fmt.Errorf("unknown log level %d", n)
	}
	*l = Level(n)
	return nil
}

// SetValue lets cleanenv decode levels from environment variables.
func (l *Level) SetValue(s string) error {
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
