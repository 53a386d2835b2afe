package logkit

import (
	"context"
	"sync"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"github.com/JailtonJunior94/logkit/pkg/transport"
)

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// Init builds the process-wide logger. A previous default is closed first.
func Init(ctx context.Context, cfg Config, opts ...Option) (*Logger, error) {
	l, err := New(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}

	defaultMu.Lock()
	previous := defaultLogger
	defaultLogger = l
	defaultMu.Unlock()

	if previous != nil {
		_ = previous.Close(ctx)
	}
	return l, nil
}

// Default returns the process-wide logger, or nil before Init.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Dispose closes the process-wide logger and forgets it.
func Dispose(ctx context.Context) error {
	defaultMu.Lock()
	l := defaultLogger
	defaultLogger = nil
	defaultMu.Unlock()

	if l == nil {
		return nil
	}
	return l.Close(ctx)
}

// Log logs through the default logger. It does nothing before Init.
func Log(ctx context.Context, level logentry.Level, layer logentry.Layer, message string, extra map[string]any) {
	Default().log(ctx, nil, level, layer, message, extra)
}

func Debug(ctx context.Context, layer logentry.Layer, message string, extra map[string]any) {
	Default().log(ctx, nil, logentry.LevelDebug, layer, message, extra)
}

func Info(ctx context.Context, layer logentry.Layer, message string, extra map[string]any) {
	Default().log(ctx, nil, logentry.LevelInfo, layer, message, extra)
}

func Warn(ctx context.Context, layer logentry.Layer, message string, extra map[string]any) {
	Default().log(ctx, nil, logentry.LevelWarning, layer, message, extra)
}

func Error(ctx context.Context, layer logentry.Layer, message string, extra map[string]any) {
	Default().log(ctx, nil, logentry.LevelError, layer, message, extra)
}

func Critical(ctx context.Context, layer logentry.Layer, message string, extra map[string]any) {
	Default().log(ctx, nil, logentry.LevelCritical, layer, message, extra)
}

// ForModule binds path on the default logger.
func ForModule(path string) (*ModuleLogger, error) {
	l := Default()
	if l == nil {
		return nil, ErrNotInitialized
	}
	return l.ForModule(path), nil
}

// Flush flushes the default logger.
func Flush(ctx context.Context) error {
	l := Default()
	if l == nil {
		return ErrNotInitialized
	}
	return l.Flush(ctx)
}

// TransportStats returns the default logger's transport counters.
func TransportStats() transport.Stats {
	l := Default()
	if l == nil {
		return transport.Stats{}
	}
	return l.TransportStats()
}

// TraceID returns the session trace id of the default logger.
func TraceID() string {
	l := Default()
	if l == nil {
		return ""
	}
	return l.TraceID()
}

// GenerateRequestID creates a request id on the default logger.
func GenerateRequestID() string {
	l := Default()
	if l == nil {
		return ""
	}
	return l.GenerateRequestID()
}

// CurrentRequestID returns the default logger's current request id.
func CurrentRequestID() string {
	l := Default()
	if l == nil {
		return ""
	}
	return l.CurrentRequestID()
}

// SetUserID tags the default logger's entries with id.
func SetUserID(id string) {
	if l := Default(); l != nil {
		l.SetUserID(id)
	}
}

// UserID returns the default logger's user id.
func UserID() string {
	l := Default()
	if l == nil {
		return ""
	}
	return l.UserID()
}
