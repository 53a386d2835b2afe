// Package logkit is the entry point of the logging pipeline. A Logger builds
// each entry synchronously (call site, trace context, validation,
// deduplication), prints it on the console and hands it to a batching
// transport. Log never returns an error and never panics; failures go to the
// fallback channel.
package logkit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/callsite"
	"github.com/JailtonJunior94/logkit/pkg/dedup"
	"github.com/JailtonJunior94/logkit/pkg/fallback"
	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"github.com/JailtonJunior94/logkit/pkg/tracecontext"
	"github.com/JailtonJunior94/logkit/pkg/transport"
)

// Reserved extra keys that override the resolved call site.
const (
	OverrideModule     = "_module"
	OverrideFilePath   = "_file_path"
	OverrideFunction   = "_function"
	OverrideLineNumber = "_line_number"

	// DurationKey is promoted from extra data to Entry.DurationMS.
	DurationKey = "duration_ms"
)

var packagePath = reflect.TypeOf(Logger{}).PkgPath()

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	Calls      uint64
	Accepted   uint64
	Invalid    uint64
	Suppressed uint64
	Panics     uint64
	// ConsecutiveResolutionFailures resets on every resolved call site.
	ConsecutiveResolutionFailures uint64

	Resolution callsite.Stats
	Dedup      dedup.Stats
	Transport  transport.Stats
}

// Logger is safe for concurrent use.
type Logger struct {
	cfg        Config
	validator  *logentry.Validator
	normalizer callsite.Normalizer
	frames     *callsite.InternalFrames
	resolver   callsite.Resolver
	trace      *tracecontext.Manager
	dedup      *dedup.Deduplicator
	sender     transport.Sender
	transport  *transport.Transport
	console    Console
	reporter   fallback.Reporter
	now        func() time.Time
	callerSkip int

	failureThreshold uint64
	state            *state
}

// state is shared between a Logger and the loggers derived from it.
type state struct {
	calls               atomic.Uint64
	accepted            atomic.Uint64
	invalid             atomic.Uint64
	suppressed          atomic.Uint64
	panics              atomic.Uint64
	consecutiveFailures atomic.Uint64
	closed              atomic.Bool
	closeOnce           sync.Once
	closeErr            error
}

// New validates cfg, builds the pipeline and starts the transport.
func New(ctx context.Context, cfg Config, opts ...Option) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Logger{
		cfg:              cfg,
		validator:        logentry.NewValidator(cfg.Source, cfg.layerSet()),
		normalizer:       callsite.Normalizer{ProjectRoot: cfg.ProjectRoot},
		frames:           callsite.NewInternalFrames(packagePath),
		reporter:         fallback.New(nil),
		now:              time.Now,
		failureThreshold: DefaultResolutionFailureThreshold,
		state:            &state{},
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.resolver == nil {
		l.resolver = callsite.NewRuntimeResolver(
			callsite.WithInternalFrames(l.frames),
			callsite.WithNormalizer(l.normalizer),
		)
	}
	if l.trace == nil {
		l.trace = tracecontext.NewManager()
	}
	if l.console == nil {
		l.console = newConsole(cfg)
	}
	if l.sender == nil {
		sender, err := newSender(ctx, cfg, l.reporter)
		if err != nil {
			return nil, err
		}
		l.sender = sender
	}

	t, err := transport.New(l.sender, cfg.transportConfig(), transport.WithFallback(l.reporter))
	if err != nil {
		return nil, &ConfigError{Field: "transport", Message: "cannot start transport", Err: err}
	}
	l.transport = t
	l.dedup = dedup.New(cfg.dedupConfig())

	return l, nil
}

// Config returns the configuration the logger was built with.
func (l *Logger) Config() Config {
	return l.cfg
}

// AddCallerSkip returns a logger sharing this pipeline that skips n more
// frames when resolving call sites.
func (l *Logger) AddCallerSkip(n int) *Logger {
	clone := *l
	clone.callerSkip += n
	return &clone
}

// Log builds, validates, deduplicates and dispatches one entry. ctx may carry
// a request id, a user id or an OpenTelemetry span.
func (l *Logger) Log(ctx context.Context, level logentry.Level, layer logentry.Layer, message string, extra map[string]any) {
	l.log(ctx, nil, level, layer, message, extra)
}

// Debug logs at DEBUG.
func (l *Logger) Debug(ctx context.Context, layer logentry.Layer, message string, extra map[string]any) {
	l.log(ctx, nil, logentry.LevelDebug, layer, message, extra)
}

// Info logs at INFO.
func (l *Logger) Info(ctx context.Context, layer logentry.Layer, message string, extra map[string]any) {
	l.log(ctx, nil, logentry.LevelInfo, layer, message, extra)
}

// Warn logs at WARNING.
func (l *Logger) Warn(ctx context.Context, layer logentry.Layer, message string, extra map[string]any) {
	l.log(ctx, nil, logentry.LevelWarning, layer, message, extra)
}

// Error logs at ERROR.
func (l *Logger) Error(ctx context.Context, layer logentry.Layer, message string, extra map[string]any) {
	l.log(ctx, nil, logentry.LevelError, layer, message, extra)
}

// Critical logs at CRITICAL.
func (l *Logger) Critical(ctx context.Context, layer logentry.Layer, message string, extra map[string]any) {
	l.log(ctx, nil, logentry.LevelCritical, layer, message, extra)
}

func (l *Logger) log(ctx context.Context, bound *callsite.Location, level logentry.Level, layer logentry.Layer, message string, extra map[string]any) {
	if l == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.state.panics.Add(1)
			l.report("log call panicked", "panic", fmt.Sprint(r), "message", message)
		}
	}()

	l.state.calls.Add(1)
	entry := l.buildEntry(ctx, bound, level, layer, message, extra)

	if err := l.validator.Validate(entry); err != nil {
		l.state.invalid.Add(1)
		args := []any{"message", message, "error", err.Error()}
		var verr *logentry.ValidationError
		if errors.As(err, &verr) {
			args = append(args, "field", verr.Field)
		}
		l.report("log entry rejected", args...)
		return
	}

	if !l.dedup.ShouldLog(entry) {
		l.state.suppressed.Add(1)
		if l.cfg.DebugFiltered {
			l.report("duplicate log entry filtered",
				"level", entry.Level.String(),
				"layer", string(entry.Layer),
				"message", entry.Message,
			)
		}
		return
	}
	l.state.accepted.Add(1)

	if level.Enabled(l.cfg.TransportMinLevel) {
		// Drops are counted by the transport.
		_ = l.transport.Enqueue(entry)
	}
	if level.Enabled(l.cfg.ConsoleMinLevel) {
		l.console.Print(entry)
	}
}

func (l *Logger) buildEntry(ctx context.Context, bound *callsite.Location, level logentry.Level, layer logentry.Layer, message string, extra map[string]any) logentry.Entry {
	data := logentry.SanitizeExtra(extra)
	ov := takeOverrides(data)

	entry := logentry.Entry{
		Timestamp:  l.now(),
		Source:     l.cfg.Source,
		Level:      level,
		Layer:      layer,
		Message:    message,
		DurationMS: takeDuration(data),
		ExtraData:  data,
	}

	if bound != nil {
		entry.Module = bound.Module
		entry.FilePath = bound.FilePath
	}
	if !ov.complete() {
		origin := l.resolve()
		if bound == nil {
			entry.Module = origin.Module
			entry.FilePath = origin.FilePath
		}
		entry.Function = origin.Function
		entry.LineNumber = origin.Line
	}
	ov.apply(&entry)

	snapshot := l.trace.Snapshot(ctx)
	entry.TraceID = snapshot.TraceID
	entry.RequestID = snapshot.RequestID
	entry.UserID = snapshot.UserID
	return entry
}

func (l *Logger) resolve() callsite.Origin {
	origin := l.resolver.Resolve(l.callerSkip)
	if origin.FilePath == nil && origin.Module == logentry.UnknownValue {
		l.state.consecutiveFailures.Add(1)
	} else {
		l.state.consecutiveFailures.Store(0)
	}
	return origin
}

// overrides holds the reserved keys found in extra data. A key present with a
// null value overrides with null.
type overrides struct {
	module, function *string
	filePath         *string
	hasFilePath      bool
	lineNumber       *int
	hasLineNumber    bool
}

func takeOverrides(data logentry.Extra) overrides {
	var ov overrides
	if v, ok := data[OverrideModule]; ok {
		delete(data, OverrideModule)
		if s, ok := v.(string); ok && s != "" {
			ov.module = &s
		}
	}
	if v, ok := data[OverrideFunction]; ok {
		delete(data, OverrideFunction)
		if s, ok := v.(string); ok && s != "" {
			ov.function = &s
		}
	}
	if v, ok := data[OverrideFilePath]; ok {
		delete(data, OverrideFilePath)
		switch s := v.(type) {
		case nil:
			ov.hasFilePath = true
		case string:
			ov.hasFilePath = true
			if s != "" {
				ov.filePath = &s
			}
		}
	}
	if v, ok := data[OverrideLineNumber]; ok {
		delete(data, OverrideLineNumber)
		if v == nil {
			ov.hasLineNumber = true
		} else if n, ok := toInt(v); ok {
			ov.hasLineNumber = true
			ov.lineNumber = &n
		}
	}
	return ov
}

func (ov overrides) complete() bool {
	return ov.module != nil && ov.function != nil && ov.hasFilePath && ov.hasLineNumber
}

func (ov overrides) apply(e *logentry.Entry) {
	if ov.module != nil {
		e.Module = *ov.module
	}
	if ov.function != nil {
		e.Function = *ov.function
	}
	if ov.hasFilePath {
		e.FilePath = ov.filePath
	}
	if ov.hasLineNumber {
		e.LineNumber = ov.lineNumber
	}
}

func takeDuration(data logentry.Extra) *float64 {
	v, ok := data[DurationKey]
	if !ok {
		return nil
	}
	d, ok := toFloat(v)
	if !ok {
		return nil
	}
	delete(data, DurationKey)
	return &d
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case float32:
		return toInt(float64(n))
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case time.Duration:
		f = float64(n) / float64(time.Millisecond)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (l *Logger) report(msg string, args ...any) {
	defer func() {
		_ = recover()
	}()
	l.reporter.Report(msg, args...)
}

// Flush sends every pending entry and waits for the outcome.
func (l *Logger) Flush(ctx context.Context) error {
	return l.transport.Flush(ctx)
}

// Stats returns the pipeline counters.
func (l *Logger) Stats() Stats {
	s := Stats{
		Calls:                         l.state.calls.Load(),
		Accepted:                      l.state.accepted.Load(),
		Invalid:                       l.state.invalid.Load(),
		Suppressed:                    l.state.suppressed.Load(),
		Panics:                        l.state.panics.Load(),
		ConsecutiveResolutionFailures: l.state.consecutiveFailures.Load(),
		Dedup:                         l.dedup.Stats(),
		Transport:                     l.transport.Stats(),
	}
	if p, ok := l.resolver.(callsite.StatsProvider); ok {
		s.Resolution = p.Stats()
	}
	return s
}

// TransportStats returns the transport counters.
func (l *Logger) TransportStats() transport.Stats {
	return l.transport.Stats()
}

// TraceManager exposes the trace context of the logger.
func (l *Logger) TraceManager() *tracecontext.Manager {
	return l.trace
}

// TraceID returns the session trace id.
func (l *Logger) TraceID() string {
	return l.trace.TraceID()
}

// GenerateRequestID creates a request id and makes it current.
func (l *Logger) GenerateRequestID() string {
	return l.trace.GenerateRequestID()
}

// CurrentRequestID returns the current request id, or "".
func (l *Logger) CurrentRequestID() string {
	return l.trace.CurrentRequestID()
}

// ClearRequestID drops the current request id.
func (l *Logger) ClearRequestID() {
	l.trace.ClearRequestID()
}

// SetUserID tags subsequent entries with id.
func (l *Logger) SetUserID(id string) {
	l.trace.SetUserID(id)
}

// UserID returns the current user id, or "".
func (l *Logger) UserID() string {
	return l.trace.UserID()
}

// ClearUserID drops the current user id.
func (l *Logger) ClearUserID() {
	l.trace.ClearUserID()
}

// Close flushes pending entries and releases the pipeline. Entries logged
// afterwards are still printed but dropped by the transport.
func (l *Logger) Close(ctx context.Context) error {
	l.state.closeOnce.Do(func() {
		l.state.closed.Store(true)
		err := l.transport.Close(ctx)
		l.dedup.Close()
		if s, ok := l.console.(interface{ Sync() error }); ok {
			// Syncing a terminal returns EINVAL on some platforms.
			_ = s.Sync()
		}
		l.state.closeErr = err
	})
	return l.state.closeErr
}
