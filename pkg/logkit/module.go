package logkit

import (
	"context"

	"github.com/JailtonJunior94/logkit/pkg/callsite"
	"github.com/JailtonJunior94/logkit/pkg/logentry"
)

// ModuleLogger logs with module and file_path bound to a source path.
// Function and line are still resolved per call.
type ModuleLogger struct {
	logger   *Logger
	location *callsite.Location
}

// ForModule binds path, normalized like a frame location. An unresolvable
// path binds nothing.
func (l *Logger) ForModule(path string) *ModuleLogger {
	m := &ModuleLogger{logger: l}
	if loc := l.normalizer.Normalize(path); loc.FilePath != nil {
		m.location = &loc
	}
	return m
}

// Layer returns a logger for an arbitrary layer.
func (m *ModuleLogger) Layer(layer logentry.Layer) *LayerLogger {
	return &LayerLogger{logger: m.logger, location: m.location, layer: layer}
}

func (m *ModuleLogger) Service() *LayerLogger     { return m.Layer(logentry.LayerService) }
func (m *ModuleLogger) Router() *LayerLogger      { return m.Layer(logentry.LayerRouter) }
func (m *ModuleLogger) Auth() *LayerLogger        { return m.Layer(logentry.LayerAuth) }
func (m *ModuleLogger) Store() *LayerLogger       { return m.Layer(logentry.LayerStore) }
func (m *ModuleLogger) Component() *LayerLogger   { return m.Layer(logentry.LayerComponent) }
func (m *ModuleLogger) Hook() *LayerLogger        { return m.Layer(logentry.LayerHook) }
func (m *ModuleLogger) Performance() *LayerLogger { return m.Layer(logentry.LayerPerformance) }
func (m *ModuleLogger) API() *LayerLogger         { return m.Layer(logentry.LayerAPI) }
func (m *ModuleLogger) Validation() *LayerLogger  { return m.Layer(logentry.LayerValidation) }
func (m *ModuleLogger) Utils() *LayerLogger       { return m.Layer(logentry.LayerUtils) }

// LayerLogger logs with a fixed layer.
type LayerLogger struct {
	logger   *Logger
	location *callsite.Location
	layer    logentry.Layer
}

// Layer returns a logger with layer fixed and no bound module.
func (l *Logger) Layer(layer logentry.Layer) *LayerLogger {
	return &LayerLogger{logger: l, layer: layer}
}

func (ll *LayerLogger) Log(ctx context.Context, level logentry.Level, message string, extra map[string]any) {
	ll.logger.log(ctx, ll.location, level, ll.layer, message, extra)
}

func (ll *LayerLogger) Debug(ctx context.Context, message string, extra map[string]any) {
	ll.logger.log(ctx, ll.location, logentry.LevelDebug, ll.layer, message, extra)
}

func (ll *LayerLogger) Info(ctx context.Context, message string, extra map[string]any) {
	ll.logger.log(ctx, ll.location, logentry.LevelInfo, ll.layer, message, extra)
}

func (ll *LayerLogger) Warn(ctx context.Context, message string, extra map[string]any) {
	ll.logger.log(ctx, ll.location, logentry.LevelWarning, ll.layer, message, extra)
}

func (ll *LayerLogger) Error(ctx context.Context, message string, extra map[string]any) {
	ll.logger.log(ctx, ll.location, logentry.LevelError, ll.layer, message, extra)
}

func (ll *LayerLogger) Critical(ctx context.Context, message string, extra map[string]any) {
	ll.logger.log(ctx, ll.location, logentry.LevelCritical, ll.layer, message, extra)
}
