package logkit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Console prints accepted entries locally. DEBUG and INFO go to the output
// sink, WARNING to the warning sink, ERROR and CRITICAL to the error sink.
type Console interface {
	Print(entry logentry.Entry)
}

// slogLevelCritical renders as CRITICAL through replaceLevel.
const slogLevelCritical = slog.LevelError + 4

// SlogConsole prints entries through log/slog handlers.
type SlogConsole struct {
	out  *slog.Logger
	warn *slog.Logger
	err  *slog.Logger
}

// NewSlogConsole creates a console with text or json handlers. Nil writers
// default to stdout for out and stderr for warn and errOut.
func NewSlogConsole(format ConsoleFormat, out, warn, errOut io.Writer) *SlogConsole {
	if out == nil {
		out = os.Stdout
	}
	if warn == nil {
		warn = os.Stderr
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	return &SlogConsole{
		out:  slog.New(newSlogHandler(format, out)),
		warn: slog.New(newSlogHandler(format, warn)),
		err:  slog.New(newSlogHandler(format, errOut)),
	}
}

func newSlogHandler(format ConsoleFormat, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: replaceLevel,
	}
	if format == ConsoleJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == slogLevelCritical {
			a.Value = slog.StringValue(logentry.LevelCritical.String())
		}
	}
	return a
}

// Print writes one line for entry.
func (c *SlogConsole) Print(entry logentry.Entry) {
	logger, level := c.out, slog.LevelInfo
	switch entry.Level {
	case logentry.LevelDebug:
		level = slog.LevelDebug
	case logentry.LevelWarning:
		logger, level = c.warn, slog.LevelWarn
	case logentry.LevelError:
		logger, level = c.err, slog.LevelError
	case logentry.LevelCritical:
		logger, level = c.err, slogLevelCritical
	}

	logger.LogAttrs(context.Background(), level, consoleMessage(entry), slogAttrs(entry)...)
}

func slogAttrs(entry logentry.Entry) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("module", entry.Module),
		slog.String("function", entry.Function),
	}
	if entry.FilePath != nil {
		attrs = append(attrs, slog.String("file_path", *entry.FilePath))
	}
	if entry.LineNumber != nil {
		attrs = append(attrs, slog.Int("line_number", *entry.LineNumber))
	}
	if entry.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", entry.TraceID))
	}
	if entry.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", entry.RequestID))
	}
	if entry.UserID != "" {
		attrs = append(attrs, slog.String("user_id", entry.UserID))
	}
	if entry.DurationMS != nil {
		attrs = append(attrs, slog.Float64("duration_ms", *entry.DurationMS))
	}
	if len(entry.ExtraData) > 0 {
		attrs = append(attrs, slog.Any("extra_data", map[string]any(entry.ExtraData)))
	}
	return attrs
}

// consoleMessage renders "[LEVEL][Layer] message".
func consoleMessage(entry logentry.Entry) string {
	return fmt.Sprintf("[%s][%s] %s", entry.Level, entry.Layer, entry.Message)
}

// ZapConsole prints entries through a zap logger.
type ZapConsole struct {
	logger *zap.Logger
}

// NewZapConsole wraps an existing zap logger.
func NewZapConsole(logger *zap.Logger) *ZapConsole {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapConsole{logger: logger}
}

// NewZapLogger builds a zap logger that writes levels below WARN to out and
// the rest to errOut. Production uses the JSON encoder, anything else the
// console encoder.
func NewZapLogger(environment string, out, errOut io.Writer) *zap.Logger {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if environment == EnvProduction {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if environment == EnvProduction {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l < zapcore.WarnLevel })
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.WarnLevel })

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(out), low),
		zapcore.NewCore(encoder.Clone(), zapcore.AddSync(errOut), high),
	)
	return zap.New(core)
}

// Print writes one entry. CRITICAL is written at error level with a
// severity field since zap's higher levels terminate the process.
func (c *ZapConsole) Print(entry logentry.Entry) {
	msg := consoleMessage(entry)
	fields := zapFields(entry)

	switch entry.Level {
	case logentry.LevelDebug:
		c.logger.Debug(msg, fields...)
	case logentry.LevelInfo:
		c.logger.Info(msg, fields...)
	case logentry.LevelWarning:
		c.logger.Warn(msg, fields...)
	case logentry.LevelError:
		c.logger.Error(msg, fields...)
	default:
		c.logger.Error(msg, append(fields, zap.String("severity", logentry.LevelCritical.String()))...)
	}
}

// Sync flushes buffered zap output.
func (c *ZapConsole) Sync() error {
	return c.logger.Sync()
}

func zapFields(entry logentry.Entry) []zap.Field {
	fields := []zap.Field{
		zap.String("layer", string(entry.Layer)),
		zap.String("module", entry.Module),
		zap.String("function", entry.Function),
	}
	if entry.FilePath != nil {
		fields = append(fields, zap.String("file_path", *entry.FilePath))
	}
	if entry.LineNumber != nil {
		fields = append(fields, zap.Int("line_number", *entry.LineNumber))
	}
	if entry.TraceID != "" {
		fields = append(fields, zap.String("trace_id", entry.TraceID))
	}
	if entry.RequestID != "" {
		fields = append(fields, zap.String("request_id", entry.RequestID))
	}
	if entry.UserID != "" {
		fields = append(fields, zap.String("user_id", entry.UserID))
	}
	if entry.DurationMS != nil {
		fields = append(fields, zap.Float64("duration_ms", *entry.DurationMS))
	}
	if len(entry.ExtraData) > 0 {
		fields = append(fields, zap.Any("extra_data", map[string]any(entry.ExtraData)))
	}
	return fields
}

// nopConsole is used when the console is switched off.
type nopConsole struct{}

func (nopConsole) Print(logentry.Entry) {}

func newConsole(cfg Config) Console {
	switch cfg.ConsoleFormat {
	case ConsoleOff:
		return nopConsole{}
	case ConsoleZap:
		return NewZapConsole(NewZapLogger(cfg.Environment, nil, nil))
	default:
		return NewSlogConsole(cfg.ConsoleFormat, nil, nil, nil)
	}
}
