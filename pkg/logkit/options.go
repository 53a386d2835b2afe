package logkit

import (
	"time"

	"github.com/JailtonJunior94/logkit/pkg/callsite"
	"github.com/JailtonJunior94/logkit/pkg/fallback"
	"github.com/JailtonJunior94/logkit/pkg/tracecontext"
	"github.com/JailtonJunior94/logkit/pkg/transport"
)

// Option customizes a Logger.
type Option func(*Logger)

// WithResolver replaces the runtime call site resolver.
func WithResolver(r callsite.Resolver) Option {
	return func(l *Logger) {
		if r != nil {
			l.resolver = r
		}
	}
}

// WithSender replaces the sender built from Config.Protocol.
func WithSender(s transport.Sender) Option {
	return func(l *Logger) {
		if s != nil {
			l.sender = s
		}
	}
}

// WithConsole replaces the console built from Config.ConsoleFormat.
func WithConsole(c Console) Option {
	return func(l *Logger) {
		if c != nil {
			l.console = c
		}
	}
}

// WithFallback sets the diagnostic channel for rejected and dropped entries.
func WithFallback(r fallback.Reporter) Option {
	return func(l *Logger) {
		if r != nil {
			l.reporter = r
		}
	}
}

// WithTraceManager shares a trace context manager between loggers.
func WithTraceManager(m *tracecontext.Manager) Option {
	return func(l *Logger) {
		if m != nil {
			l.trace = m
		}
	}
}

// WithCallerSkip skips n extra frames above the logger, for wrappers that
// should not be reported as the call site.
func WithCallerSkip(n int) Option {
	return func(l *Logger) {
		l.callerSkip += n
	}
}

// WithInternalPackages marks additional packages as part of the logging
// machinery so their frames are never reported as call sites.
func WithInternalPackages(pkgPaths ...string) Option {
	return func(l *Logger) {
		l.frames.Register(pkgPaths...)
	}
}

// WithResolutionFailureThreshold sets how many consecutive call site
// resolution failures degrade Health.
func WithResolutionFailureThreshold(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.failureThreshold = uint64(n)
		}
	}
}

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}
