package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/JailtonJunior94/logkit/pkg/tracecontext"
	"github.com/prometheus/client_golang/prometheus"
)

const requestIDHeader = "X-Request-ID"

// RequestIDFromContext returns the request id bound by the collector
// middleware. It is the same key logkit reads, so handlers logging through
// logkit carry the collector request id.
func RequestIDFromContext(ctx context.Context) string {
	return tracecontext.RequestIDFromContext(ctx)
}

// responseWriter tracks whether headers were sent so a recovered panic does
// not write twice.
type responseWriter struct {
	http.ResponseWriter
	mu            sync.Mutex
	headerWritten bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if !rw.headerWritten {
		rw.headerWritten = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.headerWritten = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) written() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.headerWritten
}

// recoverMiddleware turns a handler panic into a 500 problem response and
// counts it.
func recoverMiddleware(logger *slog.Logger, panics prometheus.Counter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}

			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}

				panics.Inc()
				logger.ErrorContext(r.Context(), "collector handler panicked",
					slog.String("path", r.URL.Path),
					slog.String("method", r.Method),
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("panic", fmt.Sprint(recovered)),
					slog.String("stack", string(debug.Stack())),
				)

				if !rw.written() {
					writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// requestIDMiddleware propagates the caller's X-Request-ID or mints a ULID
// in the same format logkit generates.
func requestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if requestID == "" {
				requestID = tracecontext.NewRequestID()
			}

			w.Header().Set(requestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(tracecontext.WithRequestID(r.Context(), requestID)))
		})
	}
}

// bodyLimitMiddleware enforces a maximum request body size, with or without
// a Content-Length header.
func bodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			if r.ContentLength > maxBytes {
				writeErrorResponse(w, r, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytes))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
