// Package tracecontext holds the correlation identifiers attached to every
// log entry: a session trace id, the current request id and the user id.
//
// The manager keeps a single current request id. Concurrent operations that
// need distinct request ids must thread them through WithRequestID instead of
// relying on GenerateRequestID, which overwrites the shared value.
package tracecontext

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

// Snapshot is the set of identifiers read at log time. Empty fields are
// unbound.
type Snapshot struct {
	TraceID   string
	RequestID string
	UserID    string
}

// Option configures a Manager.
type Option func(*Manager)

// WithTraceIDGenerator replaces NewTraceID.
func WithTraceIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newTraceID = fn
		}
	}
}

// WithRequestIDGenerator replaces NewRequestID.
func WithRequestIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newRequestID = fn
		}
	}
}

// Manager stores the identifiers. It is safe for concurrent use.
type Manager struct {
	mu           sync.RWMutex
	traceID      string
	requestID    string
	userID       string
	newTraceID   func() string
	newRequestID func() string
}

// NewManager creates a manager with no identifiers bound yet.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		newTraceID:   NewTraceID,
		newRequestID: NewRequestID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TraceID returns the session trace id, generating it on first use. The value
// is stable until SetTraceID replaces it.
func (m *Manager) TraceID() string {
	m.mu.RLock()
	id := m.traceID
	m.mu.RUnlock()
	if id != "" {
		return id
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.traceID == "" {
		m.traceID = m.newTraceID()
	}
	return m.traceID
}

// SetTraceID binds the session trace id. An empty id makes the next TraceID
// call generate a fresh one.
func (m *Manager) SetTraceID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traceID = id
}

// GenerateRequestID creates a request id and makes it current.
func (m *Manager) GenerateRequestID() string {
	id := m.newRequestID()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestID = id
	return id
}

// CurrentRequestID returns the current request id, empty when none was
// generated.
func (m *Manager) CurrentRequestID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestID
}

// ClearRequestID unbinds the current request id.
func (m *Manager) ClearRequestID() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestID = ""
}

// SetUserID binds the authenticated user.
func (m *Manager) SetUserID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = id
}

// UserID returns the bound user, empty when anonymous.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

// ClearUserID unbinds the user on logout.
func (m *Manager) ClearUserID() {
	m.SetUserID("")
}

// Snapshot reads the identifiers for one log call. Values carried by ctx take
// precedence: a request or user id set with WithRequestID / WithUserID, and the
// trace id of a valid OpenTelemetry span context.
func (m *Manager) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{TraceID: m.TraceID()}

	m.mu.RLock()
	snap.RequestID = m.requestID
	snap.UserID = m.userID
	m.mu.RUnlock()

	if ctx == nil {
		return snap
	}

	if id := RequestIDFromContext(ctx); id != "" {
		snap.RequestID = id
	}
	if id := UserIDFromContext(ctx); id != "" {
		snap.UserID = id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		snap.TraceID = sc.TraceID().String()
	}
	return snap
}

// NewTraceID returns 32 lowercase hex characters, the W3C trace-id shape.
func NewTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// NewRequestID returns a new ULID string.
func NewRequestID() string {
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
