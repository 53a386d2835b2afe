package tracecontext_test

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/tracecontext"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace"
)

var traceIDShape = regexp.MustCompile(`^[0-9a-f]{32}$`)

type ManagerSuite struct {
	suite.Suite

	ctx     context.Context
	manager *tracecontext.Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.manager = tracecontext.NewManager()
}

func (s *ManagerSuite) TestTraceIDIsGeneratedOnceAndStable() {
	first := s.manager.TraceID()

	s.Regexp(traceIDShape, first)
	s.Equal(first, s.manager.TraceID())
}

func (s *ManagerSuite) TestSetTraceID() {
	s.manager.SetTraceID("4bf92f3577b34da6a3ce929d0e0e4736")
	s.Equal("4bf92f3577b34da6a3ce929d0e0e4736", s.manager.TraceID())

	s.manager.SetTraceID("")
	regenerated := s.manager.TraceID()
	s.Regexp(traceIDShape, regenerated)
	s.NotEqual("4bf92f3577b34da6a3ce929d0e0e4736", regenerated)
}

func (s *ManagerSuite) TestGenerateRequestID() {
	s.Empty(s.manager.CurrentRequestID())

	first := s.manager.GenerateRequestID()
	_, err := ulid.Parse(first)
	s.NoError(err)
	s.Equal(first, s.manager.CurrentRequestID())

	second := s.manager.GenerateRequestID()
	s.NotEqual(first, second)
	s.Equal(second, s.manager.CurrentRequestID())

	s.manager.ClearRequestID()
	s.Empty(s.manager.CurrentRequestID())
}

func (s *ManagerSuite) TestUserLifecycle() {
	s.Empty(s.manager.UserID())

	s.manager.SetUserID("user-42")
	s.Equal("user-42", s.manager.UserID())

	s.manager.ClearUserID()
	s.Empty(s.manager.UserID())
}

func (s *ManagerSuite) TestSnapshotUsesManagerValues() {
	s.manager.SetTraceID("4bf92f3577b34da6a3ce929d0e0e4736")
	requestID := s.manager.GenerateRequestID()
	s.manager.SetUserID("user-42")

	snap := s.manager.Snapshot(s.ctx)

	s.Equal(tracecontext.Snapshot{
		TraceID:   "4bf92f3577b34da6a3ce929d0e0e4736",
		RequestID: requestID,
		UserID:    "user-42",
	}, snap)
}

func (s *ManagerSuite) TestSnapshotPrefersContextValues() {
	s.manager.GenerateRequestID()
	s.manager.SetUserID("user-42")

	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	s.Require().NoError(err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	s.Require().NoError(err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	ctx := trace.ContextWithSpanContext(s.ctx, sc)
	ctx = tracecontext.WithRequestID(ctx, "req-from-ctx")
	ctx = tracecontext.WithUserID(ctx, "user-from-ctx")

	snap := s.manager.Snapshot(ctx)

	s.Equal("0af7651916cd43dd8448eb211c80319c", snap.TraceID)
	s.Equal("req-from-ctx", snap.RequestID)
	s.Equal("user-from-ctx", snap.UserID)
}

func (s *ManagerSuite) TestSnapshotIgnoresInvalidSpanContext() {
	s.manager.SetTraceID("4bf92f3577b34da6a3ce929d0e0e4736")
	ctx := trace.ContextWithSpanContext(s.ctx, trace.SpanContext{})

	s.Equal("4bf92f3577b34da6a3ce929d0e0e4736", s.manager.Snapshot(ctx).TraceID)
}

func (s *ManagerSuite) TestInjectedGenerators() {
	m := tracecontext.NewManager(
		tracecontext.WithTraceIDGenerator(func() string { return "trace-fixed" }),
		tracecontext.WithRequestIDGenerator(func() string { return "request-fixed" }),
	)

	s.Equal("trace-fixed", m.TraceID())
	s.Equal("request-fixed", m.GenerateRequestID())
}

func (s *ManagerSuite) TestConcurrentAccess() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.manager.GenerateRequestID()
			s.manager.SetUserID("user")
			_ = s.manager.Snapshot(s.ctx)
			_ = s.manager.TraceID()
		}()
	}
	wg.Wait()

	snap := s.manager.Snapshot(s.ctx)
	s.Regexp(traceIDShape, snap.TraceID)
	s.NotEmpty(snap.RequestID)
	s.Equal("user", snap.UserID)
}

func TestNewTraceIDIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := tracecontext.NewTraceID()
		if !traceIDShape.MatchString(id) {
			t.Fatalf("unexpected trace id %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate trace id %q", id)
		}
		seen[id] = struct{}{}
	}
}
