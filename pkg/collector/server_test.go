package collector_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/collector"
	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func record(level any, layer, message string) map[string]any {
	return map[string]any{
		"timestamp":   "2024-05-01T12:00:00.000Z",
		"source":      "frontend",
		"level":       level,
		"layer":       layer,
		"message":     message,
		"module":      "features.registration",
		"function":    "Submit",
		"file_path":   "features/registration/form.go",
		"line_number": 42,
		"extra_data":  map[string]any{},
	}
}

type CollectorSuite struct {
	suite.Suite
	srv     *collector.Server
	handler http.Handler
}

func TestCollectorSuite(t *testing.T) {
	suite.Run(t, new(CollectorSuite))
}

func (s *CollectorSuite) SetupTest() {
	srv, err := collector.New(
		collector.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		collector.WithMaxStored(5),
	)
	s.Require().NoError(err)
	s.srv = srv
	s.handler = srv.Handler()
}

func (s *CollectorSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *CollectorSuite) TestAcceptsValidBatch() {
	rec := s.do(http.MethodPost, "/api/logs", []any{
		record("INFO", "Component", "rendered"),
		record(40, "API", "request failed"),
	})

	s.Equal(http.StatusAccepted, rec.Code)
	s.NotEmpty(rec.Header().Get("X-Request-ID"))

	var resp collector.IngestResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(2, resp.Accepted)
	s.Zero(resp.Rejected)
	s.Equal(2, s.srv.Store().Len())
}

func (s *CollectorSuite) TestRejectsRecordWithoutLineNumber() {
	invalid := record("INFO", "Component", "no line")
	delete(invalid, "line_number")
	nullLine := record("INFO", "Component", "null line")
	nullLine["line_number"] = nil

	rec := s.do(http.MethodPost, "/api/logs", []any{invalid, nullLine, "not an object"})

	s.Equal(http.StatusAccepted, rec.Code)
	var resp collector.IngestResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(1, resp.Accepted)
	s.Equal(2, resp.Rejected)
	s.Require().Len(resp.Errors, 2)
	s.Equal(collector.RecordError{Index: 0, Field: "line_number", Reason: "is missing"}, resp.Errors[0])
	s.Equal(2, resp.Errors[1].Index)
	s.Equal("record", resp.Errors[1].Field)
}

func (s *CollectorSuite) TestAllInvalidIsUnprocessable() {
	wrongSource := record("INFO", "Component", "x")
	wrongSource["source"] = "backend"
	unknownLayer := record("INFO", "Database", "y")

	rec := s.do(http.MethodPost, "/api/logs", []any{wrongSource, unknownLayer})

	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Zero(s.srv.Store().Len())
}

func (s *CollectorSuite) TestRejectsNonArrayBody() {
	for _, body := range []string{`{"message":"x"}`, `null`, `not json`, ``} {
		rec := s.do(http.MethodPost, "/api/logs", body)
		s.Equal(http.StatusBadRequest, rec.Code, "body %q", body)

		var problem collector.ProblemDetail
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &problem))
		s.Equal(http.StatusBadRequest, problem.Status)
		s.Equal("/api/logs", problem.Instance)
		s.NotEmpty(problem.RequestID)
	}
}

func (s *CollectorSuite) TestEmptyArrayIsAccepted() {
	rec := s.do(http.MethodPost, "/api/logs", "[]")
	s.Equal(http.StatusAccepted, rec.Code)
}

func (s *CollectorSuite) TestListFiltersAndBoundsWindow() {
	levels := []any{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL", 40, "INFO"}
	batch := make([]any, 0, len(levels))
	for i, lvl := range levels {
		batch = append(batch, record(lvl, "Store", "message "+string(rune('a'+i))))
	}
	s.Require().Equal(http.StatusAccepted, s.do(http.MethodPost, "/api/logs", batch).Code)

	var all collector.ListResponse
	s.Require().NoError(json.Unmarshal(s.do(http.MethodGet, "/api/logs", nil).Body.Bytes(), &all))
	s.Equal(5, all.Total)
	s.Equal(uint64(2), all.Evicted)
	s.Equal("message c", all.Records[0].Entry["message"])

	var errorsOnly collector.ListResponse
	s.Require().NoError(json.Unmarshal(s.do(http.MethodGet, "/api/logs?level=error", nil).Body.Bytes(), &errorsOnly))
	s.Equal(3, errorsOnly.Total)

	var newest collector.ListResponse
	s.Require().NoError(json.Unmarshal(s.do(http.MethodGet, "/api/logs?limit=1", nil).Body.Bytes(), &newest))
	s.Require().Len(newest.Records, 1)
	s.Equal("message g", newest.Records[0].Entry["message"])

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/logs?level=loud", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/logs?limit=-1", nil).Code)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/logs", nil).Code)
	s.Zero(s.srv.Store().Len())
}

func (s *CollectorSuite) TestPropagatesRequestID() {
	req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader("[]"))
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()

	s.handler.ServeHTTP(rec, req)

	s.Equal("req-123", rec.Header().Get("X-Request-ID"))
}

func (s *CollectorSuite) TestHealthAndMetrics() {
	s.do(http.MethodPost, "/api/logs", []any{record("INFO", "API", "ok"), record("INFO", "Nope", "bad")})

	health := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, health.Code)
	var status collector.HealthStatus
	s.Require().NoError(json.Unmarshal(health.Body.Bytes(), &status))
	s.Equal("healthy", status.Status)
	s.Equal(1, status.Stored)

	metrics := s.do(http.MethodGet, "/metrics", nil)
	s.Equal(http.StatusOK, metrics.Code)
	s.Contains(metrics.Body.String(), `logkit_collector_records_total{result="accepted"} 1`)
	s.Contains(metrics.Body.String(), `logkit_collector_records_total{result="rejected"} 1`)
	s.Contains(metrics.Body.String(), "logkit_collector_stored_records 1")

	families, err := s.srv.Registry().Gather()
	s.Require().NoError(err)
	s.Len(families, 4)
}

func (s *CollectorSuite) TestBodyLimit() {
	srv, err := collector.New(
		collector.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		collector.WithBodyLimit(64),
	)
	s.Require().NoError(err)

	batch := []any{record("INFO", "API", strings.Repeat("x", 200))}
	payload, _ := json.Marshal(batch)
	req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	s.Equal(http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFailingHealthCheck(t *testing.T) {
	srv, err := collector.New(
		collector.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		collector.WithHealthChecks(map[string]collector.HealthCheckFunc{
			"disk": func(context.Context) error { return assert.AnError },
		}),
	)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status collector.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Checks["disk"].Status)
}

func TestPanicIsRecovered(t *testing.T) {
	srv, err := collector.New(
		collector.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		collector.WithMiddleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/live" {
					panic("handler exploded")
				}
				next.ServeHTTP(w, r)
			})
		}),
	)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	expected := `
# HELP logkit_collector_handler_panics_total Handler panics recovered
# TYPE logkit_collector_handler_panics_total counter
logkit_collector_handler_panics_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(srv.Registry(), strings.NewReader(expected), "logkit_collector_handler_panics_total"))
}

func TestCORS(t *testing.T) {
	cfg := collector.DefaultConfig()
	cfg.CORSOrigins = "http://localhost:5173"
	srv, err := collector.New(
		collector.WithConfig(cfg),
		collector.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	preflight := httptest.NewRequest(http.MethodOptions, "/api/logs", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, preflight)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	foreign := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader("[]"))
	foreign.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, foreign)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConfigValidate(t *testing.T) {
	tests := map[string]func(*collector.Config){
		"empty address":  func(c *collector.Config) { c.Address = " " },
		"empty source":   func(c *collector.Config) { c.Source = "" },
		"zero body":      func(c *collector.Config) { c.BodyLimit = 0 },
		"zero window":    func(c *collector.Config) { c.MaxStored = 0 },
		"mixed wildcard": func(c *collector.Config) { c.CORSOrigins = "*,http://a" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := collector.DefaultConfig()
			mutate(&cfg)
			_, err := collector.New(collector.WithConfig(cfg))
			assert.Error(t, err)
		})
	}

	assert.NoError(t, collector.DefaultConfig().Validate())
}

func TestStoreLevels(t *testing.T) {
	store := collector.NewStore(10)
	store.Add(
		collector.Record{Entry: map[string]any{"level": "WARNING"}},
		collector.Record{Entry: map[string]any{"level": float64(50)}},
		collector.Record{Entry: map[string]any{"level": "bogus"}},
	)

	assert.Len(t, store.List(0, 0), 3)
	assert.Len(t, store.List(logentry.LevelWarning, 0), 2)
	assert.Len(t, store.List(logentry.LevelCritical, 0), 1)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("COLLECTOR_ADDRESS", ":9090")
	t.Setenv("COLLECTOR_MAX_STORED", "42")
	t.Setenv("COLLECTOR_LAYERS", "API,Store")

	cfg, err := collector.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, 42, cfg.MaxStored)
	assert.Equal(t, []logentry.Layer{logentry.LayerAPI, logentry.LayerStore}, cfg.Layers)
	assert.Equal(t, "frontend", cfg.Source)

	t.Setenv("COLLECTOR_MAX_STORED", "0")
	_, err = collector.LoadConfig()
	assert.Error(t, err)
}
