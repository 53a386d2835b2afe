package collector

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthCheckFunc reports an error when a dependency is unhealthy.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus represents the overall health status of the collector.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Stored    int                    `json:"stored"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const healthCheckTimeout = 5 * time.Second

// executeHealthChecks runs every check in parallel under one timeout.
func executeHealthChecks(ctx context.Context, checks map[string]HealthCheckFunc) (map[string]CheckResult, bool) {
	if len(checks) == 0 {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	results := make(map[string]CheckResult, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	hasErrors := false

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()

			err := check(ctx)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				results[name] = CheckResult{Status: "unhealthy", Error: err.Error()}
				hasErrors = true
				return
			}
			results[name] = CheckResult{Status: "healthy"}
		}(name, check)
	}

	wg.Wait()
	return results, hasErrors
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	results, hasErrors := executeHealthChecks(r.Context(), s.healthChecks)

	status := "healthy"
	code := http.StatusOK
	if hasErrors {
		status = "unhealthy"
		code = http.StatusServiceUnavailable

		for name, result := range results {
			if result.Status == "unhealthy" {
				s.logger.WarnContext(r.Context(), "health check failed", "check", name, "error", result.Error)
			}
		}
	}

	writeJSON(w, code, HealthStatus{
		Status:    status,
		Service:   s.config.ServiceName,
		Version:   s.config.ServiceVersion,
		Timestamp: time.Now(),
		Stored:    s.store.Len(),
		Checks:    results,
	})
}

func liveHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
