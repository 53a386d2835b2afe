package logkit

import (
	"fmt"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	CheckPass = "pass"
	CheckWarn = "warn"
	CheckFail = "fail"
)

// bufferWarnRatio is the queue fill ratio that degrades the transport check.
const bufferWarnRatio = 0.9

// HealthStatus is the pipeline health.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// CheckResult is the outcome of one health check.
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Health reports the transport and call site resolution state. A closed
// logger is unhealthy; any failing check degrades it.
func (l *Logger) Health() HealthStatus {
	status := HealthStatus{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult, 2),
		Timestamp: time.Now(),
	}

	if l.state.closed.Load() {
		status.Status = StatusUnhealthy
		status.Message = "logger closed"
		return status
	}

	status.Checks["transport"] = l.checkTransport()
	status.Checks["callsite"] = l.checkCallsite()

	for _, name := range []string{"transport", "callsite"} {
		if status.Checks[name].Status != CheckPass {
			status.Status = StatusDegraded
			status.Message = "health check failed: " + name
			break
		}
	}
	return status
}

func (l *Logger) checkTransport() CheckResult {
	start := time.Now()
	stats := l.transport.Stats()
	result := CheckResult{Status: CheckPass}

	switch {
	case !stats.Healthy():
		result.Status = CheckFail
		result.Message = "last batch was dropped"
		result.Error = stats.LastError
	case float64(stats.Queued) >= float64(l.cfg.MaxBufferSize)*bufferWarnRatio:
		result.Status = CheckWarn
		result.Message = fmt.Sprintf("buffer %d/%d", stats.Queued, l.cfg.MaxBufferSize)
	}

	result.Duration = time.Since(start)
	return result
}

func (l *Logger) checkCallsite() CheckResult {
	start := time.Now()
	failures := l.state.consecutiveFailures.Load()
	result := CheckResult{Status: CheckPass}

	if failures >= l.failureThreshold {
		result.Status = CheckWarn
		result.Message = fmt.Sprintf("%d consecutive call sites unresolved", failures)
	}

	result.Duration = time.Since(start)
	return result
}
