package logkit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMetricsNamespace prefixes every metric of MetricsCollector.
const DefaultMetricsNamespace = "logkit"

// MetricsCollector exposes Logger.Stats as Prometheus metrics. Values are read
// on every scrape.
type MetricsCollector struct {
	logger *Logger

	calls       *prometheus.Desc
	entries     *prometheus.Desc
	transport   *prometheus.Desc
	batches     *prometheus.Desc
	retries     *prometheus.Desc
	queued      *prometheus.Desc
	resolutions *prometheus.Desc
	tracked     *prometheus.Desc
	healthy     *prometheus.Desc
}

// NewMetricsCollector creates a collector for l. An empty namespace uses
// DefaultMetricsNamespace.
func NewMetricsCollector(l *Logger, namespace string) *MetricsCollector {
	if namespace == "" {
		namespace = DefaultMetricsNamespace
	}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}

	return &MetricsCollector{
		logger:      l,
		calls:       desc("log_calls_total", "Total number of log calls"),
		entries:     desc("entries_total", "Log entries by pipeline outcome", "outcome"),
		transport:   desc("transport_entries_total", "Entries handled by the transport by result", "result"),
		batches:     desc("transport_batches_total", "Total number of batches sent"),
		retries:     desc("transport_retries_total", "Total number of batch send retries"),
		queued:      desc("transport_queue_length", "Entries waiting in the transport buffer"),
		resolutions: desc("callsite_resolutions_total", "Call site resolutions by result", "result"),
		tracked:     desc("dedup_tracked_fingerprints", "Fingerprints held by the deduplicator"),
		healthy:     desc("healthy", "1 when the pipeline is healthy, 0 otherwise"),
	}
}

// Describe implements prometheus.Collector.
func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.calls
	ch <- c.entries
	ch <- c.transport
	ch <- c.batches
	ch <- c.retries
	ch <- c.queued
	ch <- c.resolutions
	ch <- c.tracked
	ch <- c.healthy
}

// Collect implements prometheus.Collector.
func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.logger.Stats()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.calls, s.Calls)
	counter(c.entries, s.Accepted, "accepted")
	counter(c.entries, s.Invalid, "invalid")
	counter(c.entries, s.Suppressed, "suppressed")
	counter(c.entries, s.Panics, "panicked")

	counter(c.transport, s.Transport.Sent, "sent")
	counter(c.transport, s.Transport.Failed, "failed")
	counter(c.transport, s.Transport.Dropped, "dropped")
	counter(c.batches, s.Transport.Batches)
	counter(c.retries, s.Transport.Retries)
	gauge(c.queued, float64(s.Transport.Queued))

	counter(c.resolutions, s.Resolution.Resolved, "resolved")
	counter(c.resolutions, s.Resolution.Failed, "failed")
	gauge(c.tracked, float64(s.Dedup.Tracked))

	healthy := 0.0
	if c.logger.Health().Status == StatusHealthy {
		healthy = 1
	}
	gauge(c.healthy, healthy)
}
