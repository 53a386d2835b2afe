package collector

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts what the collector received.
type Metrics struct {
	Batches prometheus.Counter
	Records *prometheus.CounterVec
	Stored  prometheus.GaugeFunc
	Panics  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, store *Store) (*Metrics, error) {
	m := &Metrics{
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logkit_collector",
			Name:      "batches_total",
			Help:      "Total number of batches received",
		}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logkit_collector",
			Name:      "records_total",
			Help:      "Records received by validation result",
		}, []string{"result"}),
		Stored: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "logkit_collector",
			Name:      "stored_records",
			Help:      "Records currently held in memory",
		}, func() float64 {
			return float64(store.Len())
		}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logkit_collector",
			Name:      "handler_panics_total",
			Help:      "Handler panics recovered",
		}),
	}

	for _, c := range []prometheus.Collector{m.Batches, m.Records, m.Stored, m.Panics} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
