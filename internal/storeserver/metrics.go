package storeserver

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the store server's request-level counters.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Errors    *prometheus.CounterVec
	InFlight  prometheus.Gauge
	Durations prometheus.Histogram
}

// NewMetrics registers the store server metrics on a fresh registry-safe
// set. Register on the default registerer once per process.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Record store requests by collection and operation",
		}, []string{"collection", "operation"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Record store request errors by status code",
		}, []string{"status"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Record store requests currently being served",
		}),
		Durations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Record store request latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(m.Requests, m.Errors, m.InFlight, m.Durations)
	return m
}
