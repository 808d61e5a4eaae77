package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "boltx",
			Subsystem: "risk_api",
			Name:      "latency_seconds",
			Help:      "Latency of risk endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boltx",
			Subsystem: "risk_api",
			Name:      "errors_total",
			Help:      "Errors by risk endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "boltx",
			Subsystem: "risk_api",
			Name:      "stream_clients",
			Help:      "Open risk stream websocket connections",
		},
	)
)

// Register adds the endpoint collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors, StreamClients)
	})
}

// ObserveSince records endpoint latency from start.
func ObserveSince(endpoint string, start time.Time) {
	EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
