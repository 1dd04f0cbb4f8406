package gateway

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/timor11/librealsense/metric"
)

// Metrics holds Prometheus metrics for the gateway.
type Metrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	rateLimitedTotal    prometheus.Counter
	clientsConnected    prometheus.Gauge
	connectionsTotal    prometheus.Counter
	disconnectionsTotal *prometheus.CounterVec
	broadcastTotal      *prometheus.CounterVec
	broadcastDropsTotal prometheus.Counter
	broadcastSizeBytes  prometheus.Histogram
}

// newMetrics creates and registers gateway metrics. A nil registry yields
// nil metrics; every call site treats that as metrics disabled.
func newMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rs",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total HTTP requests served",
		}, []string{"route", "code"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rs",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Time to serve one HTTP request",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"route"}),

		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rs",
			Subsystem: "gateway",
			Name:      "rate_limited_total",
			Help:      "Lookup requests rejected by the rate limiter",
		}),

		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rs",
			Subsystem: "gateway",
			Name:      "clients_connected",
			Help:      "Number of currently connected WebSocket clients",
		}),

		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rs",
			Subsystem: "gateway",
			Name:      "client_connections_total",
			Help:      "Total WebSocket client connections (including disconnected)",
		}),

		disconnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rs",
			Subsystem: "gateway",
			Name:      "client_disconnections_total",
			Help:      "Total WebSocket client disconnections",
		}, []string{"reason"}),

		broadcastTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rs",
			Subsystem: "gateway",
			Name:      "metadata_broadcast_total",
			Help:      "Metadata events accepted for broadcast",
		}, []string{"device"}),

		broadcastDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rs",
			Subsystem: "gateway",
			Name:      "metadata_broadcast_dropped_total",
			Help:      "Broadcast events evicted from slow clients' buffers",
		}),

		broadcastSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rs",
			Subsystem: "gateway",
			Name:      "broadcast_size_bytes",
			Help:      "Size distribution of broadcast events",
			Buckets:   []float64{100, 500, 1000, 2000, 5000, 10000, 25000},
		}),
	}

	registry.PrometheusRegistry().MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.rateLimitedTotal,
		m.clientsConnected,
		m.connectionsTotal,
		m.disconnectionsTotal,
		m.broadcastTotal,
		m.broadcastDropsTotal,
		m.broadcastSizeBytes,
	)

	return m
}
