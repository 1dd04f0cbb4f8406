package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the topology-level metrics shared by every device proxy
// built in the process. Domain-specific metrics register through the
// MetricsRegistrar interface instead.
type Metrics struct {
	// Device lifecycle metrics
	DeviceStatus  *prometheus.GaugeVec
	BuildDuration *prometheus.HistogramVec
	BuildsFailed  *prometheus.CounterVec

	// Topology metrics
	SensorsBuilt         *prometheus.CounterVec
	StreamsBuilt         *prometheus.CounterVec
	ProfilesBuilt        *prometheus.CounterVec
	IdentifiersAllocated prometheus.Counter

	// Extrinsics metrics
	ExtrinsicsEdges   *prometheus.CounterVec
	ExtrinsicsLookups *prometheus.CounterVec

	// Metadata metrics
	MetadataRouted  *prometheus.CounterVec
	MetadataDropped *prometheus.CounterVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// Device status values reported through DeviceStatus.
const (
	DeviceStatusClosed   = 0
	DeviceStatusBuilding = 1
	DeviceStatusReady    = 2
)

// NewMetrics creates a new Metrics instance with all topology metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Device lifecycle metrics
		DeviceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "rs",
				Subsystem: "device",
				Name:      "status",
				Help:      "Device proxy status (0=closed, 1=building, 2=ready)",
			},
			[]string{"device"},
		),

		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rs",
				Subsystem: "device",
				Name:      "build_duration_seconds",
				Help:      "Device proxy build duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"device"},
		),

		BuildsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rs",
				Subsystem: "device",
				Name:      "builds_failed_total",
				Help:      "Total number of aborted device proxy builds",
			},
			[]string{"device", "reason"},
		),

		// Topology metrics
		SensorsBuilt: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rs",
				Subsystem: "topology",
				Name:      "sensors_built_total",
				Help:      "Total number of sensor proxies created",
			},
			[]string{"device"},
		),

		StreamsBuilt: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rs",
				Subsystem: "topology",
				Name:      "streams_built_total",
				Help:      "Total number of streams adopted",
			},
			[]string{"device", "kind"},
		),

		ProfilesBuilt: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rs",
				Subsystem: "topology",
				Name:      "profiles_built_total",
				Help:      "Total number of profiles built by stage (raw or finalized)",
			},
			[]string{"device", "stage"},
		),

		IdentifiersAllocated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rs",
				Subsystem: "topology",
				Name:      "identifiers_allocated_total",
				Help:      "Total number of stream identifiers handed out",
			},
		),

		// Extrinsics metrics
		ExtrinsicsEdges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rs",
				Subsystem: "extrinsics",
				Name:      "edges_registered_total",
				Help:      "Total number of directed extrinsics edges registered",
			},
			[]string{"device"},
		),

		ExtrinsicsLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rs",
				Subsystem: "extrinsics",
				Name:      "lookups_total",
				Help:      "Total number of extrinsics lookups by outcome (resolved or unreachable)",
			},
			[]string{"outcome"},
		),

		// Metadata metrics
		MetadataRouted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rs",
				Subsystem: "metadata",
				Name:      "routed_total",
				Help:      "Total number of metadata records routed to a sensor",
			},
			[]string{"device", "sensor"},
		),

		MetadataDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rs",
				Subsystem: "metadata",
				Name:      "dropped_total",
				Help:      "Total number of metadata records dropped by reason",
			},
			[]string{"device", "reason"},
		),

		// NATS metrics
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rs",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rs",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rs",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordDeviceStatus updates the device proxy status gauge
func (c *Metrics) RecordDeviceStatus(device string, status int) {
	c.DeviceStatus.WithLabelValues(device).Set(float64(status))
}

// RecordBuildDuration records how long a device proxy build took
func (c *Metrics) RecordBuildDuration(device string, duration time.Duration) {
	c.BuildDuration.WithLabelValues(device).Observe(duration.Seconds())
}

// RecordBuildFailed increments the aborted build counter
func (c *Metrics) RecordBuildFailed(device, reason string) {
	c.BuildsFailed.WithLabelValues(device, reason).Inc()
}

// RecordSensorBuilt increments the sensor proxy counter
func (c *Metrics) RecordSensorBuilt(device string) {
	c.SensorsBuilt.WithLabelValues(device).Inc()
}

// RecordStreamBuilt increments the adopted stream counter
func (c *Metrics) RecordStreamBuilt(device, kind string) {
	c.StreamsBuilt.WithLabelValues(device, kind).Inc()
}

// RecordProfileBuilt increments the profile counter for a build stage
func (c *Metrics) RecordProfileBuilt(device, stage string) {
	c.ProfilesBuilt.WithLabelValues(device, stage).Inc()
}

// RecordIdentifiersAllocated adds to the allocated identifier counter
func (c *Metrics) RecordIdentifiersAllocated(n int) {
	c.IdentifiersAllocated.Add(float64(n))
}

// RecordExtrinsicsEdge increments the registered edge counter
func (c *Metrics) RecordExtrinsicsEdge(device string) {
	c.ExtrinsicsEdges.WithLabelValues(device).Inc()
}

// RecordExtrinsicsLookup increments the lookup counter for an outcome
func (c *Metrics) RecordExtrinsicsLookup(outcome string) {
	c.ExtrinsicsLookups.WithLabelValues(outcome).Inc()
}

// RecordMetadataRouted increments the routed metadata counter
func (c *Metrics) RecordMetadataRouted(device, sensor string) {
	c.MetadataRouted.WithLabelValues(device, sensor).Inc()
}

// RecordMetadataDropped increments the dropped metadata counter
func (c *Metrics) RecordMetadataDropped(device, reason string) {
	c.MetadataDropped.WithLabelValues(device, reason).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
