package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("test-gateway", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	// Verify the counter is registered in the underlying Prometheus registry
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_counter" {
			found = true
			break
		}
	}
	assert.True(t, found, "counter should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterGaugeVec(t *testing.T) {
	registry := NewMetricsRegistry()

	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "test_clients",
		Help: "Connected clients by endpoint",
	}, []string{"endpoint"})

	err := registry.RegisterGaugeVec("test-gateway", "test_clients", gaugeVec)
	require.NoError(t, err)

	// Vector metrics only appear in Gather() once a label combination exists
	gaugeVec.WithLabelValues("/ws/metadata").Set(3)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_clients" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, 3.0, mf.GetMetric()[0].GetGauge().GetValue())
			break
		}
	}
	assert.True(t, found, "gauge vector should be registered in Prometheus registry")
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter",
	})

	counter2 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter", // Same help to avoid Prometheus validation error
	})

	// First registration should succeed
	err := registry.RegisterCounter("component1", "duplicate_counter", counter1)
	require.NoError(t, err)

	// Same component-scoped key fails our tracking before Prometheus sees it
	err = registry.RegisterCounter("component1", "duplicate_counter", counter1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate metric registration")

	// Same Prometheus name under a different component fails at Prometheus
	err = registry.RegisterCounter("component2", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestMetricsRegistry_UnregisterMetric(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})

	err := registry.RegisterCounter("test-gateway", "unregister_counter", counter)
	require.NoError(t, err)

	success := registry.Unregister("test-gateway", "unregister_counter")
	assert.True(t, success)

	// Verify it's no longer registered
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "unregister_counter" {
			found = true
			break
		}
	}
	assert.False(t, found)

	// Unregistering again reports false
	assert.False(t, registry.Unregister("test-gateway", "unregister_counter"))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	// Register metrics concurrently
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "A concurrent counter",
			})

			err := registry.RegisterCounter("concurrent-component",
				fmt.Sprintf("concurrent_counter_%d", id), counter)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	// Verify all metrics were registered
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	counterCount := 0
	for _, mf := range metricFamilies {
		if strings.HasPrefix(mf.GetName(), "concurrent_counter_") {
			counterCount++
		}
	}

	assert.Equal(t, numGoroutines, counterCount,
		"all concurrent counters should be registered")
}

func TestMetricsRegistrar_Interface(t *testing.T) {
	registry := NewMetricsRegistry()

	var registrar MetricsRegistrar = registry
	assert.NotNil(t, registrar)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interface_counter",
		Help: "Counter registered through interface",
	})

	err := registrar.RegisterCounter("interface-component", "interface_counter", counter)
	require.NoError(t, err)
}

func TestMetricsRegistry_CoreMetricsInitialization(t *testing.T) {
	registry := NewMetricsRegistry()

	// Vector metrics don't appear in Gather() until they have at least one
	// label combination, so record through every core metric first.
	coreMetrics := registry.CoreMetrics()

	coreMetrics.RecordDeviceStatus("943222071234", DeviceStatusReady)
	coreMetrics.RecordBuildDuration("943222071234", 12*time.Millisecond)
	coreMetrics.RecordBuildFailed("943222071234", "duplicate-stream")
	coreMetrics.RecordSensorBuilt("943222071234")
	coreMetrics.RecordStreamBuilt("943222071234", "depth")
	coreMetrics.RecordProfileBuilt("943222071234", "raw")
	coreMetrics.RecordIdentifiersAllocated(5)
	coreMetrics.RecordExtrinsicsEdge("943222071234")
	coreMetrics.RecordExtrinsicsLookup("resolved")
	coreMetrics.RecordMetadataRouted("943222071234", "Stereo Module")
	coreMetrics.RecordMetadataDropped("943222071234", "unknown-stream")
	coreMetrics.RecordNATSStatus(true)
	coreMetrics.RecordNATSRTT(50 * time.Millisecond)
	coreMetrics.RecordNATSReconnect()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	expectedCoreMetrics := []string{
		"rs_device_status",
		"rs_device_build_duration_seconds",
		"rs_device_builds_failed_total",
		"rs_topology_sensors_built_total",
		"rs_topology_streams_built_total",
		"rs_topology_profiles_built_total",
		"rs_topology_identifiers_allocated_total",
		"rs_extrinsics_edges_registered_total",
		"rs_extrinsics_lookups_total",
		"rs_metadata_routed_total",
		"rs_metadata_dropped_total",
		"rs_nats_connected",
		"rs_nats_rtt_milliseconds",
		"rs_nats_reconnects_total",
	}

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	for _, expectedMetric := range expectedCoreMetrics {
		assert.True(t, foundMetrics[expectedMetric],
			"core metric %s should be initialized", expectedMetric)
	}
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	coreMetrics := registry.CoreMetrics()

	coreMetrics.RecordStreamBuilt("000000000001", "depth")
	coreMetrics.RecordStreamBuilt("000000000001", "depth")
	coreMetrics.RecordStreamBuilt("000000000001", "color")

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	var depthCount, colorCount float64
	for _, mf := range metricFamilies {
		if mf.GetName() != "rs_topology_streams_built_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "kind" && label.GetValue() == "depth" {
					depthCount = m.GetCounter().GetValue()
				}
				if label.GetName() == "kind" && label.GetValue() == "color" {
					colorCount = m.GetCounter().GetValue()
				}
			}
		}
	}

	assert.Equal(t, 2.0, depthCount)
	assert.Equal(t, 1.0, colorCount)
}
