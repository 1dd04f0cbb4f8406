// Package metric provides Prometheus-based metrics collection and an HTTP
// server for monitoring the topology layer.
//
// A MetricsRegistry carries a dedicated Prometheus registry with the topology
// metrics pre-registered: device build lifecycle, streams/sensors/profiles
// built, extrinsics edges and lookup outcomes, metadata routing, and NATS
// connectivity. Components record through the shared Metrics instance:
//
//	registry := metric.NewMetricsRegistry()
//	core := registry.CoreMetrics()
//	core.RecordDeviceStatus("943222071234", metric.DeviceStatusReady)
//	core.RecordMetadataRouted("943222071234", "Stereo Module")
//
// Additional component-specific metrics register through the
// MetricsRegistrar interface; duplicate names within a component are
// rejected. The Server exposes everything in OpenMetrics format:
//
//	server := metric.NewServer(9090, "/metrics", registry)
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server: %v", err)
//	    }
//	}()
//	defer server.Stop()
//
// All registration methods are safe for concurrent use; recording is
// lock-free per the Prometheus client guarantees. Everything hangs off a
// per-registry prometheus.Registry rather than the global default, so tests
// can run registries side by side.
package metric
