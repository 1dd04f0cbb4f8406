// Package librealsense provides the topology-adaptation layer for remote
// RealSense depth cameras: it adopts a camera's self-description, published
// over NATS, into a locally consistent device/sensor/stream model and keeps
// per-frame metadata flowing to the right stream.
//
// # Architecture
//
// A remote camera announces itself with a JSON descriptor naming its
// sensors, streams, profiles and extrinsics. The proxy rebuilds that
// topology locally in three passes and then routes live metadata into it:
//
//	┌─────────────────────────────────────┐
//	│         Remote Device               │  descriptor + metadata
//	│   (NATS subjects per camera)        │  over pub/sub
//	└─────────────────────────────────────┘
//	           ↓ adopted by
//	┌─────────────────────────────────────┐
//	│         Device Proxy                │  three-pass build:
//	│  (sensors, streams, profiles)       │  declare, finalize, link
//	└─────────────────────────────────────┘
//	           ↓ registered into
//	┌─────────────────────────────────────┐
//	│  Environment + Extrinsics Graph     │  shared stream identity,
//	│     (BFS lookup, path cache)        │  directed transform lookups
//	└─────────────────────────────────────┘
//	           ↓ served by
//	┌─────────────────────────────────────┐
//	│       Gateway + Metrics             │  REST, WebSocket feed,
//	│   (read-only HTTP surface)          │  Prometheus
//	└─────────────────────────────────────┘
//
// # Packages
//
// Domain model:
//   - stream: stream kinds, profiles, intrinsics, name/index conventions
//   - remote: descriptor parsing and validation, the remote Device
//     interface, NATS metadata sources, live and file-fed devices
//   - sensor: sensor proxies with options, recommended filters, and
//     bounded per-stream metadata queues
//   - extrinsics: directed transform graph with breadth-first lookup and
//     a generation-invalidated path cache
//   - environment: shared context owning stream identity and the graph
//   - proxy: the device build (three passes) and the metadata router
//
// Infrastructure:
//   - natsclient: NATS connection management
//   - gateway: read-only HTTP/WebSocket surface over built proxies
//   - metric: Prometheus metrics registry and server
//   - config: configuration loading and validation
//   - errors: structured error handling
//   - pkg/ring: bounded FIFO with drop accounting
//   - pkg/timestamp: capture timestamps and clock domains
//
// # Usage
//
// Adopting one camera:
//
//	// Connect to the broker
//	natsClient, _ := natsclient.NewClient("nats://localhost:4222")
//	natsClient.Connect(ctx)
//
//	// Parse its descriptor and attach the metadata feed
//	desc, _ := remote.ParseDescriptor(data)
//	subject := remote.MetadataSubject(desc.Device.TopicRoot)
//	source := remote.NewMetadataSource(natsClient, subject, logger)
//	dev := remote.NewLiveDevice(desc, source)
//
//	// Rebuild its topology locally, then start the feed
//	env := environment.New()
//	p, _ := proxy.New(env, dev)
//	dev.Start(ctx)
//
// The rs-proxyd binary wires the same sequence from a YAML config for any
// number of devices and serves the result over HTTP and Prometheus.
//
// # Design Principles
//
// Fail-fast construction:
//   - A descriptor either adopts completely or not at all
//   - Duplicate streams, unknown formats and dangling references abort
//     the build
//
// Non-blocking hot path:
//   - Metadata routing never waits on consumers
//   - Bounded queues drop oldest and account for every drop
//
// Testability:
//   - Explicit dependencies (no globals)
//   - File-fed devices stand in for live cameras
//   - Integration tests with testcontainers
package librealsense
