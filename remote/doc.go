// Package remote defines the boundary to a remote camera: the self-description
// a device publishes (streams, profiles, options, calibration) and the
// asynchronous metadata feed that follows it.
//
// A Device is read-only input. ParseDescriptor validates a self-description
// JSON document against an embedded schema before decoding; NewStaticDevice
// wraps a parsed descriptor for tests and file-fed runs; MetadataSource feeds
// metadata records from a NATS subject into the registered callback.
//
// Wire fields are kebab-case throughout, matching the fixed metadata key
// "stream-name". Transport discovery and wire encoding of the descriptor
// documents live outside this package; callers hand in raw bytes.
package remote
