// Package testutil provides shared fixtures for proxy integration tests.
//
// It contains canned device self-descriptions (a realistic D435i-style
// camera, a minimal two-stream device, and suffix/collision variants), an
// in-memory NATS client compatible with natsclient.Client's Publish and
// Subscribe signatures, and a testcontainers helper that starts a real NATS
// server for transport-level tests.
//
// Descriptor fixtures go through remote.ParseDescriptor, so every fixture is
// also a schema regression check.
package testutil
