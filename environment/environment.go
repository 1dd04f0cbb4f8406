// Package environment provides the explicit shared context a process hands
// to its device proxies: the stream identifier allocator and the extrinsics
// graph, with per-device reference counting. Nothing here is a singleton; a
// process may run several environments side by side (tests do).
package environment

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/timor11/librealsense/extrinsics"
)

// Environment owns the state shared across every device proxy built under
// it. Identifier allocation is safe under concurrent device builds; the
// extrinsics graph it hands out is shared by all of them.
type Environment struct {
	id     string
	logger *slog.Logger

	nextID atomic.Int64
	graph  *extrinsics.Graph

	mu   sync.Mutex
	refs map[string]int
}

// Option configures an Environment.
type Option func(*Environment)

// WithLogger sets the logger used for device retain/release bookkeeping.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Environment) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an empty environment with a fresh extrinsics graph.
func New(opts ...Option) *Environment {
	e := &Environment{
		id:     uuid.NewString(),
		logger: slog.Default(),
		graph:  extrinsics.NewGraph(),
		refs:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the environment's instance identifier, used in logs to tell
// environments apart.
func (e *Environment) ID() string {
	return e.id
}

// NextStreamID allocates a process-unique stream identifier. Identifiers are
// monotonic, never reused for the environment's lifetime, and allocation is
// safe from concurrently initializing device proxies.
func (e *Environment) NextStreamID() int {
	return int(e.nextID.Add(1) - 1)
}

// AllocatedStreamIDs returns how many identifiers have been handed out.
func (e *Environment) AllocatedStreamIDs() int {
	return int(e.nextID.Load())
}

// Graph returns the shared extrinsics graph.
func (e *Environment) Graph() *extrinsics.Graph {
	return e.graph
}

// RetainDevice takes a reference on a device's share of the extrinsics
// graph. Every holder that registers nodes for a serial must retain it.
func (e *Environment) RetainDevice(serial string) {
	e.mu.Lock()
	e.refs[serial]++
	count := e.refs[serial]
	e.mu.Unlock()

	e.logger.Debug("device retained", "serial", serial, "refs", count)
}

// ReleaseDevice drops a reference; the final release prunes the device's
// nodes from the extrinsics graph. Releasing an unretained serial is a
// logged no-op.
func (e *Environment) ReleaseDevice(serial string) {
	e.mu.Lock()
	count, ok := e.refs[serial]
	if !ok {
		e.mu.Unlock()
		e.logger.Warn("release of unretained device", "serial", serial)
		return
	}
	count--
	if count > 0 {
		e.refs[serial] = count
		e.mu.Unlock()
		e.logger.Debug("device released", "serial", serial, "refs", count)
		return
	}
	delete(e.refs, serial)
	e.mu.Unlock()

	e.graph.RemoveDevice(serial)
	e.logger.Debug("device pruned from extrinsics graph", "serial", serial)
}

// RetainedDevices returns the serials currently holding graph references.
func (e *Environment) RetainedDevices() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	serials := make([]string, 0, len(e.refs))
	for serial := range e.refs {
		serials = append(serials, serial)
	}
	return serials
}
