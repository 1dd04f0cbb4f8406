// Package ring provides a small thread-safe bounded FIFO with configurable
// overflow behavior and always-on drop accounting. It backs the per-stream
// metadata queues inside sensor proxies and the per-client broadcast buffers
// of the gateway.
package ring

import "sync"

// Policy selects what happens when a full ring is pushed to.
type Policy int

const (
	// DropOldest evicts the oldest queued item to make room for the new one.
	DropOldest Policy = iota
	// DropNewest discards the pushed item and leaves the ring unchanged.
	DropNewest
)

// String returns a human-readable representation of the policy.
func (p Policy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// DropFunc observes every item discarded by the overflow policy. It runs
// outside the ring's lock, so it may safely touch the ring again.
type DropFunc[T any] func(item T)

type options[T any] struct {
	policy Policy
	onDrop DropFunc[T]
}

// Option configures a Ring at construction.
type Option[T any] func(*options[T])

// WithPolicy overrides the default DropOldest overflow policy.
func WithPolicy[T any](p Policy) Option[T] {
	return func(o *options[T]) { o.policy = p }
}

// WithDropFunc installs a callback invoked once per dropped item.
func WithDropFunc[T any](fn DropFunc[T]) Option[T] {
	return func(o *options[T]) { o.onDrop = fn }
}

// Stats is a point-in-time snapshot of a ring's accounting. Pushed counts
// only items that made it into the ring; Dropped counts evictions and
// discards regardless of policy.
type Stats struct {
	Pushed  uint64 `json:"pushed"`
	Popped  uint64 `json:"popped"`
	Dropped uint64 `json:"dropped"`
	Len     int    `json:"len"`
	Cap     int    `json:"cap"`
}

// Ring is a fixed-capacity FIFO safe for concurrent use. The zero value is
// not usable; construct with New.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	head  int // next write position
	tail  int // next read position
	size  int

	pushed  uint64
	popped  uint64
	dropped uint64

	opts options[T]
}

// New creates a ring holding at most capacity items. A capacity below one is
// raised to one.
func New[T any](capacity int, opts ...Option[T]) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	o := options[T]{policy: DropOldest}
	for _, opt := range opts {
		opt(&o)
	}
	return &Ring[T]{
		items: make([]T, capacity),
		opts:  o,
	}
}

// Push adds an item to the ring. When the ring is full the overflow policy
// decides which item is dropped; the drop callback, if any, sees it.
func (r *Ring[T]) Push(item T) {
	var victim T
	var evicted bool

	r.mu.Lock()
	if r.size == len(r.items) {
		r.dropped++
		if r.opts.policy == DropNewest {
			r.mu.Unlock()
			if r.opts.onDrop != nil {
				r.opts.onDrop(item)
			}
			return
		}
		var zero T
		victim = r.items[r.tail]
		r.items[r.tail] = zero
		r.tail = (r.tail + 1) % len(r.items)
		r.size--
		evicted = true
	}

	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	r.size++
	r.pushed++
	r.mu.Unlock()

	if evicted && r.opts.onDrop != nil {
		r.opts.onDrop(victim)
	}
}

// Pop removes and returns the oldest item. The second return is false when
// the ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}

	item := r.items[r.tail]
	r.items[r.tail] = zero
	r.tail = (r.tail + 1) % len(r.items)
	r.size--
	r.popped++
	return item, true
}

// Snapshot returns the queued items oldest first without removing them.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.tail+i)%len(r.items)]
	}
	return out
}

// Len returns the number of queued items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the ring's fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Clear discards all queued items. Cleared items do not count as drops and
// never reach the drop callback.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head, r.tail, r.size = 0, 0, 0
}

// Stats returns a snapshot of the ring's accounting.
func (r *Ring[T]) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Pushed:  r.pushed,
		Popped:  r.popped,
		Dropped: r.dropped,
		Len:     r.size,
		Cap:     len(r.items),
	}
}
