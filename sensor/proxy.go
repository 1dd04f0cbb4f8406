package sensor

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/timor11/librealsense/errors"
	"github.com/timor11/librealsense/pkg/ring"
	"github.com/timor11/librealsense/remote"
	"github.com/timor11/librealsense/stream"
)

const component = "SensorProxy"

// defaultMetadataDepth bounds how many pending metadata records each stream
// keeps for frame matching before the oldest is dropped.
const defaultMetadataDepth = 8

// Proxy is the local stand-in for one physical sensor of a remote device.
// It is assembled by the device build: streams attach one by one, raw
// profiles accumulate, then FinalizeInit produces the finalized set.
// Metadata intake is safe concurrently with reads at any point after
// construction.
type Proxy struct {
	name          string
	index         int
	logger        *slog.Logger
	finalizer     Finalizer
	metadataDepth int

	mu          sync.RWMutex
	streams     map[stream.SID]remote.Stream
	options     []remote.Option
	optionNames map[string]struct{}
	filters     []string
	filterNames map[string]struct{}
	raw         []stream.Profile
	finalized   []stream.Profile
	done        bool

	pending map[string]*ring.Ring[remote.Metadata]
	dropped atomic.Uint64
}

// ProxyOption configures a Proxy at construction.
type ProxyOption func(*Proxy)

// WithLogger sets the logger used for finalization and intake diagnostics.
func WithLogger(logger *slog.Logger) ProxyOption {
	return func(s *Proxy) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFinalizer replaces the default profile finalizer.
func WithFinalizer(f Finalizer) ProxyOption {
	return func(s *Proxy) {
		if f != nil {
			s.finalizer = f
		}
	}
}

// WithMetadataDepth overrides the per-stream pending metadata bound.
func WithMetadataDepth(n int) ProxyOption {
	return func(s *Proxy) {
		if n > 0 {
			s.metadataDepth = n
		}
	}
}

// New creates the proxy for a named sensor. The index is the sensor's
// first-seen position during the device build and never changes.
func New(name string, index int, opts ...ProxyOption) *Proxy {
	s := &Proxy{
		name:          name,
		index:         index,
		logger:        slog.Default(),
		finalizer:     PreservingFinalizer{},
		metadataDepth: defaultMetadataDepth,
		streams:       make(map[stream.SID]remote.Stream),
		optionNames:   make(map[string]struct{}),
		filterNames:   make(map[string]struct{}),
		pending:       make(map[string]*ring.Ring[remote.Metadata]),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the sensor name shared by its member streams.
func (s *Proxy) Name() string { return s.name }

// Index returns the sensor's creation-order index within its device.
func (s *Proxy) Index() int { return s.index }

// AttachStream records a remote stream as belonging to this sensor under its
// allocated identity, and folds the stream's options and recommended filters
// into the sensor's sets. First sighting of a name wins on duplicates.
func (s *Proxy) AttachStream(sid stream.SID, rs remote.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streams[sid] = rs

	for _, opt := range rs.Options {
		if _, seen := s.optionNames[opt.Name]; seen {
			continue
		}
		s.optionNames[opt.Name] = struct{}{}
		s.options = append(s.options, opt)
	}
	for _, f := range rs.RecommendedFilters {
		if _, seen := s.filterNames[f]; seen {
			continue
		}
		s.filterNames[f] = struct{}{}
		s.filters = append(s.filters, f)
	}
}

// Streams returns a snapshot of the attached streams keyed by identity.
func (s *Proxy) Streams() map[stream.SID]remote.Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[stream.SID]remote.Stream, len(s.streams))
	for sid, rs := range s.streams {
		out[sid] = rs
	}
	return out
}

// Options returns the sensor's collected controls in first-seen order.
func (s *Proxy) Options() []remote.Option {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]remote.Option, len(s.options))
	copy(out, s.options)
	return out
}

// RecommendedFilters returns the collected processing filter names in
// first-seen order.
func (s *Proxy) RecommendedFilters() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.filters))
	copy(out, s.filters)
	return out
}

// AddProfile appends a raw profile built from a remote descriptor.
func (s *Proxy) AddProfile(p stream.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append(s.raw, p)
}

// RawProfiles returns a snapshot of the profiles as built, pre-finalization.
func (s *Proxy) RawProfiles() []stream.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]stream.Profile, len(s.raw))
	copy(out, s.raw)
	return out
}

// FinalizeInit runs the finalizer over the raw profiles, fixing the profile
// set the sensor streams with. It runs once; a second call is an error.
func (s *Proxy) FinalizeInit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return errors.WrapInvalid(errors.ErrAlreadyStarted,
			component, "FinalizeInit", "finalize profiles")
	}

	s.finalized = s.finalizer.Finalize(s.raw)
	s.done = true

	s.logger.Debug("sensor profiles finalized",
		"sensor", s.name,
		"raw", len(s.raw),
		"finalized", len(s.finalized))
	return nil
}

// Finalized reports whether FinalizeInit has run.
func (s *Proxy) Finalized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Profiles returns a snapshot of the finalized profiles. Empty before
// FinalizeInit.
func (s *Proxy) Profiles() []stream.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]stream.Profile, len(s.finalized))
	copy(out, s.finalized)
	return out
}

// HandleMetadata queues one metadata record for a member stream. Safe from
// transport goroutines at any time; when a stream's queue is full the oldest
// record is dropped to make room.
func (s *Proxy) HandleMetadata(streamName string, rec remote.Metadata) {
	s.queueFor(streamName).Push(rec)
}

// queueFor returns the stream's metadata ring, creating it on first use.
func (s *Proxy) queueFor(streamName string) *ring.Ring[remote.Metadata] {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.pending[streamName]
	if !ok {
		q = ring.New[remote.Metadata](s.metadataDepth,
			ring.WithDropFunc[remote.Metadata](func(remote.Metadata) {
				s.dropped.Add(1)
			}))
		s.pending[streamName] = q
	}
	return q
}

// PendingMetadata returns a snapshot of a stream's queued records, oldest
// first.
func (s *Proxy) PendingMetadata(streamName string) []remote.Metadata {
	s.mu.RLock()
	q := s.pending[streamName]
	s.mu.RUnlock()

	if q == nil {
		return nil
	}
	return q.Snapshot()
}

// TakeMetadata pops the oldest queued record for a stream.
func (s *Proxy) TakeMetadata(streamName string) (remote.Metadata, bool) {
	s.mu.RLock()
	q := s.pending[streamName]
	s.mu.RUnlock()

	if q == nil {
		return nil, false
	}
	return q.Pop()
}

// DroppedMetadata returns how many records eviction has discarded.
func (s *Proxy) DroppedMetadata() uint64 {
	return s.dropped.Load()
}
