package proxy

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/timor11/librealsense/environment"
	"github.com/timor11/librealsense/errors"
	"github.com/timor11/librealsense/extrinsics"
	"github.com/timor11/librealsense/metric"
	"github.com/timor11/librealsense/remote"
	"github.com/timor11/librealsense/sensor"
	"github.com/timor11/librealsense/stream"
)

const component = "DeviceProxy"

// Build stages reported through metrics.
const (
	stageRaw       = "raw"
	stageFinalized = "finalized"
)

// Metadata drop reasons reported through metrics.
const (
	dropNoStreamName  = "missing-stream-name"
	dropUnknownStream = "unknown-stream"
)

// DeviceProxy is one remote device adapted into the process-local topology:
// sensor proxies in first-seen order, internal streams keyed by name, every
// tracked profile, and the device's share of the environment's extrinsics
// graph. A DeviceProxy is immutable once New returns; only metadata routing
// and lookups happen afterwards.
type DeviceProxy struct {
	env     *environment.Environment
	dev     remote.Device
	logger  *slog.Logger
	blog    *Logger
	pub     Publisher
	metrics *metric.Metrics

	finalizer     sensor.Finalizer
	metadataDepth int
	observer      func(remote.Metadata)

	info remote.Info

	sensors      []*sensor.Proxy
	sensorByName map[string]*sensor.Proxy

	streamOrder []string
	streams     map[string]*stream.Stream
	owner       map[string]*sensor.Proxy
	defaults    map[string]stream.Profile
	byTypeIndex map[stream.TypeIndex]stream.SID

	// profiles tracks, per stream name, the raw profiles in descriptor order
	// followed by the finalized set. Everything here ends up in the
	// extrinsics graph.
	profiles map[string][]stream.Profile

	routed     atomic.Uint64
	unroutable atomic.Uint64

	closed atomic.Bool
}

// Option configures a DeviceProxy before its build runs.
type Option func(*DeviceProxy)

// WithLogger sets the logger for build and routing diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *DeviceProxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics wires the shared topology metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(p *DeviceProxy) {
		if registry != nil {
			p.metrics = registry.CoreMetrics()
		}
	}
}

// WithBuildLog publishes build log entries through pub in addition to local
// logging.
func WithBuildLog(pub Publisher) Option {
	return func(p *DeviceProxy) {
		p.pub = pub
	}
}

// WithFinalizer overrides the profile finalizer handed to every sensor.
func WithFinalizer(f sensor.Finalizer) Option {
	return func(p *DeviceProxy) {
		p.finalizer = f
	}
}

// WithMetadataDepth bounds each sensor's per-stream metadata queue.
func WithMetadataDepth(n int) Option {
	return func(p *DeviceProxy) {
		p.metadataDepth = n
	}
}

// WithMetadataObserver installs a tap invoked once per successfully routed
// metadata record, after the owning sensor accepted it. Unroutable records
// never reach the observer.
func WithMetadataObserver(fn func(rec remote.Metadata)) Option {
	return func(p *DeviceProxy) {
		p.observer = fn
	}
}

// New adopts a remote device: it builds the sensors, streams and profiles
// the device advertises, finalizes each sensor's profile set, wires the
// extrinsics graph, and installs metadata routing when the device publishes
// metadata. The environment's reference on the device is taken only on
// success; a failed build leaves no trace in the shared graph.
//
// Unknown stream types, malformed stream names, duplicate stream identities
// and descriptors without streams abort the build. Missing intrinsics and
// extrinsics degrade: the profile or stream pair simply stays uncalibrated.
func New(env *environment.Environment, dev remote.Device, opts ...Option) (*DeviceProxy, error) {
	if env == nil {
		return nil, errors.WrapFatal(fmt.Errorf("nil environment"),
			component, "New", "validate dependencies")
	}
	if dev == nil {
		return nil, errors.WrapFatal(fmt.Errorf("nil device"),
			component, "New", "validate dependencies")
	}

	p := &DeviceProxy{
		env:          env,
		dev:          dev,
		logger:       slog.Default(),
		sensorByName: make(map[string]*sensor.Proxy),
		streams:      make(map[string]*stream.Stream),
		owner:        make(map[string]*sensor.Proxy),
		defaults:     make(map[string]stream.Profile),
		byTypeIndex:  make(map[stream.TypeIndex]stream.SID),
		profiles:     make(map[string][]stream.Profile),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.info = dev.Info()
	p.blog = NewLogger(p.info.Serial, p.pub, p.logger)

	start := time.Now()
	p.setStatus(metric.DeviceStatusBuilding)

	if err := p.build(); err != nil {
		p.recordBuildFailure(err)
		p.cleanupAfterFailedBuild()
		return nil, err
	}

	if dev.SupportsMetadata() {
		dev.OnMetadataAvailable(p.routeMetadata)
	}

	env.RetainDevice(p.info.Serial)
	p.setStatus(metric.DeviceStatusReady)
	if p.metrics != nil {
		p.metrics.RecordBuildDuration(p.info.Serial, time.Since(start))
	}
	p.blog.Info(fmt.Sprintf("device %s adopted: %d sensors, %d streams",
		p.info.Serial, len(p.sensors), len(p.streamOrder)))

	return p, nil
}

// build runs the three passes in order.
func (p *DeviceProxy) build() error {
	streams := p.dev.Streams()
	if len(streams) == 0 {
		return errors.WrapFatal(errors.ErrNoStreams, component, "New", "adopt device")
	}

	if err := p.adoptStreams(streams); err != nil {
		return err
	}
	if err := p.finalizeSensors(); err != nil {
		return err
	}
	return p.registerExtrinsics()
}

// adoptStreams is the first pass: one iteration over the advertised streams,
// order preserved. Each stream gets its identity, its sensor, and its raw
// profiles.
func (p *DeviceProxy) adoptStreams(streams []remote.Stream) error {
	for _, rs := range streams {
		kind, err := stream.ParseKind(rs.Type)
		if err != nil {
			return errors.WrapFatal(err, component, "New", "map stream type")
		}
		index, err := stream.ParseIndex(rs.Name)
		if err != nil {
			return errors.WrapFatal(err, component, "New", "parse stream name")
		}

		sp := p.sensorFor(rs.Sensor)

		sid := stream.SID{ID: p.env.NextStreamID(), Index: index}
		if p.metrics != nil {
			p.metrics.RecordIdentifiersAllocated(1)
		}

		ti := stream.TypeIndex{Kind: kind, Index: index}
		if prev, exists := p.byTypeIndex[ti]; exists {
			return errors.WrapFatal(
				fmt.Errorf("%w: %s already bound to stream id %s", errors.ErrDuplicateStream, ti, prev),
				component, "New", "record stream identity")
		}

		p.streams[rs.Name] = &stream.Stream{Name: rs.Name, Sensor: rs.Sensor, Kind: kind, SID: sid}
		p.streamOrder = append(p.streamOrder, rs.Name)
		p.owner[rs.Name] = sp
		p.byTypeIndex[ti] = sid
		sp.AttachStream(sid, rs)

		p.logger.Debug("stream adopted", "sid", sid, "sensor", rs.Sensor, "stream", rs.Name)

		if err := p.buildRawProfiles(kind, sid, rs, sp); err != nil {
			return err
		}
		if p.metrics != nil {
			p.metrics.RecordStreamBuilt(p.info.Serial, kind.String())
		}
	}
	return nil
}

// sensorFor returns the proxy for a sensor name, creating it on first sight.
// Sensor indices follow creation order.
func (p *DeviceProxy) sensorFor(name string) *sensor.Proxy {
	if sp, ok := p.sensorByName[name]; ok {
		return sp
	}

	opts := []sensor.ProxyOption{sensor.WithLogger(p.logger)}
	if p.finalizer != nil {
		opts = append(opts, sensor.WithFinalizer(p.finalizer))
	}
	if p.metadataDepth > 0 {
		opts = append(opts, sensor.WithMetadataDepth(p.metadataDepth))
	}

	sp := sensor.New(name, len(p.sensors), opts...)
	p.sensors = append(p.sensors, sp)
	p.sensorByName[name] = sp
	if p.metrics != nil {
		p.metrics.RecordSensorBuilt(p.info.Serial)
	}
	return sp
}

// buildRawProfiles converts the advertised modes of one stream and seeds the
// per-stream tracked list. The mode at the descriptor's default index is
// tagged default.
func (p *DeviceProxy) buildRawProfiles(kind stream.Kind, sid stream.SID, rs remote.Stream, sp *sensor.Proxy) error {
	if rs.DefaultProfileIndex < 0 || rs.DefaultProfileIndex >= len(rs.Profiles) {
		return errors.WrapInvalid(
			fmt.Errorf("%w: stream %q default profile index %d of %d",
				errors.ErrInvalidDescriptor, rs.Name, rs.DefaultProfileIndex, len(rs.Profiles)),
			component, "New", "build raw profiles")
	}

	for i, desc := range rs.Profiles {
		var prof stream.Profile
		if kind.IsVideo() {
			vp, err := buildVideoProfile(kind, sid, desc, rs.VideoIntrinsics)
			if err != nil {
				return errors.WrapInvalid(err, component, "New", "build raw profile")
			}
			prof = vp
		} else {
			prof = buildMotionProfile(kind, sid, desc, rs.MotionIntrinsics)
		}

		if i == rs.DefaultProfileIndex {
			prof.MarkDefault()
			p.defaults[rs.Name] = prof
		}

		sp.AddProfile(prof)
		p.profiles[rs.Name] = append(p.profiles[rs.Name], prof)
		if p.metrics != nil {
			p.metrics.RecordProfileBuilt(p.info.Serial, stageRaw)
		}
	}
	return nil
}

// finalizeSensors is the second pass: run each sensor's finalization, then
// walk the finalized profiles to restore identity and intrinsics and to tag
// the default mode. A profile whose identity cannot be recovered is left
// usable but stays out of the extrinsics graph.
func (p *DeviceProxy) finalizeSensors() error {
	for _, sp := range p.sensors {
		if err := sp.FinalizeInit(); err != nil {
			return err
		}

		streams := sp.Streams()
		for _, prof := range sp.Profiles() {
			ti := stream.TypeIndex{Kind: prof.Kind(), Index: prof.SID().Index}
			sid, ok := p.byTypeIndex[ti]
			if !ok {
				p.logger.Debug("no stream identity for finalized profile",
					"sensor", sp.Name(), "type-index", ti)
				continue
			}
			rs, ok := streams[sid]
			if !ok {
				p.logger.Debug("no stream for finalized profile",
					"sensor", sp.Name(), "sid", sid)
				continue
			}

			// Identity is lost when the finalizer rebuilds profiles.
			prof.Rebind(sid)

			if !hasIntrinsics(prof) {
				patchIntrinsics(prof, rs)
			}

			p.profiles[rs.Name] = append(p.profiles[rs.Name], prof)

			if def, ok := p.defaults[rs.Name]; ok && stream.SameMode(prof, def) {
				prof.MarkDefault()
			}
			if p.metrics != nil {
				p.metrics.RecordProfileBuilt(p.info.Serial, stageFinalized)
			}
		}
	}
	return nil
}

// registerExtrinsics is the third pass: seed every stream's node, register a
// directed edge per advertised pair, then merge every tracked profile into
// its stream's node. Pairs the device has no transform for are skipped.
func (p *DeviceProxy) registerExtrinsics() error {
	graph := p.env.Graph()
	serial := p.info.Serial

	for _, name := range p.streamOrder {
		graph.RegisterStream(extrinsics.StreamEntity(serial, name))
	}

	if p.dev.HasExtrinsics() {
		for _, from := range p.streamOrder {
			for _, to := range p.streamOrder {
				if from == to {
					continue
				}
				tf, err := p.dev.Extrinsics(from, to)
				if err != nil {
					p.logger.Debug("missing extrinsics", "from", from, "to", to)
					continue
				}
				graph.RegisterExtrinsics(
					extrinsics.StreamEntity(serial, from),
					extrinsics.StreamEntity(serial, to),
					tf)
				if p.metrics != nil {
					p.metrics.RecordExtrinsicsEdge(serial)
				}
			}
		}
	}

	seq := 0
	for _, name := range p.streamOrder {
		streamEnt := extrinsics.StreamEntity(serial, name)
		for range p.profiles[name] {
			ent := extrinsics.ProfileEntity(serial, seq)
			seq++
			graph.RegisterProfile(ent)
			if err := graph.RegisterSameOrigin(streamEnt, ent); err != nil {
				return errors.WrapFatal(err, component, "New", "link profile to stream")
			}
		}
	}
	return nil
}

// Info returns the adopted device's identity block.
func (p *DeviceProxy) Info() remote.Info {
	return p.info
}

// Sensors returns the sensor proxies in first-seen order.
func (p *DeviceProxy) Sensors() []*sensor.Proxy {
	out := make([]*sensor.Proxy, len(p.sensors))
	copy(out, p.sensors)
	return out
}

// StreamNames returns the adopted stream names in build order.
func (p *DeviceProxy) StreamNames() []string {
	out := make([]string, len(p.streamOrder))
	copy(out, p.streamOrder)
	return out
}

// Stream returns the internal identity record for a named stream.
func (p *DeviceProxy) Stream(name string) (stream.Stream, error) {
	s, ok := p.streams[name]
	if !ok {
		return stream.Stream{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrStreamNotFound, name),
			component, "Stream", "resolve stream name")
	}
	return *s, nil
}

// SensorFor returns the sensor proxy owning a named stream.
func (p *DeviceProxy) SensorFor(name string) (*sensor.Proxy, error) {
	sp, ok := p.owner[name]
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrStreamNotFound, name),
			component, "SensorFor", "resolve stream name")
	}
	return sp, nil
}

// Profiles returns every profile tracked for a stream: the raw profiles in
// descriptor order followed by the finalized set. Callers get clones.
func (p *DeviceProxy) Profiles(name string) ([]stream.Profile, error) {
	list, ok := p.profiles[name]
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrStreamNotFound, name),
			component, "Profiles", "resolve stream name")
	}
	out := make([]stream.Profile, len(list))
	for i, prof := range list {
		out[i] = stream.CloneProfile(prof)
	}
	return out, nil
}

// Extrinsics composes the transform between two of the device's streams
// through the shared graph. Streams without a connecting path fail with
// ErrNotConnected.
func (p *DeviceProxy) Extrinsics(from, to string) (extrinsics.Transform, error) {
	if _, ok := p.streams[from]; !ok {
		return extrinsics.Transform{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrStreamNotFound, from),
			component, "Extrinsics", "resolve source stream")
	}
	if _, ok := p.streams[to]; !ok {
		return extrinsics.Transform{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrStreamNotFound, to),
			component, "Extrinsics", "resolve target stream")
	}

	tf, err := p.env.Graph().Lookup(
		extrinsics.StreamEntity(p.info.Serial, from),
		extrinsics.StreamEntity(p.info.Serial, to))
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordExtrinsicsLookup("unreachable")
		}
		return extrinsics.Transform{}, err
	}
	if p.metrics != nil {
		p.metrics.RecordExtrinsicsLookup("resolved")
	}
	return tf, nil
}

// Close detaches the metadata callback and releases the device's share of
// the extrinsics graph. Idempotent.
func (p *DeviceProxy) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	if p.dev.SupportsMetadata() {
		p.dev.OnMetadataAvailable(nil)
	}
	p.env.ReleaseDevice(p.info.Serial)
	p.setStatus(metric.DeviceStatusClosed)
	p.logger.Debug("device proxy closed", "device", p.info.Serial)
}

func (p *DeviceProxy) setStatus(status int) {
	if p.metrics != nil {
		p.metrics.RecordDeviceStatus(p.info.Serial, status)
	}
}

func (p *DeviceProxy) recordBuildFailure(err error) {
	p.blog.Error("device adoption failed", err)
	if p.metrics != nil {
		p.metrics.RecordBuildFailed(p.info.Serial, failReason(err))
		p.metrics.RecordDeviceStatus(p.info.Serial, metric.DeviceStatusClosed)
	}
}

// cleanupAfterFailedBuild prunes any graph nodes the aborted build already
// registered, unless another live proxy still holds the same device.
func (p *DeviceProxy) cleanupAfterFailedBuild() {
	for _, serial := range p.env.RetainedDevices() {
		if serial == p.info.Serial {
			return
		}
	}
	p.env.Graph().RemoveDevice(p.info.Serial)
}

// failReason maps a build error onto its metric label.
func failReason(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrUnknownStreamType):
		return "unknown-stream-type"
	case stderrors.Is(err, errors.ErrMalformedStreamName):
		return "malformed-stream-name"
	case stderrors.Is(err, errors.ErrDuplicateStream):
		return "duplicate-stream"
	case stderrors.Is(err, errors.ErrNoStreams):
		return "no-streams"
	case stderrors.Is(err, errors.ErrUnknownFormat):
		return "unknown-format"
	case stderrors.Is(err, errors.ErrInvalidDescriptor):
		return "invalid-descriptor"
	default:
		return "internal"
	}
}
