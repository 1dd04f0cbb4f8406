package remote

import (
	"fmt"
	"sync"

	"github.com/timor11/librealsense/errors"
	"github.com/timor11/librealsense/extrinsics"
)

// streamPair keys the pairwise extrinsics table.
type streamPair struct {
	from string
	to   string
}

// StaticDevice is an in-memory Device backed by a parsed descriptor. It
// serves tests and file-fed runs: the topology is fixed at construction and
// metadata is pushed by the caller instead of arriving over a transport.
type StaticDevice struct {
	desc *Descriptor
	extr map[streamPair]extrinsics.Transform

	mu       sync.RWMutex
	callback func(Metadata)
}

// NewStaticDevice wraps a parsed descriptor. The descriptor is not copied;
// callers must not mutate it afterwards.
func NewStaticDevice(desc *Descriptor) *StaticDevice {
	d := &StaticDevice{
		desc: desc,
		extr: make(map[streamPair]extrinsics.Transform, len(desc.Extrinsics)),
	}
	for _, rec := range desc.Extrinsics {
		d.extr[streamPair{from: rec.From, to: rec.To}] = rec.Transform
	}
	return d
}

// Info returns the device's identifying fields.
func (d *StaticDevice) Info() Info {
	return d.desc.Device
}

// Streams returns the advertised streams in descriptor order.
func (d *StaticDevice) Streams() []Stream {
	return d.desc.Streams
}

// HasExtrinsics reports whether the descriptor carried any pairwise
// calibration.
func (d *StaticDevice) HasExtrinsics() bool {
	return len(d.extr) > 0
}

// Extrinsics returns the published transform between two named streams.
func (d *StaticDevice) Extrinsics(from, to string) (extrinsics.Transform, error) {
	tf, ok := d.extr[streamPair{from: from, to: to}]
	if !ok {
		return extrinsics.Transform{}, errors.WrapInvalid(
			fmt.Errorf("%w: %s -> %s", errors.ErrMissingExtrinsics, from, to),
			"StaticDevice", "Extrinsics", "resolve pair")
	}
	return tf, nil
}

// SupportsMetadata reports whether the descriptor declared metadata support.
func (d *StaticDevice) SupportsMetadata() bool {
	return d.desc.MetadataSupported
}

// OnMetadataAvailable registers the metadata callback, replacing any
// previous one.
func (d *StaticDevice) OnMetadataAvailable(fn func(Metadata)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
}

// PushMetadata delivers one record to the registered callback, as a transport
// would. Pushing to a device that does not support metadata is an error; a
// missing callback drops the record silently.
func (d *StaticDevice) PushMetadata(m Metadata) error {
	if !d.desc.MetadataSupported {
		return errors.WrapInvalid(
			errors.ErrMetadataUnsupported,
			"StaticDevice", "PushMetadata", "deliver record")
	}

	d.mu.RLock()
	fn := d.callback
	d.mu.RUnlock()

	if fn != nil {
		fn(m)
	}
	return nil
}
