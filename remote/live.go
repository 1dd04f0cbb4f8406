package remote

import (
	"context"

	"github.com/timor11/librealsense/extrinsics"
)

// LiveDevice is a Device whose topology comes from a parsed discovery
// descriptor and whose metadata arrives over a transport subscription. The
// descriptor views are fixed at construction; the feed starts when the
// caller starts it.
type LiveDevice struct {
	static *StaticDevice
	source *MetadataSource
}

// NewLiveDevice combines a descriptor with a metadata source. A nil source
// leaves the device without a feed; SupportsMetadata then reports false
// regardless of what the descriptor declared.
func NewLiveDevice(desc *Descriptor, source *MetadataSource) *LiveDevice {
	return &LiveDevice{
		static: NewStaticDevice(desc),
		source: source,
	}
}

// Info returns the device's identifying fields.
func (d *LiveDevice) Info() Info {
	return d.static.Info()
}

// Streams returns the advertised streams in descriptor order.
func (d *LiveDevice) Streams() []Stream {
	return d.static.Streams()
}

// HasExtrinsics reports whether the descriptor carried any pairwise
// calibration.
func (d *LiveDevice) HasExtrinsics() bool {
	return d.static.HasExtrinsics()
}

// Extrinsics returns the published transform between two named streams.
func (d *LiveDevice) Extrinsics(from, to string) (extrinsics.Transform, error) {
	return d.static.Extrinsics(from, to)
}

// SupportsMetadata reports whether the descriptor declared metadata support
// and a feed is attached.
func (d *LiveDevice) SupportsMetadata() bool {
	return d.source != nil && d.static.SupportsMetadata()
}

// OnMetadataAvailable registers the callback on the transport feed,
// replacing any previous one. Without a source this is a no-op.
func (d *LiveDevice) OnMetadataAvailable(fn func(Metadata)) {
	if d.source == nil {
		return
	}
	d.source.OnMetadataAvailable(fn)
}

// Start begins the metadata subscription. Devices without metadata start
// nothing and return nil.
func (d *LiveDevice) Start(ctx context.Context) error {
	if !d.SupportsMetadata() {
		return nil
	}
	return d.source.Start(ctx)
}

// FeedStats returns the source's received and malformed record counts.
// Without a source both are zero.
func (d *LiveDevice) FeedStats() (received, malformed uint64) {
	if d.source == nil {
		return 0, 0
	}
	return d.source.Stats()
}
