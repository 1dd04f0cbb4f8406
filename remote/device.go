package remote

import (
	"github.com/timor11/librealsense/extrinsics"
)

// Device is the read-only view of a remote camera after its discovery
// handshake completed: identity, advertised streams, pairwise calibration
// and the metadata feed. Implementations must be safe for concurrent use;
// metadata callbacks may fire on transport goroutines at any time after
// registration.
type Device interface {
	// Info returns the device's identifying fields.
	Info() Info

	// Streams returns the advertised streams in publication order.
	Streams() []Stream

	// HasExtrinsics reports whether the device published any pairwise
	// calibration at all.
	HasExtrinsics() bool

	// Extrinsics returns the transform from one named stream to another.
	// A pair the device did not publish yields an error wrapping
	// errors.ErrMissingExtrinsics; the reverse direction is never implied.
	Extrinsics(from, to string) (extrinsics.Transform, error)

	// SupportsMetadata reports whether the device publishes metadata.
	SupportsMetadata() bool

	// OnMetadataAvailable registers the callback invoked once per incoming
	// metadata record. Only one callback is active; registering again
	// replaces the previous one.
	OnMetadataAvailable(fn func(Metadata))
}
