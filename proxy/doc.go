// Package proxy builds the process-local view of one remote depth camera.
//
// New runs a three pass build over the device's self-description. The first
// pass walks the advertised streams in publication order, creating a sensor
// proxy the first time each sensor name appears, allocating the stream's
// identity from the environment, and converting every advertised mode into a
// raw profile with the descriptor's default mode tagged. The second pass
// finalizes each sensor's profile set and then repairs what finalization may
// have lost: stream identities are rebound through the per-device type and
// index table, missing intrinsics are copied back from the matching remote
// calibration, and the default tag is restored by mode equality against the
// raw default. The third pass wires the shared extrinsics graph: a node per
// stream, a directed edge per transform the device actually published, and a
// same-origin merge for every tracked profile so lookups resolve between any
// calibrated pair.
//
// Builds are all or nothing. An unknown stream type, a malformed stream
// name, two streams claiming one type and index, or a device without streams
// aborts the build, and an aborted build removes whatever it had already
// registered in the shared graph. Missing calibration never aborts: the
// affected profile or stream pair stays usable, just unresolvable.
//
// After a successful build the proxy is immutable. Devices that publish
// metadata get a routing callback delivering each record to the owning
// sensor's bounded queue; unroutable records are counted and dropped without
// disturbing the feed. Close detaches the callback and releases the device's
// share of the graph.
//
// Build progress and failures can additionally be published to NATS through
// WithBuildLog, mirroring the local structured log.
package proxy
