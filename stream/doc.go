// Package stream defines the internal model of camera streams: the closed
// set of stream kinds, pixel formats, stream identities, video and motion
// profiles, and the calibration records attached to them.
//
// Everything here is plain data shaped for the rest of the proxy. Parsing of
// remote descriptors lives in package remote; identifier allocation and
// extrinsics bookkeeping live in package environment.
package stream
