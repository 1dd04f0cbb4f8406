// Package gateway serves the adopted device topology over HTTP.
//
// The surface is read only. Listings cover devices, sensors, and per-stream
// profiles; extrinsics lookups compose transforms through the shared graph
// and are rate limited. A WebSocket endpoint fans routed metadata out to
// connected clients.
//
//	GET /healthz
//	GET /v1/devices
//	GET /v1/devices/{serial}
//	GET /v1/devices/{serial}/sensors
//	GET /v1/devices/{serial}/streams/{stream}/profiles
//	GET /v1/devices/{serial}/extrinsics?from=A&to=B
//	GET /v1/ws
//
// Lookup errors map onto HTTP statuses: an unknown stream or a stream pair
// without any extrinsics path is 404, malformed input is 400, and a rejected
// lookup under load is 429. Response bodies for failures are sanitized
// JSON; internal detail stays in the logs.
//
// Each WebSocket client owns a bounded ring drained by its own writer
// goroutine. A slow client overflows its ring and loses its oldest events,
// never the broadcast path or another client; drops are accounted per client
// and visible in the event sequence numbers.
package gateway
