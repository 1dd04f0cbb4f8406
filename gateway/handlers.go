package gateway

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/timor11/librealsense/extrinsics"
	"github.com/timor11/librealsense/proxy"
	"github.com/timor11/librealsense/remote"
	"github.com/timor11/librealsense/stream"
)

// DeviceSummary is the gateway's view of one adopted device.
type DeviceSummary struct {
	Info               remote.Info `json:"info"`
	Sensors            []string    `json:"sensors"`
	Streams            []string    `json:"streams"`
	MetadataRouted     uint64      `json:"metadata-routed"`
	MetadataUnroutable uint64      `json:"metadata-unroutable"`
}

// SensorView is the gateway's view of one sensor proxy.
type SensorView struct {
	Name               string          `json:"name"`
	Index              int             `json:"index"`
	Streams            []stream.Stream `json:"streams"`
	Options            []remote.Option `json:"options,omitempty"`
	RecommendedFilters []string        `json:"recommended-filters,omitempty"`
	Profiles           int             `json:"profiles"`
}

// ProfilesView lists every profile tracked for one stream.
type ProfilesView struct {
	Device   string           `json:"device"`
	Stream   string           `json:"stream"`
	Profiles []stream.Profile `json:"profiles"`
}

// ExtrinsicsView is one resolved extrinsics lookup.
type ExtrinsicsView struct {
	Device     string               `json:"device"`
	From       string               `json:"from"`
	To         string               `json:"to"`
	Extrinsics extrinsics.Transform `json:"extrinsics"`
}

// HealthView is the /healthz response body.
type HealthView struct {
	Status  string `json:"status"`
	Devices int    `json:"devices"`
	Clients int    `json:"clients"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	devices := len(s.devices)
	s.mu.RUnlock()

	s.writeJSON(w, HealthView{
		Status:  "ok",
		Devices: devices,
		Clients: s.clientCount(),
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	list := make([]DeviceSummary, 0, len(s.order))
	for _, serial := range s.order {
		list = append(list, summarize(s.devices[serial]))
	}
	s.mu.RUnlock()

	s.writeJSON(w, map[string]any{"devices": list})
}

// handleDeviceTree dispatches everything below /v1/devices/:
//
//	/v1/devices/{serial}
//	/v1/devices/{serial}/sensors
//	/v1/devices/{serial}/streams/{stream}/profiles
//	/v1/devices/{serial}/extrinsics?from=A&to=B
func (s *Server) handleDeviceTree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/devices/")
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")

	if len(parts) == 0 || parts[0] == "" {
		s.writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	p, ok := s.Device(parts[0])
	if !ok {
		s.writeError(w, http.StatusNotFound, "device not found")
		return
	}

	switch {
	case len(parts) == 1:
		s.writeJSON(w, summarize(p))
	case len(parts) == 2 && parts[1] == "sensors":
		s.handleSensors(w, p)
	case len(parts) == 2 && parts[1] == "extrinsics":
		s.handleExtrinsics(w, r, p)
	case len(parts) == 4 && parts[1] == "streams" && parts[3] == "profiles":
		s.handleProfiles(w, p, pathSegment(parts[2]))
	default:
		s.writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (s *Server) handleSensors(w http.ResponseWriter, p *proxy.DeviceProxy) {
	owned := make(map[string][]stream.Stream)
	for _, name := range p.StreamNames() {
		sp, err := p.SensorFor(name)
		if err != nil {
			continue
		}
		st, err := p.Stream(name)
		if err != nil {
			continue
		}
		owned[sp.Name()] = append(owned[sp.Name()], st)
	}

	sensors := p.Sensors()
	list := make([]SensorView, 0, len(sensors))
	for _, sp := range sensors {
		list = append(list, SensorView{
			Name:               sp.Name(),
			Index:              sp.Index(),
			Streams:            owned[sp.Name()],
			Options:            sp.Options(),
			RecommendedFilters: sp.RecommendedFilters(),
			Profiles:           len(sp.Profiles()),
		})
	}

	s.writeJSON(w, map[string]any{"sensors": list})
}

func (s *Server) handleProfiles(w http.ResponseWriter, p *proxy.DeviceProxy, streamName string) {
	profiles, err := p.Profiles(streamName)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	s.writeJSON(w, ProfilesView{
		Device:   p.Info().Serial,
		Stream:   streamName,
		Profiles: profiles,
	})
}

func (s *Server) handleExtrinsics(w http.ResponseWriter, r *http.Request, p *proxy.DeviceProxy) {
	if !s.limiter.Allow() {
		if s.metrics != nil {
			s.metrics.rateLimitedTotal.Inc()
		}
		s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		s.writeError(w, http.StatusBadRequest, "from and to query parameters are required")
		return
	}

	tf, err := p.Extrinsics(from, to)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	s.writeJSON(w, ExtrinsicsView{
		Device:     p.Info().Serial,
		From:       from,
		To:         to,
		Extrinsics: tf,
	})
}

// summarize builds the listing view for one device.
func summarize(p *proxy.DeviceProxy) DeviceSummary {
	routed, unroutable := p.MetadataStats()

	sensors := p.Sensors()
	names := make([]string, len(sensors))
	for i, sp := range sensors {
		names[i] = sp.Name()
	}

	return DeviceSummary{
		Info:               p.Info(),
		Sensors:            names,
		Streams:            p.StreamNames(),
		MetadataRouted:     routed,
		MetadataUnroutable: unroutable,
	}
}

// pathSegment decodes one URL path segment, falling back to the raw text
// when it is not valid escaping.
func pathSegment(raw string) string {
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
