package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timor11/librealsense/config"
	"github.com/timor11/librealsense/environment"
	"github.com/timor11/librealsense/errors"
	"github.com/timor11/librealsense/metric"
	"github.com/timor11/librealsense/proxy"
	"github.com/timor11/librealsense/testutil"
)

func buildProxy(t *testing.T, doc string) *proxy.DeviceProxy {
	t.Helper()

	env := environment.New()
	dev := testutil.MustDevice(t, doc)

	p, err := proxy.New(env, dev)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func newTestGateway(t *testing.T, cfg config.GatewayConfig, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()

	s := New(cfg, opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func TestHealthz_ReportsCounts(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})

	resp, body := get(t, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthView
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Zero(t, health.Devices)
	assert.Zero(t, health.Clients)

	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))

	resp, body = get(t, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, 1, health.Devices)
}

func TestDevices_ListsInRegistrationOrder(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})
	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))
	s.AddDevice(buildProxy(t, testutil.DescriptorMinimal))

	resp, body := get(t, ts.URL+"/v1/devices")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out struct {
		Devices []DeviceSummary `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Devices, 2)

	assert.Equal(t, "943222071234", out.Devices[0].Info.Serial)
	assert.Equal(t, "000000000001", out.Devices[1].Info.Serial)
	assert.Equal(t, []string{"Stereo Module", "RGB Camera", "Motion Module"},
		out.Devices[0].Sensors)
	assert.Equal(t, []string{"Depth", "Infrared_1", "Infrared_2", "Color", "Motion"},
		out.Devices[0].Streams)
}

func TestDevice_Summary(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})
	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))

	resp, body := get(t, ts.URL+"/v1/devices/943222071234")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary DeviceSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, "Intel RealSense D435I", summary.Info.Name)
	assert.Len(t, summary.Streams, 5)
	assert.Zero(t, summary.MetadataRouted)
}

func TestDevice_UnknownSerial(t *testing.T) {
	_, ts := newTestGateway(t, config.GatewayConfig{})

	resp, body := get(t, ts.URL+"/v1/devices/999999999999")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "device not found", e.Error)
	assert.Equal(t, http.StatusNotFound, e.Status)
}

func TestSensors_Listing(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})
	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))

	resp, body := get(t, ts.URL+"/v1/devices/943222071234/sensors")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Sensors []SensorView `json:"sensors"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Sensors, 3)

	stereo := out.Sensors[0]
	assert.Equal(t, "Stereo Module", stereo.Name)
	assert.Equal(t, 0, stereo.Index)
	assert.Len(t, stereo.Streams, 3)
	assert.Len(t, stereo.Options, 4)
	assert.Len(t, stereo.RecommendedFilters, 5)
	assert.NotZero(t, stereo.Profiles)

	motion := out.Sensors[2]
	assert.Equal(t, "Motion Module", motion.Name)
	assert.Len(t, motion.Streams, 1)
}

func TestProfiles_KnownStream(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})
	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))

	resp, body := get(t, ts.URL+"/v1/devices/943222071234/streams/Depth/profiles")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Device   string           `json:"device"`
		Stream   string           `json:"stream"`
		Profiles []map[string]any `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "943222071234", out.Device)
	assert.Equal(t, "Depth", out.Stream)

	// Raw modes plus the finalized set.
	assert.Len(t, out.Profiles, 8)
	assert.NotZero(t, out.Profiles[0]["width"])
}

func TestProfiles_UnknownStream(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})
	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))

	resp, body := get(t, ts.URL+"/v1/devices/943222071234/streams/Thermal/profiles")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "stream not found", e.Error)
}

func TestExtrinsics_PublishedPair(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})
	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))

	resp, body := get(t,
		ts.URL+"/v1/devices/943222071234/extrinsics?from=Depth&to=Color")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ExtrinsicsView
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Depth", out.From)
	assert.Equal(t, "Color", out.To)
	assert.InDelta(t, 0.01474, out.Extrinsics.Translation[0], 1e-6)
}

func TestExtrinsics_UnlinkedPair(t *testing.T) {
	// The minimal descriptor publishes Depth to Color only; the reverse
	// direction has no path.
	s, ts := newTestGateway(t, config.GatewayConfig{})
	s.AddDevice(buildProxy(t, testutil.DescriptorMinimal))

	resp, body := get(t,
		ts.URL+"/v1/devices/000000000001/extrinsics?from=Color&to=Depth")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "streams not linked by any extrinsics path", e.Error)
}

func TestExtrinsics_MissingParams(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})
	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))

	resp, body := get(t, ts.URL+"/v1/devices/943222071234/extrinsics?from=Depth")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "from and to query parameters are required", e.Error)
}

func TestExtrinsics_RateLimited(t *testing.T) {
	// A refill interval in the tens of minutes keeps the third request
	// inside the exhausted window no matter how slowly the test runs.
	cfg := config.GatewayConfig{LookupRate: 0.001, LookupBurst: 2}
	s, ts := newTestGateway(t, cfg)
	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))

	url := ts.URL + "/v1/devices/943222071234/extrinsics?from=Depth&to=Color"

	resp, _ := get(t, url)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = get(t, url)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := get(t, url)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "rate limit exceeded", e.Error)
}

func TestHandle_MethodNotAllowed(t *testing.T) {
	_, ts := newTestGateway(t, config.GatewayConfig{})

	resp, err := http.Post(ts.URL+"/v1/devices", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandle_CORS(t *testing.T) {
	cfg := config.GatewayConfig{AllowedOrigins: []string{"http://viewer.example"}}
	_, ts := newTestGateway(t, cfg)

	// Preflight from an allowed origin.
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/v1/devices", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://viewer.example")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://viewer.example",
		resp.Header.Get("Access-Control-Allow-Origin"))

	// Origins outside the allow list get no CORS headers.
	req, err = http.NewRequest(http.MethodGet, ts.URL+"/v1/devices", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://intruder.example")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHandle_RequestID(t *testing.T) {
	_, ts := newTestGateway(t, config.GatewayConfig{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))

	resp2, _ := get(t, ts.URL+"/healthz")
	assert.NotEmpty(t, resp2.Header.Get("X-Request-ID"))
}

func TestHandle_RecordsMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	s, ts := newTestGateway(t, config.GatewayConfig{}, WithMetrics(registry))
	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))

	_, _ = get(t, ts.URL+"/v1/devices")
	_, _ = get(t, ts.URL+"/v1/devices/999999999999")

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "rs_gateway_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var route, code string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "route":
					route = l.GetValue()
				case "code":
					code = l.GetValue()
				}
			}
			values[route+"/"+code] = m.GetCounter().GetValue()
		}
	}

	assert.Equal(t, 1.0, values["devices/200"])
	assert.Equal(t, 1.0, values["device/404"])
}

func TestLifecycle_StartStop(t *testing.T) {
	s := New(config.GatewayConfig{Port: 0})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))

	err := s.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

	require.NoError(t, s.Stop(time.Second))
	require.NoError(t, s.Stop(time.Second), "second stop is a no-op")
}

func TestRemoveDevice_DropsFromListing(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})
	s.AddDevice(buildProxy(t, testutil.DescriptorD435I))
	s.AddDevice(buildProxy(t, testutil.DescriptorMinimal))
	s.RemoveDevice("943222071234")

	assert.Equal(t, []string{"000000000001"}, s.Serials())

	resp, _ := get(t, ts.URL+"/v1/devices/943222071234")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
