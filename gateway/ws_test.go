package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timor11/librealsense/config"
	"github.com/timor11/librealsense/pkg/ring"
	"github.com/timor11/librealsense/remote"
)

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws"
}

func dialWS(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) MetadataEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev MetadataEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func waitForClients(t *testing.T, s *Server, want int) {
	t.Helper()

	require.Eventually(t, func() bool { return s.clientCount() == want },
		time.Second, 10*time.Millisecond)
}

func TestBroadcast_DeliversToAllClients(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{ClientBuffer: 8})

	first := dialWS(t, ts, nil)
	second := dialWS(t, ts, nil)
	waitForClients(t, s, 2)

	s.BroadcastMetadata("943222071234", remote.Metadata{
		remote.StreamNameKey: "Depth", "frame-number": 7,
	})

	for _, conn := range []*websocket.Conn{first, second} {
		ev := readEvent(t, conn)
		assert.Equal(t, "metadata", ev.Type)
		assert.Equal(t, uint64(1), ev.Seq)
		assert.Equal(t, "943222071234", ev.Device)
		assert.Equal(t, "Depth", ev.Stream)
		assert.NotZero(t, ev.Timestamp)
		assert.EqualValues(t, 7, ev.Record["frame-number"])
	}

	s.BroadcastMetadata("943222071234", remote.Metadata{
		remote.StreamNameKey: "Color", "frame-number": 8,
	})

	ev := readEvent(t, first)
	assert.Equal(t, uint64(2), ev.Seq)
	assert.Equal(t, "Color", ev.Stream)
}

func TestBroadcast_NoClientsLeavesSequenceUntouched(t *testing.T) {
	s, _ := newTestGateway(t, config.GatewayConfig{})

	s.BroadcastMetadata("943222071234", remote.Metadata{
		remote.StreamNameKey: "Depth", "frame-number": 1,
	})

	assert.Zero(t, s.seq.Load())
}

func TestBroadcast_SlowClientDropsOldest(t *testing.T) {
	s, _ := newTestGateway(t, config.GatewayConfig{ClientBuffer: 2})

	// A real connection whose reader and writer goroutines never start:
	// the ring fills and overflows exactly as a stalled client's would.
	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	echo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer echo.Close()

	peer, resp, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(echo.URL, "http"), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer peer.Close()

	conn := <-serverConns
	defer conn.Close()

	c := &client{
		conn:        conn,
		ring:        ring.New[[]byte](2, s.ringOptions()...),
		wake:        make(chan struct{}, clientBacklog),
		quit:        make(chan struct{}),
		connectedAt: time.Now(),
	}
	s.clientsMu.Lock()
	s.clients[conn] = c
	s.clientsMu.Unlock()

	for frame := 1; frame <= 5; frame++ {
		s.BroadcastMetadata("000000000001", remote.Metadata{
			remote.StreamNameKey: "Depth", "frame-number": frame,
		})
	}

	stats := s.ClientStats()
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Queued)
	assert.Equal(t, uint64(3), stats[0].Dropped)
	assert.Zero(t, stats[0].Sent)

	// Only the two newest events survive; the sequence gap tells the
	// client what it lost.
	kept := c.ring.Snapshot()
	require.Len(t, kept, 2)

	var ev MetadataEvent
	require.NoError(t, json.Unmarshal(kept[0], &ev))
	assert.Equal(t, uint64(4), ev.Seq)
	require.NoError(t, json.Unmarshal(kept[1], &ev))
	assert.Equal(t, uint64(5), ev.Seq)
}

func TestWS_ClientStatsTrackDelivery(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})

	conn := dialWS(t, ts, nil)
	waitForClients(t, s, 1)

	s.BroadcastMetadata("943222071234", remote.Metadata{
		remote.StreamNameKey: "Depth", "frame-number": 1,
	})
	readEvent(t, conn)

	require.Eventually(t, func() bool {
		stats := s.ClientStats()
		return len(stats) == 1 && stats[0].Sent == 1 && stats[0].Queued == 0
	}, time.Second, 10*time.Millisecond)

	stats := s.ClientStats()
	assert.NotEmpty(t, stats[0].RemoteAddr)
	assert.False(t, stats[0].ConnectedAt.IsZero())
	assert.Zero(t, stats[0].Dropped)
}

func TestWS_DisconnectRemovesClient(t *testing.T) {
	s, ts := newTestGateway(t, config.GatewayConfig{})

	conn := dialWS(t, ts, nil)
	waitForClients(t, s, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	waitForClients(t, s, 0)
}

func TestWS_RejectsDisallowedOrigin(t *testing.T) {
	cfg := config.GatewayConfig{AllowedOrigins: []string{"http://viewer.example"}}
	s, ts := newTestGateway(t, cfg)

	header := http.Header{"Origin": []string{"http://intruder.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, s.clientCount())

	allowed := http.Header{"Origin": []string{"http://viewer.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), allowed)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	conn.Close()
}

func TestWS_RejectsNonGet(t *testing.T) {
	_, ts := newTestGateway(t, config.GatewayConfig{})

	resp, err := http.Post(ts.URL+"/v1/ws", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
