package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/timor11/librealsense/pkg/ring"
	"github.com/timor11/librealsense/pkg/timestamp"
	"github.com/timor11/librealsense/remote"
)

// MetadataEvent is one broadcast frame on the WebSocket feed. Seq is
// allocated per delivered event; a client observing a gap in Seq knows its
// own buffer overflowed.
type MetadataEvent struct {
	Type      string          `json:"type"`
	Seq       uint64          `json:"seq"`
	Device    string          `json:"device"`
	Stream    string          `json:"stream,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Record    remote.Metadata `json:"record"`
}

// ClientStats is the per-client delivery accounting snapshot.
type ClientStats struct {
	RemoteAddr  string    `json:"remote-addr"`
	ConnectedAt time.Time `json:"connected-at"`
	Queued      int       `json:"queued"`
	Sent        uint64    `json:"sent"`
	Dropped     uint64    `json:"dropped"`
}

// client is one connected WebSocket consumer. Events queue in a bounded
// ring; a dedicated writer goroutine drains it so one slow client never
// stalls the broadcast path.
type client struct {
	conn        *websocket.Conn
	ring        *ring.Ring[[]byte]
	wake        chan struct{}
	quit        chan struct{}
	connectedAt time.Time
	closed      atomic.Bool
	closeOnce   sync.Once
}

// handleWS upgrades the connection and starts the client's reader and
// writer goroutines.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed,
			fmt.Sprintf("method %s not allowed", r.Method))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Debug("websocket upgrade rejected", "error", err)
		return
	}

	c := &client{
		conn:        conn,
		ring:        ring.New[[]byte](s.cfg.ClientBuffer, s.ringOptions()...),
		wake:        make(chan struct{}, clientBacklog),
		quit:        make(chan struct{}),
		connectedAt: time.Now(),
	}

	s.clientsMu.Lock()
	s.clients[conn] = c
	count := len(s.clients)
	s.clientsMu.Unlock()

	if s.metrics != nil {
		s.metrics.connectionsTotal.Inc()
		s.metrics.clientsConnected.Set(float64(count))
	}
	s.logger.Debug("websocket client connected",
		"remote", conn.RemoteAddr().String(), "clients", count)

	s.wg.Add(2)
	go s.readClient(c)
	go s.writeClient(c)
}

// BroadcastMetadata queues one routed metadata record for every connected
// client. Full client buffers evict their oldest event; the feed never
// blocks the caller.
func (s *Server) BroadcastMetadata(serial string, rec remote.Metadata) {
	clients := s.clientSnapshot()
	if len(clients) == 0 {
		return
	}

	streamName, _ := rec.StreamName()
	event := MetadataEvent{
		Type:      "metadata",
		Seq:       s.seq.Add(1),
		Device:    serial,
		Stream:    streamName,
		Timestamp: timestamp.Now(),
		Record:    rec,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode metadata event", "device", serial, "error", err)
		return
	}

	if s.metrics != nil {
		s.metrics.broadcastTotal.WithLabelValues(serial).Inc()
		s.metrics.broadcastSizeBytes.Observe(float64(len(data)))
	}

	for _, c := range clients {
		c.ring.Push(data)
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

// readClient consumes the client's inbound side for liveness only; the feed
// is one-way. Exit tears the client down.
func (s *Server) readClient(c *client) {
	defer s.wg.Done()

	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			reason := "normal"
			if time.Since(c.connectedAt) < 5*time.Second {
				reason = "early-disconnect"
			}
			s.removeClient(c, reason)
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}

// writeClient drains the client's ring to the socket.
func (s *Server) writeClient(c *client) {
	defer s.wg.Done()

	for {
		select {
		case <-s.shutdown:
			return
		case <-c.quit:
			return
		case <-c.wake:
			if !s.drainClient(c) {
				return
			}
		}
	}
}

// drainClient writes every queued event. It reports false when the client
// was torn down on a write failure.
func (s *Server) drainClient(c *client) bool {
	for {
		data, ok := c.ring.Pop()
		if !ok {
			return true
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.removeClient(c, "write-error")
			return false
		}
	}
}

// removeClient tears one client down exactly once.
func (s *Server) removeClient(c *client, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.quit)

		s.clientsMu.Lock()
		delete(s.clients, c.conn)
		count := len(s.clients)
		s.clientsMu.Unlock()

		if s.metrics != nil {
			s.metrics.disconnectionsTotal.WithLabelValues(reason).Inc()
			s.metrics.clientsConnected.Set(float64(count))
		}

		_ = c.conn.Close()
		c.ring.Clear()

		s.logger.Debug("websocket client disconnected",
			"remote", c.conn.RemoteAddr().String(),
			"reason", reason,
			"clients", count)
	})
}

// closeAllClients disconnects every client during shutdown.
func (s *Server) closeAllClients() {
	for _, c := range s.clientSnapshot() {
		s.removeClient(c, "server-shutdown")
	}
}

// maintainClients pings clients on an interval so half-open connections
// fail their read deadline instead of lingering.
func (s *Server) maintainClients(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.pingClients()
		}
	}
}

// pingClients sends a ping to every live client. WriteControl is safe to
// call alongside the writer goroutine.
func (s *Server) pingClients() {
	for _, c := range s.clientSnapshot() {
		deadline := time.Now().Add(writeTimeout)
		if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			s.removeClient(c, "ping-failed")
		}
	}
}

// clientSnapshot returns the live clients at one instant.
func (s *Server) clientSnapshot() []*client {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	out := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		if !c.closed.Load() {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) clientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// ClientStats returns the delivery accounting for every connected client.
func (s *Server) ClientStats() []ClientStats {
	clients := s.clientSnapshot()
	out := make([]ClientStats, 0, len(clients))
	for _, c := range clients {
		stats := c.ring.Stats()
		out = append(out, ClientStats{
			RemoteAddr:  c.conn.RemoteAddr().String(),
			ConnectedAt: c.connectedAt,
			Queued:      stats.Len,
			Sent:        stats.Popped,
			Dropped:     stats.Dropped,
		})
	}
	return out
}
