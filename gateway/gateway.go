package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/timor11/librealsense/config"
	"github.com/timor11/librealsense/errors"
	"github.com/timor11/librealsense/metric"
	"github.com/timor11/librealsense/pkg/ring"
	"github.com/timor11/librealsense/proxy"
)

const component = "Gateway"

const (
	defaultClientBuffer = 256

	writeTimeout  = 10 * time.Second
	readTimeout   = 60 * time.Second
	pingInterval  = 30 * time.Second
	clientBacklog = 1
)

// Server is the read-only HTTP surface over one or more built device
// proxies: device and sensor listings, per-stream profiles, rate-limited
// extrinsics lookups, a health endpoint, and a WebSocket feed of routed
// metadata.
type Server struct {
	cfg     config.GatewayConfig
	logger  *slog.Logger
	metrics *Metrics
	limiter *rate.Limiter

	mu      sync.RWMutex
	devices map[string]*proxy.DeviceProxy
	order   []string

	server   *http.Server
	upgrader websocket.Upgrader

	clients   map[*websocket.Conn]*client
	clientsMu sync.RWMutex
	seq       atomic.Uint64

	lifecycleMu sync.Mutex
	running     bool
	startTime   time.Time
	shutdown    chan struct{}
	wg          *sync.WaitGroup
}

// Option configures a Server at construction.
type Option func(*Server)

// WithLogger sets the logger for request and client diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics registers gateway metrics with the shared registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Server) {
		s.metrics = newMetrics(registry)
	}
}

// New creates a gateway over an initially empty device set. Devices attach
// through AddDevice; the HTTP server itself starts with Start.
func New(cfg config.GatewayConfig, opts ...Option) *Server {
	if cfg.ClientBuffer < 1 {
		cfg.ClientBuffer = defaultClientBuffer
	}

	limit := rate.Inf
	burst := 1
	if cfg.LookupRate > 0 {
		limit = rate.Limit(cfg.LookupRate)
		burst = cfg.LookupBurst
		if burst < 1 {
			burst = 1
		}
	}

	s := &Server{
		cfg:      cfg,
		logger:   slog.Default(),
		limiter:  rate.NewLimiter(limit, burst),
		devices:  make(map[string]*proxy.DeviceProxy),
		clients:  make(map[*websocket.Conn]*client),
		shutdown: make(chan struct{}),
		wg:       &sync.WaitGroup{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return s.originAllowed(origin)
		},
	}

	return s
}

// AddDevice exposes a built proxy through the gateway, keyed by its serial.
// Re-adding a serial replaces the previous proxy in place.
func (s *Server) AddDevice(p *proxy.DeviceProxy) {
	if p == nil {
		return
	}
	serial := p.Info().Serial

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.devices[serial]; !exists {
		s.order = append(s.order, serial)
	}
	s.devices[serial] = p
}

// RemoveDevice withdraws a device from the gateway. Unknown serials are a
// no-op.
func (s *Server) RemoveDevice(serial string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.devices[serial]; !exists {
		return
	}
	delete(s.devices, serial)
	for i, sn := range s.order {
		if sn == serial {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Device returns the proxy serving a serial.
func (s *Server) Device(serial string) (*proxy.DeviceProxy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.devices[serial]
	return p, ok
}

// Serials returns the exposed device serials in registration order.
func (s *Server) Serials() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Handler returns the gateway's routing handler. It is the same handler
// Start serves, exposed separately so callers can mount or test it without
// binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handle("healthz", http.MethodGet, s.handleHealthz))
	mux.HandleFunc("/v1/devices", s.handle("devices", http.MethodGet, s.handleDevices))
	mux.HandleFunc("/v1/devices/", s.handle("device", http.MethodGet, s.handleDeviceTree))
	mux.HandleFunc("/v1/ws", s.handleWS)
	return mux
}

// Start begins serving on the configured port. It returns once the listener
// goroutine is running; listen failures surface through the log.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.WrapInvalid(fmt.Errorf("nil context"),
			component, "Start", "validate context")
	}

	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted,
			component, "Start", "start gateway")
	}

	s.shutdown = make(chan struct{})
	s.wg = &sync.WaitGroup{}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Handler(),
	}

	s.running = true
	s.startTime = time.Now()

	s.wg.Add(2)
	go s.runServer()
	go s.maintainClients(ctx)

	s.logger.Info("gateway listening", "port", s.cfg.Port)
	return nil
}

// runServer blocks on the HTTP listener until shutdown.
func (s *Server) runServer() {
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		s.logger.Error("gateway server failed", "error", err)
	}
}

// Stop shuts the listener down, disconnects every WebSocket client, and
// waits up to timeout for the background goroutines to drain.
func (s *Server) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	close(s.shutdown)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("gateway shutdown incomplete", "error", err)
	}

	// Shutdown does not touch hijacked connections; close them ourselves so
	// the per-client goroutines unblock.
	s.closeAllClients()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-shutdownCtx.Done():
		return errors.WrapTransient(shutdownCtx.Err(),
			component, "Stop", "wait for client goroutines")
	}
}

// Addr returns the address the gateway serves on.
func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.cfg.Port)
}

// handle wraps an endpoint with the shared request plumbing: request ID,
// CORS, method filtering, and request metrics.
func (s *Server) handle(route, method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.Header().Set("X-Request-ID", requestID(r))
		s.applyCORS(w, r)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != method {
			s.writeError(w, http.StatusMethodNotAllowed,
				fmt.Sprintf("method %s not allowed", r.Method))
			s.observe(route, http.StatusMethodNotAllowed, start)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		s.observe(route, rec.status, start)
	}
}

// observe records one served request.
func (s *Server) observe(route string, status int, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.requestsTotal.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	s.metrics.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// statusRecorder captures the response status for metrics labels.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestID extracts the caller's X-Request-ID or generates a fresh one.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// applyCORS sets CORS headers when the request origin is on the allow list.
func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || !s.originAllowed(origin) {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// httpStatus maps an error to its HTTP status. Unknown streams and
// unconnected stream pairs are absent resources, not bad requests; they are
// checked before the general invalid class.
func httpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case stderrors.Is(err, errors.ErrStreamNotFound),
		stderrors.Is(err, errors.ErrNotConnected),
		stderrors.Is(err, errors.ErrUnknownNode):
		return http.StatusNotFound
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.IsTransient(err):
		if strings.Contains(err.Error(), "timeout") {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sanitize returns a safe client-facing message for an error. Internal
// detail stays in the logs.
func sanitize(err error) string {
	switch {
	case err == nil:
		return "internal server error"
	case stderrors.Is(err, errors.ErrStreamNotFound):
		return "stream not found"
	case stderrors.Is(err, errors.ErrNotConnected), stderrors.Is(err, errors.ErrUnknownNode):
		return "streams not linked by any extrinsics path"
	case errors.IsInvalid(err):
		return "invalid request"
	case errors.IsTransient(err):
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}

// writeFailure maps, sanitizes, and writes one error response.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	s.writeError(w, httpStatus(err), sanitize(err))
}

// writeError writes a JSON error body with the given status.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	data, _ := json.Marshal(map[string]any{
		"error":  message,
		"status": status,
	})
	_, _ = w.Write(data)
}

// writeJSON writes a JSON response body.
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ringOptions builds the per-client broadcast ring configuration.
func (s *Server) ringOptions() []ring.Option[[]byte] {
	return []ring.Option[[]byte]{
		ring.WithDropFunc[[]byte](func([]byte) {
			if s.metrics != nil {
				s.metrics.broadcastDropsTotal.Inc()
			}
		}),
	}
}
