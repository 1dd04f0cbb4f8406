package remote

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/timor11/librealsense/errors"
	"github.com/timor11/librealsense/natsclient"
)

// MetadataSource feeds metadata records from a NATS subject into a
// registered callback. It decodes each message and passes it on; malformed
// records are counted and dropped. The NATS connection lifecycle stays with
// the caller: the source subscribes on Start and relies on the client's own
// close to tear the subscription down.
type MetadataSource struct {
	client  *natsclient.Client
	subject string
	logger  *slog.Logger

	mu       sync.RWMutex
	callback func(Metadata)
	started  bool

	received  atomic.Uint64
	malformed atomic.Uint64
}

// NewMetadataSource creates a source reading from subject. The logger may be
// nil, in which case the default logger is used.
func NewMetadataSource(client *natsclient.Client, subject string, logger *slog.Logger) *MetadataSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataSource{
		client:  client,
		subject: subject,
		logger:  logger,
	}
}

// OnMetadataAvailable registers the callback invoked once per decoded
// record, replacing any previous one. Callbacks run on transport goroutines.
func (s *MetadataSource) OnMetadataAvailable(fn func(Metadata)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = fn
}

// Start subscribes to the subject and begins feeding the callback. Calling
// Start twice is an error.
func (s *MetadataSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted,
			"MetadataSource", "Start", "subscribe")
	}
	s.started = true
	s.mu.Unlock()

	err := s.client.Subscribe(ctx, s.subject, s.handleMessage)
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return errors.Wrap(err, "MetadataSource", "Start", "subscribe")
	}

	s.logger.Debug("metadata source started", "subject", s.subject)
	return nil
}

// handleMessage decodes one wire record and hands it to the callback.
func (s *MetadataSource) handleMessage(_ context.Context, data []byte) {
	s.received.Add(1)

	m, err := DecodeMetadata(data)
	if err != nil {
		s.malformed.Add(1)
		s.logger.Debug("dropping malformed metadata record",
			"subject", s.subject, "error", err)
		return
	}

	s.mu.RLock()
	fn := s.callback
	s.mu.RUnlock()

	if fn != nil {
		fn(m)
	}
}

// Stats returns how many records arrived and how many failed to decode.
func (s *MetadataSource) Stats() (received, malformed uint64) {
	return s.received.Load(), s.malformed.Load()
}
