package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/timor11/librealsense/pkg/timestamp"
)

// LogLevel represents the severity level of a build log entry
type LogLevel string

const (
	// LogLevelDebug represents debug-level logs
	LogLevelDebug LogLevel = "DEBUG"
	// LogLevelInfo represents informational logs
	LogLevelInfo LogLevel = "INFO"
	// LogLevelWarn represents warning logs
	LogLevelWarn LogLevel = "WARN"
	// LogLevelError represents error logs
	LogLevelError LogLevel = "ERROR"
)

// Publisher abstracts the transport used for remote build logs. Both
// *natsclient.Client and the testutil mock satisfy it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// LogEntry is one structured build log record published for remote
// consumption. Keys follow the kebab-case wire convention.
type LogEntry struct {
	Timestamp int64    `json:"timestamp"` // canonical milliseconds
	Level     LogLevel `json:"level"`
	Device    string   `json:"device"`
	Message   string   `json:"message"`
	Detail    string   `json:"detail,omitempty"` // error details
}

// LogSubject returns the subject build logs for a device publish to.
func LogSubject(serial string) string {
	return "rs.log." + serial
}

// Logger logs device build events: locally through slog, and optionally to a
// Publisher for remote consumption. A nil Publisher disables publishing and
// keeps the local path only.
type Logger struct {
	device  string
	pub     Publisher
	logger  *slog.Logger
	enabled bool
}

// NewLogger creates a build logger for one device.
func NewLogger(serial string, pub Publisher, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		device:  serial,
		pub:     pub,
		logger:  logger,
		enabled: pub != nil,
	}
}

// Debug logs a debug-level message
func (bl *Logger) Debug(msg string) {
	bl.publish(LogLevelDebug, msg, "")
	bl.logger.Debug(msg, "device", bl.device)
}

// Info logs an info-level message
func (bl *Logger) Info(msg string) {
	bl.publish(LogLevelInfo, msg, "")
	bl.logger.Info(msg, "device", bl.device)
}

// Warn logs a warning-level message
func (bl *Logger) Warn(msg string) {
	bl.publish(LogLevelWarn, msg, "")
	bl.logger.Warn(msg, "device", bl.device)
}

// Error logs an error-level message with optional error details
func (bl *Logger) Error(msg string, err error) {
	detail := ""
	if err != nil {
		detail = fmt.Sprintf("%+v", err)
	}
	bl.publish(LogLevelError, msg, detail)
	bl.logger.Error(msg, "device", bl.device, "error", err)
}

// publish sends one entry to the Publisher. Publish failures are logged
// locally and never fail the build.
func (bl *Logger) publish(level LogLevel, message, detail string) {
	if !bl.enabled {
		return
	}

	entry := LogEntry{
		Timestamp: timestamp.Now(),
		Level:     level,
		Device:    bl.device,
		Message:   message,
		Detail:    detail,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		bl.logger.Error("failed to marshal build log entry", "error", err)
		return
	}

	subject := LogSubject(bl.device)
	if err := bl.pub.Publish(context.Background(), subject, data); err != nil {
		bl.logger.Error("failed to publish build log", "error", err, "subject", subject)
	}
}
