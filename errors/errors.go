// Package errors provides standardized error handling patterns for proxy
// components. It includes error classification, standard error variables, and
// helper functions for consistent error wrapping and classification across
// the system.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass sorts failures by how callers should react to them.
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may clear on their own
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or unsatisfiable queries
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop device adoption
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Stream identity errors
	ErrUnknownStreamType   = errors.New("unknown stream type")
	ErrMalformedStreamName = errors.New("malformed stream name")
	ErrDuplicateStream     = errors.New("duplicate stream identity")
	ErrUnknownFormat       = errors.New("unknown stream format")
	ErrStreamNotFound      = errors.New("stream not found")
	ErrProfileNotFound     = errors.New("profile not found")

	// Calibration errors
	ErrMissingIntrinsics = errors.New("no intrinsics for profile")
	ErrMissingExtrinsics = errors.New("no extrinsics for stream")
	ErrNotConnected      = errors.New("streams not linked by any extrinsics path")
	ErrUnknownNode       = errors.New("node not registered")

	// Device and descriptor errors
	ErrInvalidDescriptor   = errors.New("invalid device descriptor")
	ErrNoStreams           = errors.New("device reports no streams")
	ErrDeviceNotReady      = errors.New("device not ready")
	ErrMetadataUnsupported = errors.New("device does not publish metadata")

	// Component lifecycle errors
	ErrAlreadyStarted = errors.New("component already started")
	ErrNotStarted     = errors.New("component not started")
	ErrShuttingDown   = errors.New("component is shutting down")

	// Connection and transport errors
	ErrNoConnection       = errors.New("no connection available")
	ErrConnectionLost     = errors.New("connection lost")
	ErrSubscriptionFailed = errors.New("subscription failed")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// classRule ties an ErrorClass to the sentinels that imply it and, for
// errors that originate outside this module, to message fragments that
// suggest it.
type classRule struct {
	class     ErrorClass
	sentinels []error
	fragments []string
}

// classRules are checked in order. An error whose message matches more than
// one rule classifies as the earlier one, so transient wins over fatal.
var classRules = []classRule{
	{
		class: ErrorTransient,
		sentinels: []error{
			ErrNoConnection,
			ErrConnectionLost,
			ErrSubscriptionFailed,
			ErrDeviceNotReady,
			context.DeadlineExceeded,
			context.Canceled,
		},
		fragments: []string{"timeout", "connection", "network", "temporary", "unavailable", "busy"},
	},
	{
		class: ErrorFatal,
		sentinels: []error{
			ErrUnknownStreamType,
			ErrMalformedStreamName,
			ErrDuplicateStream,
			ErrNoStreams,
			ErrInvalidConfig,
			ErrMissingConfig,
		},
		fragments: []string{"fatal", "panic", "corrupted", "invalid config", "missing config"},
	},
	{
		class: ErrorInvalid,
		sentinels: []error{
			ErrInvalidDescriptor,
			ErrUnknownFormat,
			ErrStreamNotFound,
			ErrProfileNotFound,
			ErrMissingIntrinsics,
			ErrMissingExtrinsics,
			ErrNotConnected,
			ErrUnknownNode,
			ErrMetadataUnsupported,
		},
	},
}

// matches reports whether err falls under the rule, either by sentinel
// identity or by message fragment.
func (r classRule) matches(err error) bool {
	for _, sentinel := range r.sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	if len(r.fragments) == 0 {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range r.fragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// is reports whether err belongs to class. An explicit ClassifiedError in
// the chain takes priority over rule matching.
func is(err error, class ErrorClass) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == class
	}
	for _, rule := range classRules {
		if rule.class == class {
			return rule.matches(err)
		}
	}
	return false
}

// IsTransient checks if an error is temporary and worth reporting as such
func IsTransient(err error) bool {
	return is(err, ErrorTransient)
}

// IsFatal checks if an error is fatal and should abort device adoption
func IsFatal(err error) bool {
	return is(err, ErrorFatal)
}

// IsInvalid checks if an error is due to invalid input or an unsatisfiable query
func IsInvalid(err error) bool {
	return is(err, ErrorInvalid)
}

// Classify resolves an error to a single class. Errors no rule recognizes
// classify as transient so callers err on the side of keeping the device
// alive.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	for _, rule := range classRules {
		if rule.matches(err) {
			return rule.class
		}
	}
	return ErrorTransient
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// classified wraps err in the standard format and attaches class. The
// Operation field records the method, matching the wrap text.
func classified(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	return classified(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	return classified(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	return classified(ErrorInvalid, err, component, method, action)
}
