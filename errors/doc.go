// Package errors provides standardized error handling for the topology
// proxy.
//
// # Overview
//
// The errors package implements a three-class error classification system
// for device adoption and lookup paths: Transient (temporary, the caller
// may see the condition clear), Invalid (bad input or an unsatisfiable
// query, do not repeat), and Fatal (the descriptor or configuration is
// unusable, abort adoption).
//
// The classification lets callers branch on error kind instead of matching
// strings: the gateway maps classes to HTTP statuses, and the daemon
// decides between aborting startup and logging a degraded feed.
//
// # Error Classification
//
// Errors are classified based on their type or content:
//
//   - Transient: connection loss, subscription failures, devices not yet
//     ready
//   - Invalid: malformed descriptors, unknown streams or profiles,
//     unsatisfiable extrinsics lookups
//   - Fatal: unknown stream types, duplicate stream identities, broken
//     configuration
//
// The system integrates with Go's standard error handling, supporting
// errors.Is(), errors.As(), and wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if _, ok := d.streams[name]; !ok {
//	    return errors.ErrStreamNotFound
//	}
//
// Wrap errors with context for debugging:
//
//	if err := parse(data); err != nil {
//	    return errors.WrapInvalid(err, "Descriptor", "Parse", "schema validation")
//	}
//
// Check classification at decision points:
//
//	if err := build(); err != nil {
//	    if errors.IsFatal(err) {
//	        // Descriptor unusable: reject the device whole
//	        return err
//	    }
//	    if errors.IsTransient(err) {
//	        // Feed may come back; keep the topology, log the gap
//	        log.Warn("feed degraded", "error", err)
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// This format keeps log lines parseable across the proxy. The Wrap family
// applies the pattern while carrying classification through the chain:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// The generic Wrap() preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Standard Error Variables
//
// Pre-defined variables cover the domain's known conditions, organized by
// category:
//
//   - Stream model: ErrUnknownStreamType, ErrMalformedStreamName,
//     ErrDuplicateStream, ErrUnknownFormat, ErrStreamNotFound,
//     ErrProfileNotFound
//   - Calibration: ErrMissingIntrinsics, ErrMissingExtrinsics,
//     ErrNotConnected, ErrUnknownNode
//   - Devices: ErrInvalidDescriptor, ErrNoStreams, ErrDeviceNotReady,
//     ErrMetadataUnsupported
//   - Lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrShuttingDown
//   - Messaging: ErrNoConnection, ErrConnectionLost, ErrSubscriptionFailed
//   - Configuration: ErrInvalidConfig, ErrMissingConfig
//
// Use these instead of ad-hoc messages so call sites can test with
// errors.Is:
//
//	// Good - callers can branch on it
//	return errors.ErrNotConnected
//
//	// Avoid - only string matching can detect this
//	return errors.New("streams not linked")
//
// # Integration with errors.As/Is
//
// All types support standard library inspection:
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("component: %s, class: %s", ce.Component, ce.Class)
//	}
//
//	if errors.Is(err, errors.ErrStreamNotFound) {
//	    // 404 territory
//	}
//
//	// Classification survives wrapping
//	wrapped := errors.Wrap(errors.ErrConnectionLost, "Source", "Start", "subscribe")
//	errors.IsTransient(wrapped) // true
//
// # Context Cancellation
//
// Context errors (context.DeadlineExceeded, context.Canceled) classify as
// Transient, so context-based timeouts and broker timeouts take the same
// branch.
//
// # Thread Safety
//
// Classification and wrapping are thread-safe. Error variables are
// immutable and safe for concurrent access; ClassifiedError is safe to
// share after creation.
//
// # Design Philosophy
//
//   - Classification over string matching: branch on error class, not
//     message content
//   - Wrapping over replacement: preserve the original error, add context
//   - Standards over invention: plain Is/As/Unwrap idioms
//   - Simplicity over completeness: three classes cover the proxy's
//     decision points
package errors
