package remote

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/timor11/librealsense/errors"
	"github.com/timor11/librealsense/pkg/timestamp"
)

// StreamNameKey is the fixed wire key carrying the owning stream's name in
// every metadata record.
const StreamNameKey = "stream-name"

// TimestampKey and TimestampDomainKey are the fixed wire keys carrying a
// record's capture timestamp (milliseconds, in the record's clock domain)
// and the clock that produced it.
const (
	TimestampKey       = "timestamp"
	TimestampDomainKey = "timestamp-domain"
)

// MetadataSubject derives the NATS subject a device's metadata arrives on
// from its topic root. Path separators become subject tokens:
// "realsense/D435I_943222071234" maps to
// "rs.realsense.D435I_943222071234.metadata".
func MetadataSubject(topicRoot string) string {
	root := strings.Trim(topicRoot, "/")
	return "rs." + strings.ReplaceAll(root, "/", ".") + ".metadata"
}

// Metadata is one decoded metadata record. Beyond the stream name the keys
// are device-defined and pass through untouched.
type Metadata map[string]any

// StreamName returns the record's stream name, or false when the key is
// absent or not a string. Records without a routable name are dropped by the
// router, not rejected.
func (m Metadata) StreamName() (string, bool) {
	v, ok := m[StreamNameKey]
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}

// Timestamp returns the record's capture timestamp in milliseconds, or
// false when the key is absent or not numeric. The value is meaningful only
// within the record's clock domain.
func (m Metadata) Timestamp() (float64, bool) {
	switch ts := m[TimestampKey].(type) {
	case float64:
		return ts, true
	case int64:
		return float64(ts), true
	case int:
		return float64(ts), true
	default:
		return 0, false
	}
}

// TimestampDomain returns the clock domain the record was stamped in.
// Records with no domain, or an unrecognized one, default to the hardware
// clock.
func (m Metadata) TimestampDomain() timestamp.Domain {
	v, ok := m[TimestampDomainKey]
	if !ok {
		return timestamp.DomainHardware
	}
	d, err := timestamp.ParseDomain(v)
	if err != nil {
		return timestamp.DomainHardware
	}
	return d
}

// DecodeMetadata decodes one metadata record from its wire form.
func DecodeMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("malformed metadata record: %v", err),
			"Metadata", "DecodeMetadata", "decode record")
	}
	return m, nil
}
