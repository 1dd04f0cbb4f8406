// Package timestamp handles capture and wire timestamps in their canonical
// form: int64 milliseconds since the Unix epoch (UTC).
//
// Devices stamp frames in one of three clock domains. Only the system and
// global domains are epoch-based; hardware-clock values count milliseconds
// since the device powered on and cannot be placed on the wall clock without
// the sensor's own base offset.
//
// A timestamp value of 0 means "not set".
package timestamp

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Domain identifies the clock a device stamped a frame with. Numeric codes
// follow the device SDK's wire order.
type Domain int

const (
	// DomainHardware counts milliseconds since device power-up.
	DomainHardware Domain = iota
	// DomainSystem is host kernel time at frame arrival.
	DomainSystem
	// DomainGlobal is host time corrected by the device-to-host clock model.
	DomainGlobal
)

var domainTags = map[Domain]string{
	DomainHardware: "hardware-clock",
	DomainSystem:   "system-time",
	DomainGlobal:   "global-time",
}

// String returns the domain's wire tag.
func (d Domain) String() string {
	if tag, ok := domainTags[d]; ok {
		return tag
	}
	return fmt.Sprintf("domain(%d)", int(d))
}

// EpochBased reports whether values stamped in the domain are milliseconds
// since the Unix epoch.
func (d Domain) EpochBased() bool {
	return d == DomainSystem || d == DomainGlobal
}

// ParseDomain maps a wire tag or numeric code to a Domain. Records carry
// either form depending on the publisher.
func ParseDomain(v any) (Domain, error) {
	switch val := v.(type) {
	case string:
		for d, tag := range domainTags {
			if tag == val {
				return d, nil
			}
		}
		return 0, fmt.Errorf("unknown timestamp domain %q", val)
	case float64:
		return ParseDomain(int(val))
	case int:
		d := Domain(val)
		if _, ok := domainTags[d]; !ok {
			return 0, fmt.Errorf("unknown timestamp domain code %d", val)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("timestamp domain must be a tag or code, got %T", v)
	}
}

// MarshalJSON writes the wire tag.
func (d Domain) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts either a wire tag or a numeric code.
func (d *Domain) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseDomain(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Now returns the current time in canonical form.
func Now() int64 {
	return time.Now().UnixMilli()
}

// ToUnixMs converts a time.Time to canonical milliseconds.
func ToUnixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMs converts canonical milliseconds to time.Time. Returns the zero
// time when ms is 0.
func FromUnixMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Format renders a canonical timestamp for display with millisecond
// precision. Returns the empty string when ms is 0.
func Format(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Parse converts the epoch timestamp shapes that appear on the wire to
// canonical milliseconds: JSON numbers (seconds or milliseconds, decided by
// magnitude), RFC3339 strings, numeric strings, and time.Time. Returns 0 for
// anything unparseable.
//
// Hardware-clock values must not pass through here; their magnitude would be
// misread as seconds.
func Parse(input any) int64 {
	switch v := input.(type) {
	case nil:
		return 0
	case int64:
		if v == 0 {
			return 0
		}
		// Values above 1e12 are already milliseconds; anything smaller is
		// seconds (1e12 ms is 2001, 1e12 s is past year 33000).
		if v > 1e12 {
			return v
		}
		return v * 1000
	case int:
		return Parse(int64(v))
	case float64:
		if v == 0 {
			return 0
		}
		if v > 1e12 {
			return int64(v)
		}
		return int64(v * 1000)
	case string:
		if v == "" {
			return 0
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return ToUnixMs(t)
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return Parse(n)
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return Parse(f)
		}
		return 0
	case time.Time:
		return ToUnixMs(v)
	default:
		return 0
	}
}

// IsZero reports whether a timestamp is unset.
func IsZero(ms int64) bool {
	return ms == 0
}

// Since returns the duration elapsed since a canonical timestamp, 0 when
// unset.
func Since(ms int64) time.Duration {
	if ms == 0 {
		return 0
	}
	return time.Since(time.UnixMilli(ms))
}

// Between returns the duration from start to end. Either side unset yields 0.
func Between(start, end int64) time.Duration {
	if start == 0 || end == 0 {
		return 0
	}
	return time.UnixMilli(end).Sub(time.UnixMilli(start))
}
