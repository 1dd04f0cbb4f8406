package stream

import (
	"encoding/json"
	"fmt"

	"github.com/timor11/librealsense/errors"
)

// Kind is the category of a stream. The set is closed: consumers switch over
// Kind rather than re-deriving the category from names or formats.
type Kind int

const (
	// KindUnknown is the zero value. It never appears in a built model.
	KindUnknown Kind = iota
	// KindDepth is a depth (range) image stream.
	KindDepth
	// KindColor is a color image stream.
	KindColor
	// KindInfrared is an infrared image stream.
	KindInfrared
	// KindMotion is a combined accelerometer/gyroscope sample stream.
	KindMotion
	// KindConfidence is a per-pixel depth-confidence stream.
	KindConfidence
)

// kindTags maps the type tag carried by a remote stream description to its
// Kind. Note the infrared tag is "ir" on the wire.
var kindTags = map[string]Kind{
	"depth":      KindDepth,
	"color":      KindColor,
	"ir":         KindInfrared,
	"motion":     KindMotion,
	"confidence": KindConfidence,
}

// ParseKind maps a remote type tag to its Kind. A tag outside the closed set
// fails with ErrUnknownStreamType; adopting such a device must abort.
func ParseKind(tag string) (Kind, error) {
	k, ok := kindTags[tag]
	if !ok {
		return KindUnknown, fmt.Errorf("%w: %q", errors.ErrUnknownStreamType, tag)
	}
	return k, nil
}

// String returns the wire tag for the kind ("ir" for KindInfrared).
func (k Kind) String() string {
	switch k {
	case KindDepth:
		return "depth"
	case KindColor:
		return "color"
	case KindInfrared:
		return "ir"
	case KindMotion:
		return "motion"
	case KindConfidence:
		return "confidence"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the five defined kinds.
func (k Kind) Valid() bool {
	return k > KindUnknown && k <= KindConfidence
}

// IsVideo reports whether streams of this kind carry framed images with a
// resolution, as opposed to motion samples.
func (k Kind) IsVideo() bool {
	switch k {
	case KindDepth, KindColor, KindInfrared, KindConfidence:
		return true
	default:
		return false
	}
}

// MarshalJSON encodes the kind as its wire tag.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a wire tag into a Kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	parsed, err := ParseKind(tag)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
