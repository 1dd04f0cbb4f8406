package remote

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/timor11/librealsense/errors"
	"github.com/timor11/librealsense/extrinsics"
	"github.com/timor11/librealsense/stream"
)

// Info carries the identifying fields a device publishes about itself.
type Info struct {
	Name        string `json:"name"`
	Serial      string `json:"serial"`
	ProductLine string `json:"product-line,omitempty"`
	ProductID   string `json:"product-id,omitempty"`
	TopicRoot   string `json:"topic-root,omitempty"`
	Locked      bool   `json:"locked,omitempty"`
}

// OptionRange bounds a numeric option.
type OptionRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Default float64 `json:"default"`
}

// Option is a named control a sensor exposes, with its current value.
type Option struct {
	Name        string       `json:"name"`
	Value       float64      `json:"value"`
	Range       *OptionRange `json:"range,omitempty"`
	Description string       `json:"description,omitempty"`
	ReadOnly    bool         `json:"read-only,omitempty"`
}

// ProfileDescriptor is one advertised operating mode of a stream. Width and
// height are zero for motion streams.
type ProfileDescriptor struct {
	Frequency int    `json:"frequency"`
	Format    string `json:"format"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// Stream is one advertised stream: its identity, operating modes, controls
// and calibration. Video streams carry per-resolution intrinsics; motion
// streams carry a single record.
type Stream struct {
	Name                string                   `json:"name"`
	Sensor              string                   `json:"sensor"`
	Type                string                   `json:"type"`
	Profiles            []ProfileDescriptor      `json:"profiles"`
	DefaultProfileIndex int                      `json:"default-profile-index"`
	Options             []Option                 `json:"options,omitempty"`
	RecommendedFilters  []string                 `json:"recommended-filters,omitempty"`
	VideoIntrinsics     stream.IntrinsicsSet     `json:"video-intrinsics,omitempty"`
	MotionIntrinsics    *stream.MotionIntrinsics `json:"motion-intrinsics,omitempty"`
}

// ExtrinsicsRecord is a published transform between two named streams. The
// reverse direction is a separate record.
type ExtrinsicsRecord struct {
	From string `json:"from"`
	To   string `json:"to"`
	extrinsics.Transform
}

// Descriptor is a device's complete self-description.
type Descriptor struct {
	Device            Info               `json:"device"`
	Streams           []Stream           `json:"streams"`
	Extrinsics        []ExtrinsicsRecord `json:"extrinsics,omitempty"`
	MetadataSupported bool               `json:"metadata-supported,omitempty"`
}

// descriptorSchema structurally validates a self-description document before
// decoding. Semantic rules (stream typing, index uniqueness, profile
// plausibility) are enforced during the device build, not here.
const descriptorSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Device self-description",
  "type": "object",
  "required": ["device", "streams"],
  "properties": {
    "device": {
      "type": "object",
      "required": ["name", "serial"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "serial": {"type": "string", "minLength": 1},
        "product-line": {"type": "string"},
        "product-id": {"type": "string"},
        "topic-root": {"type": "string"},
        "locked": {"type": "boolean"}
      }
    },
    "streams": {
      "type": "array",
      "items": {"$ref": "#/definitions/stream"}
    },
    "extrinsics": {
      "type": "array",
      "items": {"$ref": "#/definitions/extrinsics"}
    },
    "metadata-supported": {"type": "boolean"}
  },
  "definitions": {
    "stream": {
      "type": "object",
      "required": ["name", "sensor", "type", "profiles"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "sensor": {"type": "string", "minLength": 1},
        "type": {"type": "string", "enum": ["depth", "color", "ir", "motion", "confidence"]},
        "profiles": {
          "type": "array",
          "items": {"$ref": "#/definitions/profile"}
        },
        "default-profile-index": {"type": "integer", "minimum": 0},
        "options": {
          "type": "array",
          "items": {"$ref": "#/definitions/option"}
        },
        "recommended-filters": {
          "type": "array",
          "items": {"type": "string"}
        },
        "video-intrinsics": {
          "type": "array",
          "items": {"$ref": "#/definitions/videoIntrinsics"}
        },
        "motion-intrinsics": {"$ref": "#/definitions/motionIntrinsics"}
      }
    },
    "profile": {
      "type": "object",
      "required": ["frequency", "format"],
      "properties": {
        "frequency": {"type": "integer", "minimum": 1},
        "format": {"type": "string", "minLength": 1},
        "width": {"type": "integer", "minimum": 0},
        "height": {"type": "integer", "minimum": 0}
      }
    },
    "option": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "value": {"type": "number"},
        "range": {
          "type": "object",
          "properties": {
            "min": {"type": "number"},
            "max": {"type": "number"},
            "step": {"type": "number"},
            "default": {"type": "number"}
          }
        },
        "description": {"type": "string"},
        "read-only": {"type": "boolean"}
      }
    },
    "videoIntrinsics": {
      "type": "object",
      "required": ["width", "height"],
      "properties": {
        "width": {"type": "integer", "minimum": 1},
        "height": {"type": "integer", "minimum": 1},
        "ppx": {"type": "number"},
        "ppy": {"type": "number"},
        "fx": {"type": "number"},
        "fy": {"type": "number"},
        "model": {"type": ["string", "integer"]},
        "coeffs": {
          "type": "array",
          "items": {"type": "number"},
          "maxItems": 5
        }
      }
    },
    "motionIntrinsics": {
      "type": "object",
      "properties": {
        "data": {
          "type": "array",
          "items": {
            "type": "array",
            "items": {"type": "number"},
            "minItems": 4,
            "maxItems": 4
          },
          "minItems": 3,
          "maxItems": 3
        },
        "noise-variances": {
          "type": "array",
          "items": {"type": "number"},
          "minItems": 3,
          "maxItems": 3
        },
        "bias-variances": {
          "type": "array",
          "items": {"type": "number"},
          "minItems": 3,
          "maxItems": 3
        }
      }
    },
    "extrinsics": {
      "type": "object",
      "required": ["from", "to", "rotation", "translation"],
      "properties": {
        "from": {"type": "string", "minLength": 1},
        "to": {"type": "string", "minLength": 1},
        "rotation": {
          "type": "array",
          "items": {"type": "number"},
          "minItems": 9,
          "maxItems": 9
        },
        "translation": {
          "type": "array",
          "items": {"type": "number"},
          "minItems": 3,
          "maxItems": 3
        }
      }
    }
  }
}`

// ParseDescriptor validates and decodes a self-description document. A
// document that fails schema validation is rejected before decoding; the
// returned error wraps errors.ErrInvalidDescriptor and names every violation.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	schemaLoader := gojsonschema.NewStringLoader(descriptorSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidDescriptor, err),
			"Descriptor", "ParseDescriptor", "validate document")
	}

	if !result.Valid() {
		errMsg := "descriptor validation failed:"
		for _, desc := range result.Errors() {
			errMsg += fmt.Sprintf("\n  - %s: %s", desc.Field(), desc.Description())
		}
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidDescriptor, errMsg),
			"Descriptor", "ParseDescriptor", "validate document")
	}

	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidDescriptor, err),
			"Descriptor", "ParseDescriptor", "decode document")
	}

	return &desc, nil
}
