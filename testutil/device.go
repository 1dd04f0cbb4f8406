package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timor11/librealsense/remote"
)

// DescriptorD435I is a realistic self-description in the shape a D435i-class
// camera publishes: a stereo module with depth and two infrared imagers, a
// color camera, and a combined motion stream, with calibration in both
// directions for every published pair.
const DescriptorD435I = `{
  "device": {
    "name": "Intel RealSense D435I",
    "serial": "943222071234",
    "product-line": "D400",
    "product-id": "0B3A",
    "topic-root": "realsense/D435I_943222071234"
  },
  "metadata-supported": true,
  "streams": [
    {
      "name": "Depth",
      "sensor": "Stereo Module",
      "type": "depth",
      "default-profile-index": 1,
      "profiles": [
        {"frequency": 30, "format": "z16", "width": 1280, "height": 720},
        {"frequency": 30, "format": "z16", "width": 848, "height": 480},
        {"frequency": 60, "format": "z16", "width": 848, "height": 480},
        {"frequency": 30, "format": "z16", "width": 640, "height": 480}
      ],
      "options": [
        {"name": "Exposure", "value": 8500, "range": {"min": 1, "max": 200000, "step": 1, "default": 8500}},
        {"name": "Gain", "value": 16, "range": {"min": 16, "max": 248, "step": 1, "default": 16}},
        {"name": "Enable Auto Exposure", "value": 1, "range": {"min": 0, "max": 1, "step": 1, "default": 1}},
        {"name": "Laser Power", "value": 150, "range": {"min": 0, "max": 360, "step": 30, "default": 150}}
      ],
      "recommended-filters": ["Decimation Filter", "Threshold Filter", "Spatial Filter", "Temporal Filter", "Hole Filling Filter"],
      "video-intrinsics": [
        {"width": 1280, "height": 720, "ppx": 639.75, "ppy": 359.21, "fx": 636.92, "fy": 636.92, "model": "brown-conrady", "coeffs": [0, 0, 0, 0, 0]},
        {"width": 848, "height": 480, "ppx": 424.23, "ppy": 239.47, "fx": 421.96, "fy": 421.96, "model": "brown-conrady", "coeffs": [0, 0, 0, 0, 0]},
        {"width": 640, "height": 480, "ppx": 320.14, "ppy": 238.91, "fx": 383.31, "fy": 383.31, "model": "brown-conrady", "coeffs": [0, 0, 0, 0, 0]}
      ]
    },
    {
      "name": "Infrared_1",
      "sensor": "Stereo Module",
      "type": "ir",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 30, "format": "y8", "width": 848, "height": 480},
        {"frequency": 30, "format": "y8", "width": 640, "height": 480}
      ],
      "video-intrinsics": [
        {"width": 848, "height": 480, "ppx": 424.23, "ppy": 239.47, "fx": 421.96, "fy": 421.96, "model": "brown-conrady", "coeffs": [0, 0, 0, 0, 0]},
        {"width": 640, "height": 480, "ppx": 320.14, "ppy": 238.91, "fx": 383.31, "fy": 383.31, "model": "brown-conrady", "coeffs": [0, 0, 0, 0, 0]}
      ]
    },
    {
      "name": "Infrared_2",
      "sensor": "Stereo Module",
      "type": "ir",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 30, "format": "y8", "width": 848, "height": 480}
      ],
      "video-intrinsics": [
        {"width": 848, "height": 480, "ppx": 424.23, "ppy": 239.47, "fx": 421.96, "fy": 421.96, "model": "brown-conrady", "coeffs": [0, 0, 0, 0, 0]}
      ]
    },
    {
      "name": "Color",
      "sensor": "RGB Camera",
      "type": "color",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 30, "format": "yuyv", "width": 1280, "height": 720},
        {"frequency": 30, "format": "yuyv", "width": 640, "height": 480},
        {"frequency": 60, "format": "yuyv", "width": 640, "height": 480}
      ],
      "options": [
        {"name": "Brightness", "value": 0, "range": {"min": -64, "max": 64, "step": 1, "default": 0}},
        {"name": "Contrast", "value": 50, "range": {"min": 0, "max": 100, "step": 1, "default": 50}},
        {"name": "Enable Auto White Balance", "value": 1, "range": {"min": 0, "max": 1, "step": 1, "default": 1}}
      ],
      "video-intrinsics": [
        {"width": 1280, "height": 720, "ppx": 647.43, "ppy": 368.55, "fx": 910.32, "fy": 910.61, "model": "inverse-brown-conrady", "coeffs": [0, 0, 0, 0, 0]},
        {"width": 640, "height": 480, "ppx": 325.82, "ppy": 245.70, "fx": 606.88, "fy": 607.07, "model": "inverse-brown-conrady", "coeffs": [0, 0, 0, 0, 0]}
      ]
    },
    {
      "name": "Motion",
      "sensor": "Motion Module",
      "type": "motion",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 200, "format": "mxyz"},
        {"frequency": 400, "format": "mxyz"}
      ],
      "motion-intrinsics": {
        "data": [[1.0, 0, 0, 0.0021], [0, 1.0, 0, -0.0018], [0, 0, 1.0, 0.0007]],
        "noise-variances": [0.000282, 0.000282, 0.000282],
        "bias-variances": [0.0001, 0.0001, 0.0001]
      }
    }
  ],
  "extrinsics": [
    {"from": "Depth", "to": "Color", "rotation": [0.99998, 0.00222, -0.00481, -0.00221, 0.99999, 0.00102, 0.00482, -0.00101, 0.99998], "translation": [0.01474, 0.00031, 0.00044]},
    {"from": "Color", "to": "Depth", "rotation": [0.99998, -0.00221, 0.00482, 0.00222, 0.99999, -0.00101, -0.00481, 0.00102, 0.99998], "translation": [-0.01474, -0.00028, -0.00051]},
    {"from": "Depth", "to": "Infrared_1", "rotation": [1, 0, 0, 0, 1, 0, 0, 0, 1], "translation": [0, 0, 0]},
    {"from": "Infrared_1", "to": "Depth", "rotation": [1, 0, 0, 0, 1, 0, 0, 0, 1], "translation": [0, 0, 0]},
    {"from": "Depth", "to": "Infrared_2", "rotation": [1, 0, 0, 0, 1, 0, 0, 0, 1], "translation": [-0.04986, 0, 0]},
    {"from": "Infrared_2", "to": "Depth", "rotation": [1, 0, 0, 0, 1, 0, 0, 0, 1], "translation": [0.04986, 0, 0]},
    {"from": "Depth", "to": "Motion", "rotation": [1, 0, 0, 0, 1, 0, 0, 0, 1], "translation": [-0.00552, 0.0051, 0.01174]},
    {"from": "Motion", "to": "Depth", "rotation": [1, 0, 0, 0, 1, 0, 0, 0, 1], "translation": [0.00552, -0.0051, -0.01174]}
  ]
}`

// DescriptorMinimal is the smallest useful device: one depth and one color
// stream, one profile each, calibration one way only and no metadata.
const DescriptorMinimal = `{
  "device": {
    "name": "Test Camera",
    "serial": "000000000001",
    "topic-root": "realsense/TEST_000000000001"
  },
  "streams": [
    {
      "name": "Depth",
      "sensor": "Stereo Module",
      "type": "depth",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 30, "format": "z16", "width": 640, "height": 480}
      ],
      "video-intrinsics": [
        {"width": 640, "height": 480, "ppx": 320.0, "ppy": 240.0, "fx": 380.0, "fy": 380.0, "model": "brown-conrady", "coeffs": [0, 0, 0, 0, 0]}
      ]
    },
    {
      "name": "Color",
      "sensor": "RGB Camera",
      "type": "color",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 30, "format": "yuyv", "width": 640, "height": 480}
      ],
      "video-intrinsics": [
        {"width": 640, "height": 480, "ppx": 321.0, "ppy": 241.0, "fx": 610.0, "fy": 610.0, "model": "inverse-brown-conrady", "coeffs": [0, 0, 0, 0, 0]}
      ]
    }
  ],
  "extrinsics": [
    {"from": "Depth", "to": "Color", "rotation": [1, 0, 0, 0, 1, 0, 0, 0, 1], "translation": [0.015, 0, 0]}
  ]
}`

// DescriptorSuffixed exercises index parsing: an unsuffixed depth and color
// stream plus a second depth stream carrying an explicit _1 suffix.
const DescriptorSuffixed = `{
  "device": {
    "name": "Suffix Camera",
    "serial": "000000000002"
  },
  "streams": [
    {
      "name": "Depth",
      "sensor": "Stereo Module",
      "type": "depth",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 30, "format": "z16", "width": 640, "height": 480}
      ],
      "video-intrinsics": [
        {"width": 640, "height": 480, "ppx": 320.0, "ppy": 240.0, "fx": 380.0, "fy": 380.0, "model": "brown-conrady", "coeffs": [0, 0, 0, 0, 0]}
      ]
    },
    {
      "name": "Color",
      "sensor": "RGB Camera",
      "type": "color",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 30, "format": "yuyv", "width": 640, "height": 480}
      ]
    },
    {
      "name": "Depth_1",
      "sensor": "Stereo Module",
      "type": "depth",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 30, "format": "z16", "width": 640, "height": 480}
      ]
    }
  ]
}`

// DescriptorDuplicate advertises two streams that collide on (type, index):
// "Depth" and "Depth_0" both resolve to a depth stream with index 0.
const DescriptorDuplicate = `{
  "device": {
    "name": "Broken Camera",
    "serial": "000000000003"
  },
  "streams": [
    {
      "name": "Depth",
      "sensor": "Stereo Module",
      "type": "depth",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 30, "format": "z16", "width": 640, "height": 480}
      ]
    },
    {
      "name": "Depth_0",
      "sensor": "Stereo Module",
      "type": "depth",
      "default-profile-index": 0,
      "profiles": [
        {"frequency": 30, "format": "z16", "width": 640, "height": 480}
      ]
    }
  ]
}`

// MustDescriptor parses a canned descriptor, failing the test on error.
func MustDescriptor(t *testing.T, doc string) *remote.Descriptor {
	t.Helper()
	desc, err := remote.ParseDescriptor([]byte(doc))
	require.NoError(t, err)
	return desc
}

// MustDevice wraps a canned descriptor in a static device.
func MustDevice(t *testing.T, doc string) *remote.StaticDevice {
	t.Helper()
	return remote.NewStaticDevice(MustDescriptor(t, doc))
}
