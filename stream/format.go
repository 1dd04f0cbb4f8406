package stream

import (
	"fmt"
	"strings"

	"github.com/timor11/librealsense/errors"
)

// Format identifies the sample layout of a stream. Video formats name pixel
// layouts; motion streams always use FormatCombinedMotion.
type Format string

const (
	// FormatZ16 is 16-bit depth, one channel.
	FormatZ16 Format = "Z16"
	// FormatY8 is 8-bit grayscale.
	FormatY8 Format = "Y8"
	// FormatY16 is 16-bit grayscale.
	FormatY16 Format = "Y16"
	// FormatY8I is interleaved stereo 8-bit grayscale.
	FormatY8I Format = "Y8I"
	// FormatY12I is interleaved stereo 12-bit grayscale.
	FormatY12I Format = "Y12I"
	// FormatYUYV is packed YUV 4:2:2.
	FormatYUYV Format = "YUYV"
	// FormatUYVY is packed YUV 4:2:2, swapped byte order.
	FormatUYVY Format = "UYVY"
	// FormatRGB8 is 24-bit RGB.
	FormatRGB8 Format = "RGB8"
	// FormatBGR8 is 24-bit BGR.
	FormatBGR8 Format = "BGR8"
	// FormatRGBA8 is 32-bit RGB with alpha.
	FormatRGBA8 Format = "RGBA8"
	// FormatBGRA8 is 32-bit BGR with alpha.
	FormatBGRA8 Format = "BGRA8"
	// FormatRaw16 is unprocessed 16-bit sensor output.
	FormatRaw16 Format = "RAW16"
	// FormatCombinedMotion is the fixed format of motion streams: one sample
	// carrying both accelerometer and gyroscope readings.
	FormatCombinedMotion Format = "MXYZ"
)

// formatAliases maps normalized wire spellings to canonical formats. Remote
// descriptions may use either the short SDK names or ROS-style image
// encodings.
var formatAliases = map[string]Format{
	"z16":         FormatZ16,
	"16uc1":       FormatZ16,
	"y8":          FormatY8,
	"mono8":       FormatY8,
	"y16":         FormatY16,
	"mono16":      FormatY16,
	"y8i":         FormatY8I,
	"y12i":        FormatY12I,
	"yuyv":        FormatYUYV,
	"yuv422_yuy2": FormatYUYV,
	"uyvy":        FormatUYVY,
	"rgb8":        FormatRGB8,
	"bgr8":        FormatBGR8,
	"rgba8":       FormatRGBA8,
	"bgra8":       FormatBGRA8,
	"raw16":       FormatRaw16,
	"mxyz":        FormatCombinedMotion,
}

// ParseFormat resolves a wire format spelling to its canonical Format.
// Matching is case-insensitive. Unknown spellings fail with ErrUnknownFormat.
func ParseFormat(s string) (Format, error) {
	f, ok := formatAliases[strings.ToLower(s)]
	if !ok {
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownFormat, s)
	}
	return f, nil
}

// String returns the canonical spelling.
func (f Format) String() string {
	return string(f)
}

// IsMotion reports whether f is the combined-motion sample format.
func (f Format) IsMotion() bool {
	return f == FormatCombinedMotion
}

// BytesPerPixel returns the per-pixel size of a video format, or 0 for
// formats without a fixed pixel size.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatY8:
		return 1
	case FormatZ16, FormatY16, FormatY8I, FormatYUYV, FormatUYVY, FormatRaw16:
		return 2
	case FormatY12I, FormatRGB8, FormatBGR8:
		return 3
	case FormatRGBA8, FormatBGRA8:
		return 4
	default:
		return 0
	}
}
