package stream

import (
	"encoding/json"
	"fmt"

	"github.com/timor11/librealsense/errors"
)

// Profile is the common view over the two profile shapes. The implementation
// set is closed: a Profile is always a *VideoProfile or a *MotionProfile,
// and consumers switch on the concrete type instead of re-deriving the shape
// from the stream kind.
type Profile interface {
	Kind() Kind
	SID() SID
	FrameRate() int
	Format() Format
	Default() bool

	// Rebind replaces the profile's identity. Used when repairing profiles
	// that lost their identity during sensor finalization.
	Rebind(SID)
	// MarkDefault tags the profile as its stream's default mode.
	MarkDefault()
	// ClearDefault removes the default tag.
	ClearDefault()

	isProfile()
}

// attrs carries what every profile has regardless of shape.
type attrs struct {
	kind   Kind
	sid    SID
	fps    int
	format Format
	def    bool
}

func (a *attrs) Kind() Kind     { return a.kind }
func (a *attrs) SID() SID       { return a.sid }
func (a *attrs) FrameRate() int { return a.fps }
func (a *attrs) Format() Format { return a.format }
func (a *attrs) Default() bool  { return a.def }

func (a *attrs) Rebind(sid SID) { a.sid = sid }
func (a *attrs) MarkDefault()   { a.def = true }
func (a *attrs) ClearDefault()  { a.def = false }

func (a *attrs) isProfile() {}

// VideoProfile is one framed mode of a video stream: resolution, frame rate
// and pixel format, optionally with the intrinsics of that resolution.
type VideoProfile struct {
	attrs
	width  int
	height int
	intr   *VideoIntrinsics
}

// NewVideoProfile builds a video profile without intrinsics.
func NewVideoProfile(kind Kind, sid SID, fps int, format Format, width, height int) *VideoProfile {
	return &VideoProfile{
		attrs:  attrs{kind: kind, sid: sid, fps: fps, format: format},
		width:  width,
		height: height,
	}
}

// Width returns the horizontal resolution in pixels.
func (p *VideoProfile) Width() int { return p.width }

// Height returns the vertical resolution in pixels.
func (p *VideoProfile) Height() int { return p.height }

// HasIntrinsics reports whether the remote supplied intrinsics for this
// profile's resolution.
func (p *VideoProfile) HasIntrinsics() bool { return p.intr != nil }

// Intrinsics returns the projection parameters for this profile's
// resolution. Profiles whose resolution had no published intrinsics fail
// with ErrMissingIntrinsics.
func (p *VideoProfile) Intrinsics() (VideoIntrinsics, error) {
	if p.intr == nil {
		return VideoIntrinsics{}, fmt.Errorf("%w: %s %dx%d",
			errors.ErrMissingIntrinsics, p.kind, p.width, p.height)
	}
	return *p.intr, nil
}

// SetIntrinsics attaches projection parameters to the profile.
func (p *VideoProfile) SetIntrinsics(intr VideoIntrinsics) {
	c := intr
	p.intr = &c
}

// Clone returns an independent copy of the profile.
func (p *VideoProfile) Clone() *VideoProfile {
	c := *p
	if p.intr != nil {
		intr := *p.intr
		c.intr = &intr
	}
	return &c
}

// MarshalJSON encodes the profile with its shape-specific attributes.
func (p *VideoProfile) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind       Kind             `json:"kind"`
		SID        SID              `json:"sid"`
		FrameRate  int              `json:"frame-rate"`
		Format     Format           `json:"format"`
		Default    bool             `json:"default,omitempty"`
		Width      int              `json:"width"`
		Height     int              `json:"height"`
		Intrinsics *VideoIntrinsics `json:"intrinsics,omitempty"`
	}{p.kind, p.sid, p.fps, p.format, p.def, p.width, p.height, p.intr}
	return json.Marshal(out)
}

// MotionProfile is one mode of a motion stream. Motion profiles have no
// resolution and always use the combined-motion format.
type MotionProfile struct {
	attrs
	intr *MotionIntrinsics
}

// NewMotionProfile builds a motion profile.
func NewMotionProfile(kind Kind, sid SID, fps int) *MotionProfile {
	return &MotionProfile{
		attrs: attrs{kind: kind, sid: sid, fps: fps, format: FormatCombinedMotion},
	}
}

// HasIntrinsics reports whether motion calibration was supplied.
func (p *MotionProfile) HasIntrinsics() bool { return p.intr != nil }

// Intrinsics returns the motion calibration record.
func (p *MotionProfile) Intrinsics() (MotionIntrinsics, error) {
	if p.intr == nil {
		return MotionIntrinsics{}, fmt.Errorf("%w: %s", errors.ErrMissingIntrinsics, p.kind)
	}
	return *p.intr, nil
}

// SetIntrinsics attaches motion calibration to the profile.
func (p *MotionProfile) SetIntrinsics(intr MotionIntrinsics) {
	c := intr
	p.intr = &c
}

// Clone returns an independent copy of the profile.
func (p *MotionProfile) Clone() *MotionProfile {
	c := *p
	if p.intr != nil {
		intr := *p.intr
		c.intr = &intr
	}
	return &c
}

// MarshalJSON encodes the profile with its shape-specific attributes.
func (p *MotionProfile) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind       Kind              `json:"kind"`
		SID        SID               `json:"sid"`
		FrameRate  int               `json:"frame-rate"`
		Format     Format            `json:"format"`
		Default    bool              `json:"default,omitempty"`
		Intrinsics *MotionIntrinsics `json:"intrinsics,omitempty"`
	}{p.kind, p.sid, p.fps, p.format, p.def, p.intr}
	return json.Marshal(out)
}

// CloneProfile copies a profile through the interface. The implementation
// set is closed, so the switch is exhaustive.
func CloneProfile(p Profile) Profile {
	switch v := p.(type) {
	case *VideoProfile:
		return v.Clone()
	case *MotionProfile:
		return v.Clone()
	}
	return p
}

// SameMode reports whether two profiles describe the same streaming mode:
// kind, frame rate and format agree, and for video profiles the resolution
// does too. Identity and default tags are not compared.
func SameMode(a, b Profile) bool {
	if a.Kind() != b.Kind() || a.FrameRate() != b.FrameRate() || a.Format() != b.Format() {
		return false
	}
	av, aVideo := a.(*VideoProfile)
	bv, bVideo := b.(*VideoProfile)
	if aVideo != bVideo {
		return false
	}
	if aVideo {
		return av.width == bv.width && av.height == bv.height
	}
	return true
}
