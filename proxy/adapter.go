package proxy

import (
	"github.com/timor11/librealsense/remote"
	"github.com/timor11/librealsense/stream"
)

// buildVideoProfile converts one advertised video mode into the internal
// profile shape. The intrinsics matching the mode's exact resolution are
// attached when the stream published them; a mode without a match simply
// carries none.
func buildVideoProfile(kind stream.Kind, sid stream.SID, desc remote.ProfileDescriptor,
	intr stream.IntrinsicsSet) (*stream.VideoProfile, error) {

	format, err := stream.ParseFormat(desc.Format)
	if err != nil {
		return nil, err
	}

	p := stream.NewVideoProfile(kind, sid, desc.Frequency, format, desc.Width, desc.Height)
	if vi, ok := intr.Find(desc.Width, desc.Height); ok {
		p.SetIntrinsics(vi)
	}
	return p, nil
}

// buildMotionProfile converts one advertised motion mode. Motion profiles
// always use the combined sample format; the stream's single calibration
// record is attached when present.
func buildMotionProfile(kind stream.Kind, sid stream.SID, desc remote.ProfileDescriptor,
	intr *stream.MotionIntrinsics) *stream.MotionProfile {

	p := stream.NewMotionProfile(kind, sid, desc.Frequency)
	if intr != nil {
		p.SetIntrinsics(*intr)
	}
	return p
}

// patchIntrinsics re-runs the calibration match for a finalized profile
// against the stream it came from. No-op when the stream has nothing for the
// profile's resolution.
func patchIntrinsics(p stream.Profile, rs remote.Stream) {
	switch v := p.(type) {
	case *stream.VideoProfile:
		if intr, ok := rs.VideoIntrinsics.Find(v.Width(), v.Height()); ok {
			v.SetIntrinsics(intr)
		}
	case *stream.MotionProfile:
		if rs.MotionIntrinsics != nil {
			v.SetIntrinsics(*rs.MotionIntrinsics)
		}
	}
}

// hasIntrinsics reports whether the profile already carries calibration.
func hasIntrinsics(p stream.Profile) bool {
	switch v := p.(type) {
	case *stream.VideoProfile:
		return v.HasIntrinsics()
	case *stream.MotionProfile:
		return v.HasIntrinsics()
	}
	return false
}
