package sensor

import (
	"sort"

	"github.com/timor11/librealsense/stream"
)

// Finalizer turns the raw profiles collected during the device build into
// the finalized set a sensor streams with. Implementations may drop, reorder
// or rebuild profiles; they are not required to preserve stream identity or
// intrinsics, because the device build re-binds both afterwards.
type Finalizer interface {
	Finalize(raw []stream.Profile) []stream.Profile
}

// PreservingFinalizer is the default Finalizer: it validates,
// de-duplicates and sorts, and the surviving profiles are clones that keep
// their identity, intrinsics and default tags.
type PreservingFinalizer struct{}

// Finalize drops implausible profiles (non-positive rate, empty video
// resolution), collapses duplicates of the same mode within a stream, and
// sorts the rest largest-resolution first. When a dropped duplicate carried
// the default tag, the surviving instance inherits it. Sibling streams that
// share a mode are never merged: each keeps its own profile.
func (PreservingFinalizer) Finalize(raw []stream.Profile) []stream.Profile {
	out := make([]stream.Profile, 0, len(raw))

	for _, p := range raw {
		if !plausible(p) {
			continue
		}
		if i := indexOfDuplicate(out, p); i >= 0 {
			if p.Default() {
				out[i].MarkDefault()
			}
			continue
		}
		out = append(out, stream.CloneProfile(p))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return profileLess(out[i], out[j])
	})
	return out
}

// plausible rejects profiles a device could not actually stream.
func plausible(p stream.Profile) bool {
	if p.FrameRate() <= 0 {
		return false
	}
	if v, ok := p.(*stream.VideoProfile); ok {
		return v.Width() > 0 && v.Height() > 0
	}
	return true
}

// indexOfDuplicate returns the position of a profile from the same stream
// with the same mode, or -1. Mode equality alone is not enough: two streams
// of one kind can legitimately offer identical modes.
func indexOfDuplicate(profiles []stream.Profile, p stream.Profile) int {
	for i, q := range profiles {
		if q.SID() == p.SID() && stream.SameMode(p, q) {
			return i
		}
	}
	return -1
}

// profileLess orders finalized profiles: by kind, then resolution
// (largest first), then rate (fastest first), then format name.
func profileLess(a, b stream.Profile) bool {
	if a.Kind() != b.Kind() {
		return a.Kind() < b.Kind()
	}
	av, aVideo := a.(*stream.VideoProfile)
	bv, bVideo := b.(*stream.VideoProfile)
	if aVideo && bVideo {
		if av.Width() != bv.Width() {
			return av.Width() > bv.Width()
		}
		if av.Height() != bv.Height() {
			return av.Height() > bv.Height()
		}
	}
	if a.FrameRate() != b.FrameRate() {
		return a.FrameRate() > b.FrameRate()
	}
	return a.Format() < b.Format()
}
