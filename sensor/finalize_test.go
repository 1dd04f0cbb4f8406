package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timor11/librealsense/stream"
)

func TestPreservingFinalizerKeepsIdentityAndIntrinsics(t *testing.T) {
	p := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 5, Index: 0}, 30, stream.FormatZ16, 640, 480)
	p.SetIntrinsics(stream.VideoIntrinsics{Width: 640, Height: 480, PPX: 320, PPY: 240, FX: 380, FY: 380})
	p.MarkDefault()

	out := PreservingFinalizer{}.Finalize([]stream.Profile{p})
	require.Len(t, out, 1)

	got := out[0].(*stream.VideoProfile)
	assert.Equal(t, stream.SID{ID: 5, Index: 0}, got.SID())
	assert.True(t, got.HasIntrinsics())
	assert.True(t, got.Default())

	// The finalized profile is an independent copy.
	p.Rebind(stream.SID{ID: 99, Index: 9})
	assert.Equal(t, stream.SID{ID: 5, Index: 0}, got.SID())
}

func TestPreservingFinalizerDropsImplausible(t *testing.T) {
	good := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 1}, 30, stream.FormatZ16, 640, 480)
	zeroRate := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 2}, 0, stream.FormatZ16, 640, 480)
	zeroWidth := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 3}, 30, stream.FormatZ16, 0, 480)

	out := PreservingFinalizer{}.Finalize([]stream.Profile{good, zeroRate, zeroWidth})
	require.Len(t, out, 1)
	assert.Equal(t, stream.SID{ID: 1}, out[0].SID())
}

func TestPreservingFinalizerDedupesWithinStream(t *testing.T) {
	first := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 1}, 30, stream.FormatZ16, 640, 480)
	dup := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 1}, 30, stream.FormatZ16, 640, 480)
	dup.MarkDefault()

	out := PreservingFinalizer{}.Finalize([]stream.Profile{first, dup})
	require.Len(t, out, 1)

	// The survivor keeps its identity and inherits the default tag.
	assert.Equal(t, stream.SID{ID: 1}, out[0].SID())
	assert.True(t, out[0].Default())
}

func TestPreservingFinalizerKeepsSiblingStreams(t *testing.T) {
	// A stereo module offers the same mode on both infrared streams; the
	// streams stay distinct and the default tag does not migrate.
	left := stream.NewVideoProfile(stream.KindInfrared, stream.SID{ID: 2, Index: 1}, 30, stream.FormatY8, 848, 480)
	left.MarkDefault()
	right := stream.NewVideoProfile(stream.KindInfrared, stream.SID{ID: 3, Index: 2}, 30, stream.FormatY8, 848, 480)

	out := PreservingFinalizer{}.Finalize([]stream.Profile{left, right})
	require.Len(t, out, 2)

	assert.Equal(t, stream.SID{ID: 2, Index: 1}, out[0].SID())
	assert.True(t, out[0].Default())
	assert.Equal(t, stream.SID{ID: 3, Index: 2}, out[1].SID())
	assert.False(t, out[1].Default())
}

func TestPreservingFinalizerSorts(t *testing.T) {
	small := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 1}, 30, stream.FormatZ16, 640, 480)
	bigSlow := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 2}, 15, stream.FormatZ16, 1280, 720)
	midFast := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 3}, 60, stream.FormatZ16, 848, 480)
	midSlow := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 4}, 30, stream.FormatZ16, 848, 480)

	out := PreservingFinalizer{}.Finalize([]stream.Profile{small, midSlow, bigSlow, midFast})
	require.Len(t, out, 4)

	widths := make([]int, 0, 4)
	rates := make([]int, 0, 4)
	for _, p := range out {
		v := p.(*stream.VideoProfile)
		widths = append(widths, v.Width())
		rates = append(rates, v.FrameRate())
	}
	assert.Equal(t, []int{1280, 848, 848, 640}, widths)
	assert.Equal(t, []int{15, 60, 30, 30}, rates)
}

func TestPreservingFinalizerMixedKinds(t *testing.T) {
	motion := stream.NewMotionProfile(stream.KindMotion, stream.SID{ID: 1}, 200)
	video := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 2}, 30, stream.FormatZ16, 640, 480)

	out := PreservingFinalizer{}.Finalize([]stream.Profile{motion, video})
	require.Len(t, out, 2)

	// Depth sorts ahead of motion.
	assert.Equal(t, stream.KindDepth, out[0].Kind())
	assert.Equal(t, stream.KindMotion, out[1].Kind())
}
