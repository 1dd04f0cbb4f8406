package sensor

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/timor11/librealsense/errors"
	"github.com/timor11/librealsense/remote"
	"github.com/timor11/librealsense/stream"
)

func TestAttachStreamCollectsControls(t *testing.T) {
	s := New("Stereo Module", 0)

	depth := remote.Stream{
		Name:   "Depth",
		Sensor: "Stereo Module",
		Type:   "depth",
		Options: []remote.Option{
			{Name: "Exposure", Value: 8500},
			{Name: "Gain", Value: 16},
		},
		RecommendedFilters: []string{"Decimation Filter", "Spatial Filter"},
	}
	ir := remote.Stream{
		Name:   "Infrared_1",
		Sensor: "Stereo Module",
		Type:   "ir",
		Options: []remote.Option{
			{Name: "Exposure", Value: 8500}, // shared with Depth
			{Name: "Laser Power", Value: 150},
		},
		RecommendedFilters: []string{"Spatial Filter", "Temporal Filter"},
	}

	s.AttachStream(stream.SID{ID: 0, Index: 0}, depth)
	s.AttachStream(stream.SID{ID: 1, Index: 1}, ir)

	streams := s.Streams()
	require.Len(t, streams, 2)
	assert.Equal(t, "Depth", streams[stream.SID{ID: 0, Index: 0}].Name)
	assert.Equal(t, "Infrared_1", streams[stream.SID{ID: 1, Index: 1}].Name)

	// Controls merge in first-seen order without duplicates.
	opts := s.Options()
	names := make([]string, 0, len(opts))
	for _, o := range opts {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"Exposure", "Gain", "Laser Power"}, names)

	assert.Equal(t,
		[]string{"Decimation Filter", "Spatial Filter", "Temporal Filter"},
		s.RecommendedFilters())
}

func TestFinalizeInitOnce(t *testing.T) {
	s := New("Stereo Module", 0)
	s.AddProfile(stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 0}, 30, stream.FormatZ16, 640, 480))

	require.False(t, s.Finalized())
	require.NoError(t, s.FinalizeInit())
	require.True(t, s.Finalized())
	require.Len(t, s.Profiles(), 1)

	err := s.FinalizeInit()
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrAlreadyStarted)
	assert.True(t, pkgerrors.IsInvalid(err))
}

func TestProfilesEmptyBeforeFinalize(t *testing.T) {
	s := New("RGB Camera", 1)
	s.AddProfile(stream.NewVideoProfile(stream.KindColor, stream.SID{ID: 2}, 30, stream.FormatYUYV, 640, 480))

	assert.Empty(t, s.Profiles())
	assert.Len(t, s.RawProfiles(), 1)
}

// lossyFinalizer rebuilds profiles from scratch, discarding identity and
// intrinsics. The device build must survive such an implementation.
type lossyFinalizer struct{}

func (lossyFinalizer) Finalize(raw []stream.Profile) []stream.Profile {
	out := make([]stream.Profile, 0, len(raw))
	for _, p := range raw {
		switch v := p.(type) {
		case *stream.VideoProfile:
			out = append(out, stream.NewVideoProfile(
				v.Kind(), stream.SID{Index: v.SID().Index}, v.FrameRate(), v.Format(), v.Width(), v.Height()))
		case *stream.MotionProfile:
			out = append(out, stream.NewMotionProfile(
				v.Kind(), stream.SID{Index: v.SID().Index}, v.FrameRate()))
		}
	}
	return out
}

func TestCustomFinalizer(t *testing.T) {
	s := New("Stereo Module", 0, WithFinalizer(lossyFinalizer{}))

	p := stream.NewVideoProfile(stream.KindDepth, stream.SID{ID: 7, Index: 0}, 30, stream.FormatZ16, 640, 480)
	p.SetIntrinsics(stream.VideoIntrinsics{Width: 640, Height: 480, FX: 380, FY: 380})
	s.AddProfile(p)

	require.NoError(t, s.FinalizeInit())

	out := s.Profiles()
	require.Len(t, out, 1)
	got := out[0].(*stream.VideoProfile)
	assert.Equal(t, 0, got.SID().ID, "lossy finalizer discards the allocated ID")
	assert.False(t, got.HasIntrinsics(), "lossy finalizer discards intrinsics")
}

func TestHandleMetadataBounded(t *testing.T) {
	s := New("Stereo Module", 0, WithMetadataDepth(3))

	for i := 0; i < 5; i++ {
		s.HandleMetadata("Depth", remote.Metadata{
			"stream-name":  "Depth",
			"frame-number": float64(i),
		})
	}

	pending := s.PendingMetadata("Depth")
	require.Len(t, pending, 3)
	assert.Equal(t, float64(2), pending[0]["frame-number"])
	assert.Equal(t, float64(4), pending[2]["frame-number"])
	assert.Equal(t, uint64(2), s.DroppedMetadata())
}

func TestTakeMetadata(t *testing.T) {
	s := New("Stereo Module", 0)

	_, ok := s.TakeMetadata("Depth")
	assert.False(t, ok)

	s.HandleMetadata("Depth", remote.Metadata{"frame-number": float64(1)})
	s.HandleMetadata("Depth", remote.Metadata{"frame-number": float64(2)})
	s.HandleMetadata("Infrared_1", remote.Metadata{"frame-number": float64(9)})

	rec, ok := s.TakeMetadata("Depth")
	require.True(t, ok)
	assert.Equal(t, float64(1), rec["frame-number"])

	rec, ok = s.TakeMetadata("Depth")
	require.True(t, ok)
	assert.Equal(t, float64(2), rec["frame-number"])

	_, ok = s.TakeMetadata("Depth")
	assert.False(t, ok)

	// Queues are independent per stream.
	rec, ok = s.TakeMetadata("Infrared_1")
	require.True(t, ok)
	assert.Equal(t, float64(9), rec["frame-number"])
}

func TestHandleMetadataConcurrent(t *testing.T) {
	s := New("Stereo Module", 0, WithMetadataDepth(16))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			name := fmt.Sprintf("Stream_%d", g)
			for i := 0; i < 100; i++ {
				s.HandleMetadata(name, remote.Metadata{"frame-number": float64(i)})
			}
		}(g)
	}

	// Concurrent snapshots must never observe a broken queue.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			for g := 0; g < 4; g++ {
				q := s.PendingMetadata(fmt.Sprintf("Stream_%d", g))
				assert.LessOrEqual(t, len(q), 16)
			}
		}
	}()

	wg.Wait()

	for g := 0; g < 4; g++ {
		q := s.PendingMetadata(fmt.Sprintf("Stream_%d", g))
		assert.Len(t, q, 16)
		// Oldest-first ordering survives eviction.
		assert.Equal(t, float64(84), q[0]["frame-number"])
		assert.Equal(t, float64(99), q[15]["frame-number"])
	}
}
