package stream

import (
	"errors"
	"testing"

	pkgerrors "github.com/timor11/librealsense/errors"
)

func TestParseIndex(t *testing.T) {
	tests := []struct {
		name     string
		stream   string
		expected int
		wantErr  bool
	}{
		{"no suffix", "Depth", 0, false},
		{"color no suffix", "Color", 0, false},
		{"explicit suffix", "Depth_1", 1, false},
		{"second infrared", "Infrared_2", 2, false},
		{"double digit", "Infrared_12", 12, false},
		{"zero suffix", "Confidence_0", 0, false},
		{"only last underscore counts", "Left_IR_3", 3, false},
		{"non-numeric suffix", "IMU_x", 0, true},
		{"trailing underscore", "Depth_", 0, true},
		{"mixed suffix", "Depth_1x", 0, true},
		{"empty name", "", 0, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			index, err := ParseIndex(test.stream)
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got index %d", test.stream, index)
				}
				if !errors.Is(err, pkgerrors.ErrMalformedStreamName) {
					t.Errorf("expected ErrMalformedStreamName, got %v", err)
				}
				if !pkgerrors.IsFatal(err) {
					t.Errorf("malformed name should classify fatal, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", test.stream, err)
			}
			if index != test.expected {
				t.Errorf("expected index %d for %q, got %d", test.expected, test.stream, index)
			}
		})
	}
}

func TestSIDString(t *testing.T) {
	sid := SID{ID: 42, Index: 1}
	if sid.String() != "42.1" {
		t.Errorf("expected 42.1, got %s", sid.String())
	}
}

func TestTypeIndexString(t *testing.T) {
	tests := []struct {
		key      TypeIndex
		expected string
	}{
		{TypeIndex{KindDepth, 0}, "depth_0"},
		{TypeIndex{KindInfrared, 2}, "ir_2"},
		{TypeIndex{KindMotion, 0}, "motion_0"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if got := test.key.String(); got != test.expected {
				t.Errorf("expected %s, got %s", test.expected, got)
			}
		})
	}
}

func TestStreamTypeIndex(t *testing.T) {
	s := &Stream{
		Name:   "Infrared_1",
		Sensor: "Stereo Module",
		Kind:   KindInfrared,
		SID:    SID{ID: 7, Index: 1},
	}

	key := s.TypeIndex()
	if key.Kind != KindInfrared || key.Index != 1 {
		t.Errorf("expected ir_1, got %s", key)
	}
}
