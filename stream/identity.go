package stream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/timor11/librealsense/errors"
)

// SID is the identity of a stream within a device: a process-unique
// identifier paired with the per-kind index parsed from the stream name.
// Identifiers are allocated once per stream and never reused while the
// owning device is alive.
type SID struct {
	ID    int `json:"id"`
	Index int `json:"index"`
}

// String renders the identity as "id.index".
func (s SID) String() string {
	return strconv.Itoa(s.ID) + "." + strconv.Itoa(s.Index)
}

// TypeIndex is the per-device lookup key for a stream: its kind plus the
// per-kind index. Two streams of one device must never share a TypeIndex.
type TypeIndex struct {
	Kind  Kind `json:"kind"`
	Index int  `json:"index"`
}

// String renders the key as "kind_index".
func (ti TypeIndex) String() string {
	return ti.Kind.String() + "_" + strconv.Itoa(ti.Index)
}

// ParseIndex extracts the per-kind index from a stream name: the numeric
// suffix after the last underscore, defaulting to 0 when the name has no
// underscore. A suffix that is present but not an integer fails with
// ErrMalformedStreamName.
//
// "Depth" yields 0, "Infrared_2" yields 2, "IMU_x" is malformed.
func ParseIndex(name string) (int, error) {
	delim := strings.LastIndexByte(name, '_')
	if delim < 0 {
		return 0, nil
	}
	index, err := strconv.Atoi(name[delim+1:])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errors.ErrMalformedStreamName, name)
	}
	return index, nil
}

// Stream is the internal identity record for one remote stream.
type Stream struct {
	Name   string `json:"name"`
	Sensor string `json:"sensor"`
	Kind   Kind   `json:"kind"`
	SID    SID    `json:"sid"`
}

// TypeIndex returns the per-device lookup key for the stream.
func (s *Stream) TypeIndex() TypeIndex {
	return TypeIndex{Kind: s.Kind, Index: s.SID.Index}
}
