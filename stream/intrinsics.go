package stream

import (
	"encoding/json"
	"fmt"
)

// Distortion is the lens distortion model attached to video intrinsics.
type Distortion int

const (
	// DistortionNone means the image is already rectilinear.
	DistortionNone Distortion = iota
	// DistortionModifiedBrownConrady applies distortion to undistorted points.
	DistortionModifiedBrownConrady
	// DistortionInverseBrownConrady removes distortion from distorted points.
	DistortionInverseBrownConrady
	// DistortionFTheta is an f-theta fisheye model.
	DistortionFTheta
	// DistortionBrownConrady is the unmodified Brown-Conrady model.
	DistortionBrownConrady
	// DistortionKannalaBrandt4 is a four-parameter fisheye model.
	DistortionKannalaBrandt4
)

var distortionNames = [...]string{
	DistortionNone:                 "none",
	DistortionModifiedBrownConrady: "modified-brown-conrady",
	DistortionInverseBrownConrady:  "inverse-brown-conrady",
	DistortionFTheta:               "ftheta",
	DistortionBrownConrady:         "brown-conrady",
	DistortionKannalaBrandt4:       "kannala-brandt4",
}

// String returns the canonical name of the model.
func (d Distortion) String() string {
	if d < 0 || int(d) >= len(distortionNames) {
		return fmt.Sprintf("distortion(%d)", int(d))
	}
	return distortionNames[d]
}

// MarshalJSON encodes the model by name.
func (d Distortion) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts either the model name or its numeric value; remote
// descriptions use the number, config files the name.
func (d *Distortion) UnmarshalJSON(data []byte) error {
	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		if num < 0 || num >= len(distortionNames) {
			return fmt.Errorf("distortion model out of range: %d", num)
		}
		*d = Distortion(num)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range distortionNames {
		if n == name {
			*d = Distortion(i)
			return nil
		}
	}
	return fmt.Errorf("unknown distortion model: %q", name)
}

// VideoIntrinsics holds the pinhole projection parameters of one resolution:
// principal point, focal lengths and the distortion model with its
// coefficients.
type VideoIntrinsics struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	PPX    float64    `json:"ppx"`
	PPY    float64    `json:"ppy"`
	FX     float64    `json:"fx"`
	FY     float64    `json:"fy"`
	Model  Distortion `json:"model"`
	Coeffs [5]float64 `json:"coeffs"`
}

// IntrinsicsSet is the per-resolution intrinsics published by one video
// stream. A stream may publish none.
type IntrinsicsSet []VideoIntrinsics

// Find returns the intrinsics whose resolution matches exactly, if any.
func (set IntrinsicsSet) Find(width, height int) (VideoIntrinsics, bool) {
	for _, intr := range set {
		if intr.Width == width && intr.Height == height {
			return intr, true
		}
	}
	return VideoIntrinsics{}, false
}

// MotionIntrinsics holds the calibration of a motion stream: a 3x4
// scale/bias matrix plus per-axis noise and bias variances. Motion streams
// carry a single record, not one per resolution.
type MotionIntrinsics struct {
	Data           [3][4]float64 `json:"data"`
	NoiseVariances [3]float64    `json:"noise-variances"`
	BiasVariances  [3]float64    `json:"bias-variances"`
}
