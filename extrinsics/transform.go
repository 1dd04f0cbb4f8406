// Package extrinsics provides the rigid-transform relationship store shared
// by all device proxies in one environment: a directed graph of stream and
// profile nodes whose edges carry rotation/translation transforms, with
// path-composing lookups.
package extrinsics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Transform is a rigid transform between two coordinate frames: a row-major
// 3x3 rotation followed by a translation in meters. Applying the transform
// maps a point in the source frame into the destination frame.
//
// Storage is float32 to match the calibration records devices publish; all
// arithmetic runs in float64.
type Transform struct {
	Rotation    [9]float32 `json:"rotation"`
	Translation [3]float32 `json:"translation"`
}

// Identity returns the transform that maps every point to itself.
func Identity() Transform {
	return Transform{Rotation: [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// dense expands the transform into gonum matrices for arithmetic.
func (t Transform) dense() (*mat.Dense, *mat.VecDense) {
	r := make([]float64, 9)
	for i, v := range t.Rotation {
		r[i] = float64(v)
	}
	v := make([]float64, 3)
	for i, x := range t.Translation {
		v[i] = float64(x)
	}
	return mat.NewDense(3, 3, r), mat.NewVecDense(3, v)
}

// fromDense packs gonum matrices back into a Transform.
func fromDense(r *mat.Dense, v *mat.VecDense) Transform {
	var t Transform
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			t.Rotation[row*3+col] = float32(r.At(row, col))
		}
		t.Translation[row] = float32(v.AtVec(row))
	}
	return t
}

// Then composes two transforms: the result applies t first, then next.
func (t Transform) Then(next Transform) Transform {
	r1, v1 := t.dense()
	r2, v2 := next.dense()

	var r mat.Dense
	r.Mul(r2, r1)

	var v mat.VecDense
	v.MulVec(r2, v1)
	v.AddVec(&v, v2)

	return fromDense(&r, &v)
}

// Inverse returns the transform mapping the destination frame back to the
// source frame. The rotation is assumed orthonormal, as calibration
// rotations are.
func (t Transform) Inverse() Transform {
	r, v := t.dense()

	var rt mat.Dense
	rt.CloneFrom(r.T())

	var nv mat.VecDense
	nv.MulVec(&rt, v)
	nv.ScaleVec(-1, &nv)

	return fromDense(&rt, &nv)
}

// ApplyPoint maps a point from the source frame into the destination frame.
func (t Transform) ApplyPoint(p [3]float64) [3]float64 {
	r, v := t.dense()

	var out mat.VecDense
	out.MulVec(r, mat.NewVecDense(3, p[:]))
	out.AddVec(&out, v)

	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

// AlmostEqual reports whether two transforms agree elementwise within tol.
func AlmostEqual(a, b Transform, tol float64) bool {
	for i := range a.Rotation {
		if math.Abs(float64(a.Rotation[i])-float64(b.Rotation[i])) > tol {
			return false
		}
	}
	for i := range a.Translation {
		if math.Abs(float64(a.Translation[i])-float64(b.Translation[i])) > tol {
			return false
		}
	}
	return true
}

// IsIdentity reports whether the transform is the identity within a small
// tolerance.
func (t Transform) IsIdentity() bool {
	return AlmostEqual(t, Identity(), 1e-6)
}
