package curve

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the parameter step used to approximate the tangent.
const Epsilon = 0.001

// degenerateLen is the length below which a difference or cross product is
// treated as zero.
const degenerateLen = 1e-9

// Frame is the local tangent/normal/bitangent basis at a curve parameter.
type Frame struct {
	Tangent   mgl64.Vec3
	Normal    mgl64.Vec3
	Bitangent mgl64.Vec3
}

// DefaultFrame is the fallback used when the curve degenerates: +X tangent,
// +Y normal (the up-vector) and +Z bitangent.
var DefaultFrame = Frame{
	Tangent:   mgl64.Vec3{1, 0, 0},
	Normal:    mgl64.Vec3{0, 1, 0},
	Bitangent: mgl64.Vec3{0, 0, 1},
}

// Sample evaluates the cubic Bézier curve at t using the Bernstein form.
// t is not clamped.
func Sample(p0, p1, p2, p3 mgl64.Vec3, t float64) mgl64.Vec3 {
	u := 1.0 - t
	b0 := u * u * u
	b1 := 3.0 * u * u * t
	b2 := 3.0 * u * t * t
	b3 := t * t * t
	return p0.Mul(b0).Add(p1.Mul(b1)).Add(p2.Mul(b2)).Add(p3.Mul(b3))
}

// CalculateFrame derives the frame at t from a forward difference.
// The tangent is computed first, the bitangent is the tangent crossed with
// the sum of the two samples, and the normal comes last. On a degenerate
// curve it falls back to DefaultFrame.
func CalculateFrame(p0, p1, p2, p3 mgl64.Vec3, t float64) Frame {
	f, _ := frameAt(p0, p1, p2, p3, t)
	return f
}

// CalculateFrameFrom is CalculateFrame but falls back to prev instead of
// DefaultFrame when the curve degenerates at t.
func CalculateFrameFrom(prev Frame, p0, p1, p2, p3 mgl64.Vec3, t float64) Frame {
	f, ok := frameAt(p0, p1, p2, p3, t)
	if !ok && prev.valid() {
		return prev
	}
	return f
}

func frameAt(p0, p1, p2, p3 mgl64.Vec3, t float64) (Frame, bool) {
	current := Sample(p0, p1, p2, p3, t)
	next := Sample(p0, p1, p2, p3, t+Epsilon)

	d := next.Sub(current)
	if d.Len() < degenerateLen {
		return DefaultFrame, false
	}
	tangent := d.Normalize()

	b := tangent.Cross(next.Add(current))
	if b.Len() < degenerateLen {
		// The sum is parallel to the tangent (the curve passes through the
		// origin heading radially). Complete the basis around the up-vector.
		return completeFrame(tangent), false
	}
	bitangent := b.Normalize()
	normal := bitangent.Cross(tangent).Normalize()

	return Frame{Tangent: tangent, Normal: normal, Bitangent: bitangent}, true
}

// completeFrame builds an orthonormal frame around a valid tangent using the
// up-vector, or +Z when the tangent is vertical.
func completeFrame(tangent mgl64.Vec3) Frame {
	up := mgl64.Vec3{0, 1, 0}
	b := tangent.Cross(up)
	if b.Len() < degenerateLen {
		b = tangent.Cross(mgl64.Vec3{0, 0, 1})
	}
	bitangent := b.Normalize()
	normal := bitangent.Cross(tangent).Normalize()
	return Frame{Tangent: tangent, Normal: normal, Bitangent: bitangent}
}

func (f Frame) valid() bool {
	return f.Tangent.Len() > 0.5 && f.Normal.Len() > 0.5 && f.Bitangent.Len() > 0.5
}

// Basis returns the rotation matrix with tangent, normal and bitangent as
// its columns.
func (f Frame) Basis() mgl64.Mat3 {
	return mgl64.Mat3FromCols(f.Tangent, f.Normal, f.Bitangent)
}

// Quat returns the frame orientation as a unit quaternion.
func (f Frame) Quat() mgl64.Quat {
	return mgl64.Mat4ToQuat(f.Basis().Mat4()).Normalize()
}

// Remap rescales v from [a,b] to [c,d]. The result is not clamped.
func Remap(v, a, b, c, d float64) float64 {
	return (v-a)/(b-a)*(d-c) + c
}
