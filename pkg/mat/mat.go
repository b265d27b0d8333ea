// Package mat wraps the 4x4 transform math used by the pivot engine.
//
// Matrices follow the editor host's row-vector convention: a point is
// transformed as p * M, composition reads left to right ("apply a, then b"),
// and the translation lives in elements 12, 13 and 14. The storage is
// [mgl64.Mat4], whose column-major layout is bit-for-bit the same 16 floats,
// so serialized matrices can be handed to the host unchanged.
//
// # Composition
//
// Every formula in this module is written the way the host writes it:
//
//	node = offset * reference
//
// which translates to
//
//	node := mat.Mul(offset, reference)
//
// Do not call [mgl64.Mat4.Mul4] directly on host matrices; it multiplies in
// the opposite order.
package mat

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultEpsilon is the element-wise tolerance used when deciding whether two
// transforms are the same pose.
const DefaultEpsilon = 1e-5

// Size is the number of elements in a serialized matrix.
const Size = 16

// Matrix is a 4x4 transform in host element order.
type Matrix = mgl64.Mat4

// Vec3 is a position or direction in world or local space.
type Vec3 = mgl64.Vec3

// Identity returns the identity transform.
func Identity() Matrix { return mgl64.Ident4() }

// Translate returns a pure translation transform.
func Translate(x, y, z float64) Matrix { return mgl64.Translate3D(x, y, z) }

// Scale returns a pure scale transform.
func Scale(x, y, z float64) Matrix { return mgl64.Scale3D(x, y, z) }

// RotateEuler returns the rotation for XYZ euler angles given in degrees,
// applied in X, Y, Z order.
func RotateEuler(x, y, z float64) Matrix {
	rx := mgl64.HomogRotate3DX(mgl64.DegToRad(x))
	ry := mgl64.HomogRotate3DY(mgl64.DegToRad(y))
	rz := mgl64.HomogRotate3DZ(mgl64.DegToRad(z))
	return Mul(Mul(rx, ry), rz)
}

// Compose builds scale, then rotation, then translation into one transform.
func Compose(translate, rotateDeg, scale Vec3) Matrix {
	m := Mul(Scale(scale[0], scale[1], scale[2]), RotateEuler(rotateDeg[0], rotateDeg[1], rotateDeg[2]))
	return WithPosition(m, translate)
}

// Mul returns a * b in host order: the result applies a first, then b.
func Mul(a, b Matrix) Matrix { return b.Mul4(a) }

// Inverse returns the inverse of m. A singular matrix yields the zero matrix,
// matching [mgl64.Mat4.Inv].
func Inverse(m Matrix) Matrix { return m.Inv() }

// Position returns the translation component of m.
func Position(m Matrix) Vec3 { return Vec3{m[12], m[13], m[14]} }

// WithPosition returns a copy of m whose translation is replaced by p.
func WithPosition(m Matrix, p Vec3) Matrix {
	m[12], m[13], m[14] = p[0], p[1], p[2]
	return m
}

// TransformPoint maps p through m.
func TransformPoint(p Vec3, m Matrix) Vec3 {
	return mgl64.TransformCoordinate(p, m)
}

// Equivalent reports whether every element of a and b differs by at most eps.
func Equivalent(a, b Matrix, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

// Centroid returns the unweighted average of points. An empty input yields
// the origin.
func Centroid(points []Vec3) Vec3 {
	var total Vec3
	for _, p := range points {
		total = total.Add(p)
	}
	if len(points) == 0 {
		return total
	}
	return total.Mul(1 / float64(len(points)))
}

// ToSlice returns the 16 elements of m in host order.
func ToSlice(m Matrix) []float64 {
	out := make([]float64, Size)
	copy(out, m[:])
	return out
}

// FromSlice builds a matrix from 16 elements in host order.
func FromSlice(values []float64) (Matrix, error) {
	var m Matrix
	if len(values) != Size {
		return m, fmt.Errorf("matrix needs %d elements, got %d", Size, len(values))
	}
	copy(m[:], values)
	return m, nil
}
