package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

type quaternion quat.Number

// Quaternion returns orientation in quaternion representation.
func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// AxisAngles returns the orientation in axis angle representation.
func (q *quaternion) AxisAngles() *R4AA {
	return QuatToR4AA(q.Quaternion())
}

// EulerAngles returns orientation in Euler angle representation.
func (q *quaternion) EulerAngles() *EulerAngles {
	return QuatToEulerAngles(q.Quaternion())
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (q *quaternion) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(q.Quaternion())
}

// NewQuaternion wraps a quaternion so it can be used as an Orientation. The value is normalized.
func NewQuaternion(q quat.Number) Orientation {
	nq := quaternion(Normalize(q))
	return &nq
}

// Normalize a quaternion, returning its, normalized version. A zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// QuatToR4AA converts a quat to an R4 axis angle in the same way the C++ Eigen library does.
// https://eigen.tuxfamily.org/dox/AngleAxis_8h_source.html
// The returned angle is in [0, pi].
func QuatToR4AA(q quat.Number) *R4AA {
	q = Normalize(q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	vnorm := math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if vnorm < 1e-15 {
		return NewR4AA()
	}
	return &R4AA{
		Theta: angleFromQuatParts(q.Real, vnorm),
		RX:    q.Imag / vnorm,
		RY:    q.Jmag / vnorm,
		RZ:    q.Kmag / vnorm,
	}
}

// QuatToR3AA converts a quat to an R3 axis angle, i.e. a vector whose direction is the rotation axis and whose
// length is the rotation angle.
func QuatToR3AA(q quat.Number) r3.Vector {
	q = Normalize(q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	v := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	vnorm := v.Norm()
	if vnorm < 1e-15 {
		// small angle limit: theta ~= 2*|v|
		return v.Mul(2)
	}
	return v.Mul(angleFromQuatParts(q.Real, vnorm) / vnorm)
}

// QuatToRotationMatrix converts a quat to a rotation matrix.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return &RotationMatrix{mat: [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}}
}

// QuatToEulerAngles converts a quaternion to the roll, pitch, yaw euler angles (rotation order Z-Y'-X'').
func QuatToEulerAngles(q quat.Number) *EulerAngles {
	return QuatToRotationMatrix(q).EulerAngles()
}

