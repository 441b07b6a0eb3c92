// Package spatialmath defines spatial mathematical operations.
// Positions are expressed in meters and orientations through the Orientation interface, which
// can be converted between rotation matrix, quaternion, axis-angle and euler-angle form.
package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Orientation is an interface used to express the different parameterizations of the orientation
// of a rigid object or a frame of reference in 3D Euclidean space.
type Orientation interface {
	AxisAngles() *R4AA
	Quaternion() quat.Number
	EulerAngles() *EulerAngles
	RotationMatrix() *RotationMatrix
}

// OrientationAlmostEqual will return a bool describing whether 2 poses have approximately the same orientation.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return OrientationAlmostEqualEps(o1, o2, 1e-5)
}

// OrientationAlmostEqualEps will return a bool describing whether 2 poses have approximately the same orientation, where
// the angle of the rotation between them is no larger than epsilon radians.
func OrientationAlmostEqualEps(o1, o2 Orientation, epsilon float64) bool {
	return QuatToR4AA(OrientationBetween(o1, o2).Quaternion()).Theta <= epsilon
}

// OrientationBetween returns the orientation representing the difference between the two given Orientations,
// expressed in the world frame, i.e. the rotation which carries o1 onto o2.
func OrientationBetween(o1, o2 Orientation) Orientation {
	q := quaternion(quat.Mul(o2.Quaternion(), quat.Conj(o1.Quaternion())))
	return &q
}

// OrientationError returns the rotation vector (axis scaled by angle, radians) which carries current onto goal in
// the world frame. The angle is always in [0, pi].
func OrientationError(current, goal Orientation) (x, y, z float64) {
	v := QuatToR3AA(OrientationBetween(current, goal).Quaternion())
	return v.X, v.Y, v.Z
}

// angleFromQuatParts recovers the rotation angle of a unit quaternion from its scalar part and the norm of its vector
// part. atan2 keeps precision for very small rotations where acos would not.
func angleFromQuatParts(w, vnorm float64) float64 {
	return 2 * math.Atan2(vnorm, w)
}
