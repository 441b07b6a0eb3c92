package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
// The Point is in meters.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

// pose stores the rigid transform as a rotation matrix and translation, i.e. the upper three rows of a 4x4
// homogeneous matrix.
type pose struct {
	point    r3.Vector
	rotation *RotationMatrix
}

// NewZeroPose returns a pose at (0,0,0) with same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return &pose{rotation: NewIdentityRotationMatrix()}
}

// NewPose takes in a position and orientation and returns a Pose. A nil orientation means no rotation.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &pose{point: p, rotation: o.RotationMatrix()}
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a pose with no rotation.
func NewPoseFromPoint(p r3.Vector) Pose {
	return &pose{point: p, rotation: NewIdentityRotationMatrix()}
}

// maxRoundingError is how far a hand-written rotation block may stray from orthonormal.
const maxRoundingError = 1e-2

// NewPoseFromMatrix builds a pose from a 4x4 homogeneous transform. The rotation block is re-orthonormalized through
// its quaternion so that hand-written targets rounded to a few digits are accepted; the bottom row must be (0,0,0,1).
func NewPoseFromMatrix(m mat.Matrix) (Pose, error) {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return nil, errors.Errorf("homogeneous transform must be 4x4, got %dx%d", r, c)
	}
	const eps = 1e-6
	for j, want := range []float64{0, 0, 0, 1} {
		if math.Abs(m.At(3, j)-want) > eps {
			return nil, errors.Errorf("homogeneous transform has invalid bottom row element %d: %v", j, m.At(3, j))
		}
	}
	rot := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot = append(rot, m.At(i, j))
		}
	}
	rm, err := NewRotationMatrix(rot)
	if err != nil {
		return nil, err
	}
	if !rm.IsOrthonormal(maxRoundingError) {
		return nil, errors.New("homogeneous transform rotation block is not a rotation")
	}
	// the quaternion round trip projects the rounded matrix back onto SO(3)
	return NewPose(r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}, NewQuaternion(rm.Quaternion())), nil
}

func (p *pose) Point() r3.Vector {
	return p.point
}

func (p *pose) Orientation() Orientation {
	return p.rotation
}

func (p *pose) String() string {
	ea := p.rotation.EulerAngles()
	return fmt.Sprintf("{X:%.6f Y:%.6f Z:%.6f Roll:%.6f Pitch:%.6f Yaw:%.6f}",
		p.point.X, p.point.Y, p.point.Z, ea.Roll, ea.Pitch, ea.Yaw)
}

// PoseErrorVector returns the 6-vector error (dx, dy, dz, rx, ry, rz) that carries current onto goal, with the
// rotational part as a world-frame rotation vector in radians.
func PoseErrorVector(current, goal Pose) []float64 {
	d := goal.Point().Sub(current.Point())
	rx, ry, rz := OrientationError(current.Orientation(), goal.Orientation())
	return []float64{d.X, d.Y, d.Z, rx, ry, rz}
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-8, 1e-5)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same, within pointEps meters
// and orientEps radians.
func PoseAlmostEqualEps(a, b Pose, pointEps, orientEps float64) bool {
	return PointAlmostEqual(a.Point(), b.Point(), pointEps) &&
		OrientationAlmostEqualEps(a.Orientation(), b.Orientation(), orientEps)
}

// PointAlmostEqual compares two points and returns if they are within epsilon of each other.
func PointAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return a.Sub(b).Norm() <= epsilon
}

// PoseToMatrix returns the 4x4 homogeneous transform of the pose.
func PoseToMatrix(p Pose) *mat.Dense {
	rm := p.Orientation().RotationMatrix()
	pt := p.Point()
	return mat.NewDense(4, 4, []float64{
		rm.At(0, 0), rm.At(0, 1), rm.At(0, 2), pt.X,
		rm.At(1, 0), rm.At(1, 1), rm.At(1, 2), pt.Y,
		rm.At(2, 0), rm.At(2, 1), rm.At(2, 2), pt.Z,
		0, 0, 0, 1,
	})
}
