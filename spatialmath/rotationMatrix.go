package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/armlab/dofbot/utils"
)

// RotationMatrix is a 3x3 matrix in row major order.
// m[3*r + c] is the element in the r'th row and c'th column.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates the rotation matrix from a slice of 9 row-major values. The values are taken as-is; no
// orthonormalization is performed.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.New("input slice for RotationMatrix must have length 9")
	}
	rm := &RotationMatrix{}
	copy(rm.mat[:], m)
	return rm, nil
}

// NewIdentityRotationMatrix returns the matrix of the identity rotation.
func NewIdentityRotationMatrix() *RotationMatrix {
	return &RotationMatrix{mat: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// At returns the value in the r'th row and c'th column.
func (rm *RotationMatrix) At(r, c int) float64 {
	return rm.mat[3*r+c]
}

// Row returns the r'th row as a vector.
func (rm *RotationMatrix) Row(r int) r3.Vector {
	return r3.Vector{X: rm.mat[3*r], Y: rm.mat[3*r+1], Z: rm.mat[3*r+2]}
}

// Mul returns the matrix product rm*other.
func (rm *RotationMatrix) Mul(other *RotationMatrix) *RotationMatrix {
	out := &RotationMatrix{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.mat[3*r+c] = rm.mat[3*r]*other.mat[c] + rm.mat[3*r+1]*other.mat[3+c] + rm.mat[3*r+2]*other.mat[6+c]
		}
	}
	return out
}

// Transpose returns the transpose, which for a rotation is also its inverse.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	out := &RotationMatrix{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.mat[3*c+r] = rm.mat[3*r+c]
		}
	}
	return out
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (rm *RotationMatrix) RotationMatrix() *RotationMatrix {
	return rm
}

// AxisAngles returns the orientation in axis angle representation.
func (rm *RotationMatrix) AxisAngles() *R4AA {
	return QuatToR4AA(rm.Quaternion())
}

// Quaternion returns orientation in quaternion representation, using Shepperd's method to pick the numerically
// stable branch.
func (rm *RotationMatrix) Quaternion() quat.Number {
	m := rm.mat
	var q quat.Number
	tr := m[0] + m[4] + m[8]
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{Real: 0.25 * s, Imag: (m[7] - m[5]) / s, Jmag: (m[2] - m[6]) / s, Kmag: (m[3] - m[1]) / s}
	case m[0] > m[4] && m[0] > m[8]:
		s := math.Sqrt(1+m[0]-m[4]-m[8]) * 2
		q = quat.Number{Real: (m[7] - m[5]) / s, Imag: 0.25 * s, Jmag: (m[1] + m[3]) / s, Kmag: (m[2] + m[6]) / s}
	case m[4] > m[8]:
		s := math.Sqrt(1+m[4]-m[0]-m[8]) * 2
		q = quat.Number{Real: (m[2] - m[6]) / s, Imag: (m[1] + m[3]) / s, Jmag: 0.25 * s, Kmag: (m[5] + m[7]) / s}
	default:
		s := math.Sqrt(1+m[8]-m[0]-m[4]) * 2
		q = quat.Number{Real: (m[3] - m[1]) / s, Imag: (m[2] + m[6]) / s, Jmag: (m[5] + m[7]) / s, Kmag: 0.25 * s}
	}
	return Normalize(q)
}

// EulerAngles returns orientation in Euler angle representation (roll about x, pitch about y, yaw about z, applied
// as R = Rz(yaw)*Ry(pitch)*Rx(roll)).
func (rm *RotationMatrix) EulerAngles() *EulerAngles {
	sinPitch := utils.Clamp(-rm.At(2, 0), -1, 1)
	pitch := math.Asin(sinPitch)
	if math.Abs(sinPitch) > 1-1e-12 {
		// gimbal lock, roll and yaw are coupled; put everything into yaw
		return &EulerAngles{Roll: 0, Pitch: pitch, Yaw: math.Atan2(-rm.At(0, 1), rm.At(1, 1))}
	}
	return &EulerAngles{
		Roll:  math.Atan2(rm.At(2, 1), rm.At(2, 2)),
		Pitch: pitch,
		Yaw:   math.Atan2(rm.At(1, 0), rm.At(0, 0)),
	}
}

// IsOrthonormal reports whether the matrix is a proper rotation within epsilon.
func (rm *RotationMatrix) IsOrthonormal(epsilon float64) bool {
	prod := rm.Mul(rm.Transpose())
	ident := NewIdentityRotationMatrix()
	for i := range prod.mat {
		if math.Abs(prod.mat[i]-ident.mat[i]) > epsilon {
			return false
		}
	}
	det := rm.Row(0).Dot(rm.Row(1).Cross(rm.Row(2)))
	return math.Abs(det-1) <= epsilon
}
