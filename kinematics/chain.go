// Package kinematics models the Dofbot as a serial chain of revolute joints described by modified
// Denavit-Hartenberg parameters. It provides forward kinematics, the geometric Jacobian and
// workspace sampling.
package kinematics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/spatialmath"
)

// NumJoints is the number of revolute joints of a Dofbot arm.
const NumJoints = 5

// ErrJointCount is returned when a chain is built from the wrong number of joints.
var ErrJointCount = errors.New("dofbot chain requires exactly 5 joints")

// Joint holds the modified DH parameters of a single revolute joint. Lengths are in meters and angles in radians.
type Joint struct {
	A      float64
	Alpha  float64
	D      float64
	Offset float64
	Limit  referenceframe.Limit
}

// Transform returns the homogeneous transform from the previous joint frame to this one,
// RotX(alpha)·TransX(a)·TransZ(d)·RotZ(q+offset).
func (j Joint) Transform(q float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DX(j.Alpha).
		Mul4(mgl64.Translate3D(j.A, 0, 0)).
		Mul4(mgl64.Translate3D(0, 0, j.D)).
		Mul4(mgl64.HomogRotate3DZ(q + j.Offset))
}

// Chain is an immutable 5-joint serial chain ordered from base to tool.
type Chain struct {
	name   string
	joints []Joint
}

// NewChain validates and copies the joints into a new chain.
func NewChain(name string, joints []Joint) (*Chain, error) {
	if len(joints) != NumJoints {
		return nil, errors.Wrapf(ErrJointCount, "got %d", len(joints))
	}
	limits := make([]referenceframe.Limit, 0, len(joints))
	for _, j := range joints {
		limits = append(limits, j.Limit)
	}
	if err := referenceframe.ValidateLimits(limits); err != nil {
		return nil, err
	}
	cp := make([]Joint, len(joints))
	copy(cp, joints)
	return &Chain{name: name, joints: cp}, nil
}

// Name returns the name of the chain.
func (c *Chain) Name() string {
	return c.name
}

// Joints returns a copy of the joint parameters.
func (c *Chain) Joints() []Joint {
	cp := make([]Joint, len(c.joints))
	copy(cp, c.joints)
	return cp
}

// DoF returns the joint limits of the chain.
func (c *Chain) DoF() []referenceframe.Limit {
	limits := make([]referenceframe.Limit, 0, len(c.joints))
	for _, j := range c.joints {
		limits = append(limits, j.Limit)
	}
	return limits
}

// ForwardKinematics returns the tool pose in the base frame for the given joint angles.
// It only fails when the number of inputs does not match the chain.
func (c *Chain) ForwardKinematics(inputs []referenceframe.Input) (spatialmath.Pose, error) {
	frames, err := c.cumulative(inputs)
	if err != nil {
		return nil, err
	}
	return matToPose(frames[len(frames)-1])
}

// Transform is ForwardKinematics, which makes Chain a referenceframe.Frame.
func (c *Chain) Transform(inputs []referenceframe.Input) (spatialmath.Pose, error) {
	return c.ForwardKinematics(inputs)
}

// JointPoses returns the base-frame pose of every joint frame, the last one being the tool.
func (c *Chain) JointPoses(inputs []referenceframe.Input) ([]spatialmath.Pose, error) {
	frames, err := c.cumulative(inputs)
	if err != nil {
		return nil, err
	}
	poses := make([]spatialmath.Pose, 0, len(frames))
	for _, f := range frames {
		p, err := matToPose(f)
		if err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}
	return poses, nil
}

// Jacobian returns the 6xN geometric Jacobian at the given configuration. Rows 0-2 map joint rates to the
// linear velocity of the tool, rows 3-5 to its angular velocity, both in the base frame.
func (c *Chain) Jacobian(inputs []referenceframe.Input) (*mat.Dense, error) {
	frames, err := c.cumulative(inputs)
	if err != nil {
		return nil, err
	}
	pe := translation(frames[len(frames)-1])
	jac := mat.NewDense(6, len(frames), nil)
	for i, f := range frames {
		z := axisZ(f)
		lin := z.Cross(pe.Sub(translation(f)))
		jac.Set(0, i, lin.X)
		jac.Set(1, i, lin.Y)
		jac.Set(2, i, lin.Z)
		jac.Set(3, i, z.X)
		jac.Set(4, i, z.Y)
		jac.Set(5, i, z.Z)
	}
	return jac, nil
}

// cumulative returns T_0..T_i for every joint i.
func (c *Chain) cumulative(inputs []referenceframe.Input) ([]mgl64.Mat4, error) {
	if len(inputs) != len(c.joints) {
		return nil, referenceframe.NewIncorrectDoFError(len(inputs), len(c.joints))
	}
	frames := make([]mgl64.Mat4, 0, len(c.joints))
	t := mgl64.Ident4()
	for i, j := range c.joints {
		t = t.Mul4(j.Transform(inputs[i].Value))
		frames = append(frames, t)
	}
	return frames, nil
}

func translation(m mgl64.Mat4) r3.Vector {
	return r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
}

func axisZ(m mgl64.Mat4) r3.Vector {
	return r3.Vector{X: m.At(0, 2), Y: m.At(1, 2), Z: m.At(2, 2)}
}

func matToPose(m mgl64.Mat4) (spatialmath.Pose, error) {
	rot := make([]float64, 0, 9)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			rot = append(rot, m.At(r, c))
		}
	}
	rm, err := spatialmath.NewRotationMatrix(rot)
	if err != nil {
		return nil, err
	}
	return spatialmath.NewPose(translation(m), rm), nil
}
