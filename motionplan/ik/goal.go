package ik

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/armlab/dofbot/spatialmath"
)

// Goal is a target end effector pose together with the weight of each of its six error components,
// ordered (x, y, z, rx, ry, rz).
type Goal struct {
	Pose         spatialmath.Pose
	Weights      [6]float64
	PositionOnly bool
}

// NewPoseGoal returns a goal on both position and orientation with unit weights. Five joints span at most five of
// the six pose dimensions, so a 5 DoF chain reaches such a goal exactly only when the pose is one the chain can
// produce, e.g. the forward kinematics of some configuration. Other poses end in a ConvergenceError whose Best is the
// least squares compromise.
func NewPoseGoal(pose spatialmath.Pose) *Goal {
	return &Goal{Pose: pose, Weights: [6]float64{1, 1, 1, 1, 1, 1}}
}

// NewPositionGoal returns a goal which ignores orientation. This is the usual goal for a 5 DoF arm, which cannot
// reach an arbitrary orientation at an arbitrary point.
func NewPositionGoal(point r3.Vector) *Goal {
	return &Goal{Pose: spatialmath.NewPoseFromPoint(point), Weights: [6]float64{1, 1, 1}, PositionOnly: true}
}

// NewPoseGoalFromMatrix builds a pose goal from a 4x4 homogeneous transform.
func NewPoseGoalFromMatrix(m mat.Matrix) (*Goal, error) {
	pose, err := spatialmath.NewPoseFromMatrix(m)
	if err != nil {
		return nil, err
	}
	return NewPoseGoal(pose), nil
}

// Validate checks the goal has a pose and usable weights.
func (g *Goal) Validate() error {
	if g == nil || g.Pose == nil {
		return errors.New("goal has no pose")
	}
	weighted := false
	for i, w := range g.Weights {
		if w < 0 {
			return errors.Errorf("goal weight %d cannot be negative", i)
		}
		if g.PositionOnly && i >= 3 && w != 0 {
			return errors.New("position only goal cannot weight orientation")
		}
		weighted = weighted || w > 0
	}
	if !weighted {
		return errors.New("goal has no positive weights")
	}
	return nil
}

// errorVector returns the weighted 6-vector error carrying current onto the goal.
func (g *Goal) errorVector(current spatialmath.Pose) []float64 {
	e := spatialmath.PoseErrorVector(current, g.Pose)
	for i := range e {
		e[i] *= g.Weights[i]
	}
	return e
}
