package motionplan

import (
	"fmt"
	"math"
	"strings"

	"github.com/armlab/dofbot/motionplan/ik"
	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/spatialmath"
)

// Plan is an ordered list of joint configurations for a single arm.
type Plan [][]referenceframe.Input

// String returns a human-readable version of the Plan, suitable for debugging.
func (plan Plan) String() string {
	var sb strings.Builder
	for i, step := range plan {
		fmt.Fprintf(&sb, "\n%d: %v", i, referenceframe.InputsToFloats(step))
	}
	return sb.String()
}

// Evaluate assigns a numeric score to a plan that corresponds to the cumulative joint displacement between its steps.
func (plan Plan) Evaluate() float64 {
	if len(plan) < 2 {
		return math.Inf(1)
	}
	totalCost := 0.
	for i := 1; i < len(plan); i++ {
		totalCost += ik.JointMetric(plan[i-1], plan[i])
	}
	return totalCost
}

// Poses returns the end effector pose at every step of the plan.
func (plan Plan) Poses(f referenceframe.Frame) ([]spatialmath.Pose, error) {
	poses := make([]spatialmath.Pose, 0, len(plan))
	for _, step := range plan {
		pose, err := f.Transform(step)
		if err != nil {
			return nil, err
		}
		poses = append(poses, pose)
	}
	return poses, nil
}
