package ik

import (
	"math"

	"github.com/armlab/dofbot/referenceframe"
	spatial "github.com/armlab/dofbot/spatialmath"
)

// State contains the configuration being scored and the end effector pose it produces.
type State struct {
	Position      spatial.Pose
	Configuration []referenceframe.Input
	Frame         referenceframe.Frame
}

// StateMetric are functions which, given a State, produces some score. Lower is better.
// This is used for gradient descent to converge upon a goal pose, for example.
type StateMetric func(*State) float64

// NewWeightedSquaredNormMetric returns the squared norm of the goal's weighted error vector.
func NewWeightedSquaredNormMetric(goal *Goal) StateMetric {
	return func(state *State) float64 {
		sum := 0.
		for _, v := range goal.errorVector(state.Position) {
			sum += v * v
		}
		return sum
	}
}

// OrientDist returns the arclength between two orientations in radians.
func OrientDist(o1, o2 spatial.Orientation) float64 {
	return spatial.QuatToR4AA(spatial.OrientationBetween(o1, o2).Quaternion()).Theta
}

// JointMetric sums the absolute joint displacement between two configurations.
func JointMetric(from, to []referenceframe.Input) float64 {
	jScore := 0.
	for i, f := range from {
		jScore += math.Abs(f.Value - to[i].Value)
	}
	return jScore
}
