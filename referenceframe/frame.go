// Package referenceframe defines the api and does the math of translating between reference frames.
// A Frame maps a slice of Inputs (joint angles) onto the pose of its end in the parent frame.
package referenceframe

import (
	"math"
	"math/rand"

	"github.com/armlab/dofbot/spatialmath"
)

// Limit represents the limits of motion for a referenceframe.
type Limit struct {
	Min float64
	Max float64
}

// Frame represents a reference frame, e.g. an arm, a joint, a gripper.
type Frame interface {
	// Name returns the name of the referenceframe.
	Name() string

	// Transform is the pose (rotation and translation) that goes FROM current frame TO parent's referenceframe.
	Transform([]Input) (spatialmath.Pose, error)

	// DoF will return a slice with length equal to the number of joints/degrees of freedom.
	// Each element describes the min and max movement limit of that joint/degree of freedom.
	DoF() []Limit
}

// ValidateLimits checks that every limit is well formed.
func ValidateLimits(limits []Limit) error {
	for i, lim := range limits {
		if math.IsNaN(lim.Min) || math.IsNaN(lim.Max) || lim.Min > lim.Max {
			return NewInvalidLimitError(i, lim)
		}
	}
	return nil
}

// InputsWithinLimits returns an error naming the first input that lies outside its limit.
func InputsWithinLimits(inputs []Input, limits []Limit) error {
	if len(inputs) != len(limits) {
		return NewIncorrectDoFError(len(inputs), len(limits))
	}
	for i, in := range inputs {
		if in.Value < limits[i].Min || in.Value > limits[i].Max {
			return NewOutOfBoundsError(i, in.Value, limits[i])
		}
	}
	return nil
}

// RandomInputs will produce a list of valid, in-bounds inputs drawn uniformly within the given limits.
func RandomInputs(limits []Limit, rSeed *rand.Rand) []Input {
	if rSeed == nil {
		//nolint:gosec
		rSeed = rand.New(rand.NewSource(1))
	}
	pos := make([]Input, 0, len(limits))
	for _, lim := range limits {
		l, u := lim.Min, lim.Max

		// Default to [-999,999] as range if limits are infinite
		if l == math.Inf(-1) {
			l = -999
		}
		if u == math.Inf(1) {
			u = 999
		}

		jRange := math.Abs(u - l)
		pos = append(pos, Input{rSeed.Float64()*jRange + l})
	}
	return pos
}
