// Package arm defines the interfaces through which the task runner drives an arm and observes
// the objects around it.
package arm

import (
	"context"

	"github.com/pkg/errors"
	pb "go.viam.com/api/component/arm/v1"

	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/spatialmath"
)

// Actuator commands the joints and gripper of an arm. Joint configurations are in radians in the kinematic
// convention; the gripper value is in whatever unit the implementation documents.
type Actuator interface {
	SetJointConfiguration(ctx context.Context, joints []referenceframe.Input) error
	SetGripper(ctx context.Context, angle float64) error
	Reset(ctx context.Context) error
}

// Scene reports the pose of the object to move and of the place it should go.
type Scene interface {
	ObjectPose(ctx context.Context) (spatialmath.Pose, error)
	TargetPose(ctx context.Context) (spatialmath.Pose, error)
	IsTaskComplete(ctx context.Context) (bool, error)
}

// Environment is an actuated arm together with the scene it acts on, e.g. a simulator.
type Environment interface {
	Actuator
	Scene
}

// CheckDesiredJointPositions validates that the desired joint positions either bring the joint back
// in bounds or do not move the joint more out of bounds.
func CheckDesiredJointPositions(f referenceframe.Frame, current, desired []referenceframe.Input) error {
	limits := f.DoF()
	if len(desired) != len(limits) {
		return referenceframe.NewIncorrectDoFError(len(desired), len(limits))
	}
	for i, val := range desired {
		max := limits[i].Max
		min := limits[i].Min
		currPosition := val.Value
		if current != nil {
			currPosition = current[i].Value
		}
		// to make sure that val is a valid input
		// it must either bring the joint more
		// inbounds or keep the joint inbounds.
		if currPosition > max {
			max = currPosition
		} else if currPosition < min {
			min = currPosition
		}
		if val.Value > max || val.Value < min {
			return errors.Errorf("joint %v needs to be within range [%v, %v] and cannot be moved to %v",
				i, min, max, val.Value)
		}
	}
	return nil
}

// JointPositionsToProto converts a configuration to a JointPositions message in degrees.
func JointPositionsToProto(joints []referenceframe.Input) *pb.JointPositions {
	return referenceframe.JointPositionsFromRadians(referenceframe.InputsToFloats(joints))
}
