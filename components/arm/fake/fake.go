// Package fake implements a kinematic pick-and-place simulator: an arm, one object and one target spot.
// It stands in for a physics engine when exercising the task runner.
package fake

import (
	"context"
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/armlab/dofbot/components/arm"
	"github.com/armlab/dofbot/kinematics"
	"github.com/armlab/dofbot/logging"
	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/spatialmath"
)

// Gripper angles in radians. Values at or below GripperClosedThreshold count as closed.
const (
	GripperOpenAngle       = 20 * math.Pi / 180
	GripperCloseAngle      = -20 * math.Pi / 180
	GripperClosedThreshold = 0.
)

// Config describes the simulated scene. Positions are in meters in the arm base frame.
type Config struct {
	ObjectStart r3.Vector `json:"object_start"`
	Target      r3.Vector `json:"target"`
	// GrabRadius is how close the tool must be to the object center for a closing gripper to catch it.
	GrabRadius float64 `json:"grab_radius"`
	// CompletionTolerance is how close a released object must rest to the target.
	CompletionTolerance float64 `json:"completion_tolerance"`
}

// NewDefaultConfig returns a scene with a block in front of the arm and a target to its side.
func NewDefaultConfig() Config {
	return Config{
		ObjectStart:         r3.Vector{X: 0.2, Y: -0.05, Z: 0.015},
		Target:              r3.Vector{X: 0.05, Y: 0.2, Z: 0.015},
		GrabRadius:          0.035,
		CompletionTolerance: 0.02,
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.GrabRadius <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "grab_radius")
	}
	if conf.CompletionTolerance <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "completion_tolerance")
	}
	return nil
}

// Arm is a simulated dofbot. Joint moves are instantaneous. A closing gripper near the object attaches it; the
// object then keeps its offset from the tool until the gripper opens and it drops back to the table height.
type Arm struct {
	chain  *kinematics.Chain
	conf   Config
	logger logging.Logger

	mu       sync.Mutex
	joints   []referenceframe.Input
	gripper  float64
	object   r3.Vector
	attached bool
	// object position relative to the tool, in the base frame, while attached
	graspOffset r3.Vector
	moves       int
}

// NewArm returns a simulator for the given chain in its reset state.
func NewArm(chain *kinematics.Chain, conf Config, logger logging.Logger) (*Arm, error) {
	if chain == nil {
		return nil, errors.New("fake arm needs a kinematic chain")
	}
	if err := conf.Validate("fake"); err != nil {
		return nil, err
	}
	a := &Arm{chain: chain, conf: conf, logger: logger}
	a.resetInLock()
	return a, nil
}

func (a *Arm) resetInLock() {
	a.joints = make([]referenceframe.Input, len(a.chain.DoF()))
	a.gripper = GripperOpenAngle
	a.object = a.conf.ObjectStart
	a.attached = false
	a.graspOffset = r3.Vector{}
	a.moves = 0
}

// Reset puts the arm at its zero configuration with the gripper open and the object back at its start.
func (a *Arm) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetInLock()
	a.logger.Debug("fake arm reset")
	return nil
}

// SetJointConfiguration moves the arm, carrying the object along when it is held.
func (a *Arm) SetJointConfiguration(ctx context.Context, joints []referenceframe.Input) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tool, err := a.chain.ForwardKinematics(joints)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.joints = referenceframe.CopyInputs(joints)
	a.moves++
	if a.attached {
		a.object = tool.Point().Add(a.graspOffset)
	}
	return nil
}

// SetGripper sets the gripper angle in radians. Closing within GrabRadius of the object grabs it, opening drops it.
func (a *Arm) SetGripper(ctx context.Context, angle float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	closed := angle <= GripperClosedThreshold
	wasClosed := a.gripper <= GripperClosedThreshold
	a.gripper = angle

	switch {
	case closed && !wasClosed && !a.attached:
		tool, err := a.chain.ForwardKinematics(a.joints)
		if err != nil {
			return err
		}
		if dist := tool.Point().Distance(a.object); dist <= a.conf.GrabRadius {
			a.attached = true
			a.graspOffset = a.object.Sub(tool.Point())
			a.logger.Infow("object grasped", "distance", dist)
		} else {
			a.logger.Debugw("gripper closed on nothing", "distance", dist)
		}
	case !closed && a.attached:
		a.attached = false
		a.object.Z = a.conf.ObjectStart.Z
		a.logger.Infow("object released", "x", a.object.X, "y", a.object.Y)
	}
	return nil
}

// ObjectPose returns the current object pose.
func (a *Arm) ObjectPose(ctx context.Context) (spatialmath.Pose, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return spatialmath.NewPoseFromPoint(a.object), nil
}

// TargetPose returns the pose the object should be placed at.
func (a *Arm) TargetPose(ctx context.Context) (spatialmath.Pose, error) {
	return spatialmath.NewPoseFromPoint(a.conf.Target), nil
}

// IsTaskComplete reports whether the object has been released within tolerance of the target.
func (a *Arm) IsTaskComplete(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.attached && a.object.Distance(a.conf.Target) <= a.conf.CompletionTolerance, nil
}

// JointConfiguration returns a copy of the last commanded joints.
func (a *Arm) JointConfiguration() []referenceframe.Input {
	a.mu.Lock()
	defer a.mu.Unlock()
	return referenceframe.CopyInputs(a.joints)
}

// Gripper returns the last commanded gripper angle.
func (a *Arm) Gripper() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gripper
}

// Holding reports whether the object is attached to the gripper.
func (a *Arm) Holding() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attached
}

// Moves returns the number of joint commands received since the last reset.
func (a *Arm) Moves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moves
}

var _ arm.Environment = (*Arm)(nil)
