package pickplace

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/armlab/dofbot/components/arm"
	"github.com/armlab/dofbot/kinematics"
	"github.com/armlab/dofbot/logging"
	"github.com/armlab/dofbot/motionplan"
	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/utils"
)

// Segment moves the arm in joint space from the previous waypoint to To.
type Segment struct {
	To []referenceframe.Input
	// During, when set, is sent to the gripper with every step of the segment.
	During *float64
	// AtEnd, when set, is sent to the gripper after the last step, followed by a settle pause.
	AtEnd *float64
}

// Script is a hand authored joint space task, as used on real hardware where object poses are not observed.
type Script struct {
	Name     string
	Start    []referenceframe.Input
	Segments []Segment
	// Steps is the number of configurations each segment is interpolated into, endpoints included.
	Steps  int
	Settle time.Duration
}

// Validate checks that every waypoint has one value per joint and that segments can be interpolated.
func (s *Script) Validate() error {
	if s.Steps < 2 {
		return errors.Wrapf(motionplan.ErrTooFewSteps, "script %q has %d steps per segment", s.Name, s.Steps)
	}
	if len(s.Start) != kinematics.NumJoints {
		return errors.Wrapf(referenceframe.NewIncorrectDoFError(len(s.Start), kinematics.NumJoints), "script %q start", s.Name)
	}
	for i, seg := range s.Segments {
		if len(seg.To) != kinematics.NumJoints {
			return errors.Wrapf(referenceframe.NewIncorrectDoFError(len(seg.To), kinematics.NumJoints), "script %q segment %d", s.Name, i)
		}
	}
	return nil
}

// Waypoints returns the start followed by the end of every segment.
func (s *Script) Waypoints() [][]referenceframe.Input {
	return append([][]referenceframe.Input{referenceframe.CopyInputs(s.Start)},
		lo.Map(s.Segments, func(seg Segment, _ int) []referenceframe.Input { return referenceframe.CopyInputs(seg.To) })...)
}

// Plan expands the waypoints into the joint path Run sends, Steps configurations per segment with each waypoint
// appearing once.
func (s *Script) Plan() (motionplan.Plan, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	path, err := motionplan.ExpandWaypoints(s.Waypoints(), s.Steps)
	if err != nil {
		return nil, errors.Wrapf(err, "script %q", s.Name)
	}
	return path, nil
}

// Run plays the script on the actuator. The first step is Start, so the arm should already be there, e.g. after
// Reset. A nil clk uses the wall clock.
func (s *Script) Run(ctx context.Context, act arm.Actuator, clk clock.Clock, logger logging.Logger) error {
	plan, err := s.Plan()
	if err != nil {
		return err
	}
	if clk == nil {
		clk = clock.New()
	}
	logger.Debugw("running script", "script", s.Name, "steps", len(plan), "joint_travel", plan.Evaluate())

	perSegment := s.Steps - 1
	for i, seg := range s.Segments {
		first, last := i*perSegment, (i+1)*perSegment
		if i > 0 {
			first++
		}
		logger.Debugw("running segment", "script", s.Name, "segment", i,
			"to", arm.JointPositionsToProto(seg.To).Values)
		for _, step := range plan[first : last+1] {
			if err := act.SetJointConfiguration(ctx, step); err != nil {
				return errors.Wrapf(err, "segment %d", i)
			}
			if seg.During != nil {
				if err := act.SetGripper(ctx, *seg.During); err != nil {
					return errors.Wrapf(err, "segment %d", i)
				}
			}
		}
		if seg.AtEnd != nil {
			if err := s.pause(ctx, clk); err != nil {
				return err
			}
			if err := act.SetGripper(ctx, *seg.AtEnd); err != nil {
				return errors.Wrapf(err, "segment %d", i)
			}
			if err := s.pause(ctx, clk); err != nil {
				return err
			}
		}
	}
	logger.Infow("script finished", "script", s.Name, "segments", len(s.Segments))
	return nil
}

// RunScripts resets the actuator before each script so every script starts from its Start configuration.
func RunScripts(ctx context.Context, act arm.Actuator, clk clock.Clock, logger logging.Logger, scripts ...*Script) error {
	for _, script := range scripts {
		if err := act.Reset(ctx); err != nil {
			return errors.Wrapf(err, "reset before script %q", script.Name)
		}
		if err := script.Run(ctx, act, clk, logger); err != nil {
			return errors.Wrapf(err, "script %q", script.Name)
		}
	}
	return nil
}

func (s *Script) pause(ctx context.Context, clk clock.Clock) error {
	if s.Settle <= 0 {
		return ctx.Err()
	}
	timer := clk.Timer(s.Settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// servoWaypoint converts dofbot servo degrees, where 90 is the kinematic zero of every joint, to radians.
func servoWaypoint(degrees ...float64) []referenceframe.Input {
	return lo.Map(degrees, func(d float64, _ int) referenceframe.Input {
		return referenceframe.Input{Value: utils.DegToRad(d - 90)}
	})
}

// DofbotGraspScript raises the arm, reaches down to a block, closes the gripper on it and brings it back to the
// home pose. Gripper values are in the actuator's units.
func DofbotGraspScript(open, closed float64) *Script {
	return &Script{
		Name:  "grasp",
		Start: servoWaypoint(90, 90, 90, 90, 90),
		Segments: []Segment{
			{To: servoWaypoint(90, 45, 90, 45, 90), During: lo.ToPtr(open)},
			{To: servoWaypoint(137, 51, 52, 2, 90), AtEnd: lo.ToPtr(closed)},
			{To: servoWaypoint(90, 90, 90, 90, 90)},
		},
		Steps:  15,
		Settle: time.Second,
	}
}

// DofbotPickPlaceScript picks a block from in front of the arm and sets it down to the side.
func DofbotPickPlaceScript(open, closed float64) *Script {
	return &Script{
		Name:  "pick and place",
		Start: servoWaypoint(90, 90, 90, 90, 90),
		Segments: []Segment{
			{To: servoWaypoint(137, 48, 52, 2, 90), During: lo.ToPtr(open), AtEnd: lo.ToPtr(closed)},
			{To: servoWaypoint(137, 56, 52, 2, 90)},
			{To: servoWaypoint(40, 50, 45, 7, 90), During: lo.ToPtr(closed), AtEnd: lo.ToPtr(open)},
		},
		Steps:  15,
		Settle: 100 * time.Millisecond,
	}
}
