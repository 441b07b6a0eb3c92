// Package pickplace sequences a pick and place task: approach the object, grasp it, carry it over the target and
// set it down. Each control tick solves inverse kinematics for the current phase target and commands the arm.
package pickplace

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/armlab/dofbot/components/arm"
	"github.com/armlab/dofbot/logging"
	"github.com/armlab/dofbot/motionplan/ik"
	"github.com/armlab/dofbot/referenceframe"
)

// ErrTaskIncomplete is returned by Run when the tick budget runs out before the scene reports completion.
var ErrTaskIncomplete = errors.New("pick and place task did not complete")

// TickResult describes what a single tick did.
type TickResult struct {
	Tick   int
	State  MotionState
	Dwell  int
	Target PhaseTarget
	// Configuration is the commanded configuration, nil when the tick was skipped.
	Configuration []referenceframe.Input
	// IKErr is the solver failure that caused the tick to be skipped.
	IKErr    error
	Settled  bool
	Complete bool
}

// Actuated reports whether the arm was commanded during the tick.
func (r *TickResult) Actuated() bool {
	return r.Configuration != nil
}

// Status is a snapshot of a state machine.
type Status struct {
	State     MotionState
	Dwell     int
	Ticks     int
	Skipped   int
	Settled   bool
	Complete  bool
	Commanded []referenceframe.Input
}

func (s Status) String() string {
	return fmt.Sprintf("state=%v dwell=%d ticks=%d skipped=%d settled=%t complete=%t",
		s.State, s.Dwell, s.Ticks, s.Skipped, s.Settled, s.Complete)
}

// Option configures a StateMachine.
type Option func(*StateMachine)

// WithClock sets the clock used to pace Run.
func WithClock(c clock.Clock) Option {
	return func(sm *StateMachine) {
		sm.clock = c
	}
}

// WithSeed sets the configuration the first solve starts from. The default is the zero configuration.
func WithSeed(seed []referenceframe.Input) Option {
	return func(sm *StateMachine) {
		sm.commanded = referenceframe.CopyInputs(seed)
	}
}

// StateMachine drives an Environment through the task. It is not safe for concurrent use.
type StateMachine struct {
	env    arm.Environment
	solver ik.Solver
	cfg    Config
	logger logging.Logger
	clock  clock.Clock

	state     MotionState
	dwell     int
	ticks     int
	skipped   int
	settled   bool
	complete  bool
	pickSite  r3.Vector
	lastSeen  r3.Vector
	commanded []referenceframe.Input
}

// NewStateMachine returns a machine in PreGrasp. A nil cfg uses NewDefaultConfig.
func NewStateMachine(env arm.Environment, solver ik.Solver, cfg *Config, logger logging.Logger, opts ...Option) (*StateMachine, error) {
	if env == nil || solver == nil {
		return nil, errors.New("state machine needs an environment and an ik solver")
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate("pickplace"); err != nil {
		return nil, err
	}
	sm := &StateMachine{
		env:    env,
		solver: solver,
		cfg:    *cfg,
		logger: logger,
		clock:  clock.New(),
		state:  PreGrasp,
	}
	for _, opt := range opts {
		opt(sm)
	}
	if cfg.MaxTicks > 0 && cfg.MaxTicks < cfg.TotalTicks() {
		logger.Warnw("max_ticks ends the run before the set phase settles", "max_ticks", cfg.MaxTicks,
			"phase_ticks", cfg.TotalTicks())
	}
	return sm, nil
}

// Tick runs one control step. IK failures skip actuation for the tick and are reported in the result; the state
// still advances on dwell. Environment and context errors are returned.
func (sm *StateMachine) Tick(ctx context.Context) (*TickResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	objectPose, err := sm.env.ObjectPose(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading object pose")
	}
	targetPose, err := sm.env.TargetPose(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading target pose")
	}
	sm.lastSeen = objectPose.Point()

	res := &TickResult{Tick: sm.ticks, State: sm.state, Dwell: sm.dwell}
	res.Target = TargetFor(sm.state, sm.dwell, sm.lastSeen, sm.pickSite, targetPose.Point(), &sm.cfg)

	sol, err := sm.solver.Solve(ctx, ik.NewPositionGoal(res.Target.Position), sm.commanded)
	switch {
	case err == nil:
		if err := sm.env.SetJointConfiguration(ctx, sol.Configuration); err != nil {
			return nil, errors.Wrap(err, "commanding joints")
		}
		if err := sm.env.SetGripper(ctx, res.Target.Gripper); err != nil {
			return nil, errors.Wrap(err, "commanding gripper")
		}
		sm.commanded = referenceframe.CopyInputs(sol.Configuration)
		res.Configuration = referenceframe.CopyInputs(sol.Configuration)
	case errors.Is(err, ik.ErrNoSolution):
		sm.skipped++
		res.IKErr = err
		sm.logger.Debugw("no ik solution, skipping tick", "state", sm.state, "dwell", sm.dwell, "error", err)
	default:
		return nil, err
	}

	sm.ticks++
	sm.dwell++
	next, expired := Transition(sm.state, sm.dwell, &sm.cfg)
	if expired && sm.state == Set && !sm.settled {
		sm.settled = true
		sm.logger.Infow("placement settled", "ticks", sm.ticks)
	}
	if next != sm.state {
		if sm.state == Grasp {
			sm.pickSite = sm.lastSeen
		}
		sm.logger.Infow("state transition", "from", sm.state.String(), "to", next.String(), "tick", sm.ticks)
		sm.state = next
		sm.dwell = 0
	}
	res.Settled = sm.settled

	complete, err := sm.env.IsTaskComplete(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "checking task completion")
	}
	sm.complete = complete
	res.Complete = complete
	return res, nil
}

// Run ticks until the scene reports completion, MaxTicks ticks have run or ctx is done. It does not reset the
// environment. When TickPeriodMs is set ticks are paced by the machine's clock.
func (sm *StateMachine) Run(ctx context.Context) (Status, error) {
	var ticker *clock.Ticker
	if period := sm.cfg.TickPeriod(); period > 0 {
		ticker = sm.clock.Ticker(period)
		defer ticker.Stop()
	}
	skipStreak := 0
	for {
		if sm.cfg.MaxTicks > 0 && sm.ticks >= sm.cfg.MaxTicks {
			return sm.Status(), errors.Wrapf(ErrTaskIncomplete, "after %d ticks in %v", sm.ticks, sm.state)
		}
		res, err := sm.Tick(ctx)
		if err != nil {
			return sm.Status(), err
		}
		switch {
		case !res.Actuated():
			skipStreak++
		case skipStreak > 0:
			sm.logger.Infow("ik recovered", "state", res.State, "skipped_ticks", skipStreak)
			skipStreak = 0
		}
		if res.Complete {
			sm.logger.Infow("task complete", "ticks", sm.ticks, "skipped", sm.skipped)
			return sm.Status(), nil
		}
		if ticker == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return sm.Status(), ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status returns a snapshot of the machine.
func (sm *StateMachine) Status() Status {
	return Status{
		State:     sm.state,
		Dwell:     sm.dwell,
		Ticks:     sm.ticks,
		Skipped:   sm.skipped,
		Settled:   sm.settled,
		Complete:  sm.complete,
		Commanded: referenceframe.CopyInputs(sm.commanded),
	}
}

// State returns the current phase.
func (sm *StateMachine) State() MotionState {
	return sm.state
}
