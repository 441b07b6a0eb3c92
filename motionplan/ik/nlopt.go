//go:build nlopt

package ik

import (
	"context"
	"math"
	"math/rand"

	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/armlab/dofbot/logging"
	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/utils"
)

// NloptIK minimizes the weighted squared pose error with SLSQP, keeping every joint inside its limits.
type NloptIK struct {
	model  Kinematic
	logger logging.Logger
	cfg    Config
	lower  []float64
	upper  []float64
}

// CreateNloptSolver creates a bounded solver for the given model. A nil config uses NewDefaultConfig.
func CreateNloptSolver(model Kinematic, logger logging.Logger, cfg *Config) (*NloptIK, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate("ik"); err != nil {
		return nil, err
	}
	lower, upper := limitsToArrays(model.DoF())
	if len(lower) == 0 {
		return nil, errors.New("cannot set upper or lower bounds for nlopt, slice is empty")
	}
	return &NloptIK{model: model, logger: logger, cfg: *cfg, lower: lower, upper: upper}, nil
}

// Solve runs SLSQP from the seed, then from random in-limit configurations until the goal is met or the restarts
// are used up.
func (ik *NloptIK) Solve(ctx context.Context, goal *Goal, seed []referenceframe.Input) (*Solution, error) {
	if err := goal.Validate(); err != nil {
		return nil, err
	}
	if seed == nil {
		seed = make([]referenceframe.Input, len(ik.lower))
	}
	if len(seed) != len(ik.lower) {
		return nil, referenceframe.NewIncorrectDoFError(len(seed), len(ik.lower))
	}

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(len(ik.lower)))
	if err != nil {
		return nil, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	metric := NewWeightedSquaredNormMetric(goal)
	iterations := 0
	// gradient of |We|² is -2 JᵀW²e
	minFunc := func(x, gradient []float64) float64 {
		iterations++
		inputs := referenceframe.FloatsToInputs(x)
		pose, err := ik.model.Transform(inputs)
		if err != nil {
			ik.logger.Errorw("error calculating pose in nlopt", "error", err)
			return 0
		}
		if len(gradient) > 0 {
			jac, err := ik.model.Jacobian(inputs)
			if err != nil {
				ik.logger.Errorw("error calculating jacobian in nlopt", "error", err)
				return 0
			}
			e := goal.errorVector(pose)
			for c := range gradient {
				g := 0.
				for r := 0; r < len(e); r++ {
					g += jac.At(r, c) * goal.Weights[r] * e[r]
				}
				gradient[c] = -2 * g
			}
		}
		return metric(&State{Position: pose, Configuration: inputs, Frame: ik.model})
	}

	tol := ik.cfg.Tolerance * ik.cfg.Tolerance
	if err := multierr.Combine(
		opt.SetLowerBounds(ik.lower),
		opt.SetUpperBounds(ik.upper),
		opt.SetStopVal(tol),
		opt.SetFtolAbs(tol*tol),
		opt.SetXtolAbs1(ik.cfg.StepFloor),
		opt.SetMinObjective(minFunc),
		opt.SetMaxEval(ik.cfg.MaxIterations),
	); err != nil {
		return nil, err
	}

	//nolint:gosec
	rSeed := rand.New(rand.NewSource(ik.cfg.Seed))
	start := clampToLimits(referenceframe.InputsToFloats(seed), ik.lower, ik.upper)
	var best *Solution
	for attempt := 0; attempt <= ik.cfg.Restarts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			start = referenceframe.InputsToFloats(referenceframe.RandomInputs(ik.model.DoF(), rSeed))
		}
		iterations = 0
		x, score, nloptErr := opt.Optimize(start)
		if x == nil {
			ik.logger.Debugw("nlopt attempt errored", "attempt", attempt, "error", nloptErr)
			continue
		}
		sol := &Solution{
			Configuration: referenceframe.FloatsToInputs(x),
			Iterations:    iterations,
			Residual:      sqrtNonNeg(score),
			Restarts:      attempt,
		}
		if pose, err := ik.model.Transform(sol.Configuration); err == nil {
			sol.PositionError = pose.Point().Distance(goal.Pose.Point())
			sol.OrientationError = OrientDist(pose.Orientation(), goal.Pose.Orientation())
		}
		if sol.Residual < ik.cfg.Tolerance {
			return sol, nil
		}
		if best == nil || sol.Residual < best.Residual {
			best = sol
		}
	}
	return nil, &ConvergenceError{Reason: ReasonMaxIterations, Best: best}
}

func limitsToArrays(limits []referenceframe.Limit) ([]float64, []float64) {
	var lower, upper []float64
	for _, limit := range limits {
		lower = append(lower, limit.Min)
		upper = append(upper, limit.Max)
	}
	return lower, upper
}

func clampToLimits(x, lower, upper []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = utils.Clamp(v, lower[i], upper[i])
	}
	return out
}

func sqrtNonNeg(v float64) float64 {
	return math.Sqrt(math.Max(0, v))
}
