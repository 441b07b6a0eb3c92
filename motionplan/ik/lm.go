// Package ik solves inverse kinematics for serial arms: it finds joint configurations whose end
// effector pose matches a goal.
package ik

import (
	"context"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/armlab/dofbot/logging"
	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/spatialmath"
	"github.com/armlab/dofbot/utils"
)

// Kinematic is a frame whose geometric Jacobian is known in closed form.
type Kinematic interface {
	referenceframe.Frame
	Jacobian([]referenceframe.Input) (*mat.Dense, error)
}

// Solver finds a configuration reaching a goal, starting from a seed configuration.
type Solver interface {
	Solve(ctx context.Context, goal *Goal, seed []referenceframe.Input) (*Solution, error)
}

// Solution is a configuration reached by a solver along with how well and how quickly it was found.
type Solution struct {
	Configuration []referenceframe.Input
	Iterations    int
	// Residual is the norm of the weighted error vector.
	Residual float64
	// PositionError is the distance to the goal point in meters.
	PositionError float64
	// OrientationError is the angle to the goal orientation in radians.
	OrientationError float64
	Restarts         int
}

// LMSolver is a Levenberg-Marquardt damped least squares solver.
type LMSolver struct {
	model  Kinematic
	logger logging.Logger
	cfg    Config
	limits []referenceframe.Limit
}

// CreateLMSolver creates a solver for the given model. A nil config uses NewDefaultConfig.
func CreateLMSolver(model Kinematic, logger logging.Logger, cfg *Config) (*LMSolver, error) {
	if model == nil {
		return nil, errors.New("cannot create solver without a model")
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate("ik"); err != nil {
		return nil, err
	}
	limits := model.DoF()
	if len(limits) == 0 {
		return nil, errors.New("cannot solve for a model with no degrees of freedom")
	}
	return &LMSolver{model: model, logger: logger, cfg: *cfg, limits: limits}, nil
}

// Solve iterates from seed towards goal. A nil seed starts from the zero configuration. On failure the returned error
// wraps ErrNoSolution and is a *ConvergenceError carrying the best configuration found.
//
// A model with fewer than six joints cannot match an arbitrary pose goal. The dofbot's tool axis stays in the
// vertical plane through its base axis, so a full pose goal converges only when it lies on that manifold. Use
// NewPositionGoal when only the tool position matters.
func (s *LMSolver) Solve(ctx context.Context, goal *Goal, seed []referenceframe.Input) (*Solution, error) {
	if err := goal.Validate(); err != nil {
		return nil, err
	}
	if seed == nil {
		seed = make([]referenceframe.Input, len(s.limits))
	}
	if len(seed) != len(s.limits) {
		return nil, referenceframe.NewIncorrectDoFError(len(seed), len(s.limits))
	}

	//nolint:gosec
	rSeed := rand.New(rand.NewSource(s.cfg.Seed))
	start := referenceframe.CopyInputs(seed)
	var best *Solution
	var bestReason Reason
	for attempt := 0; attempt <= s.cfg.Restarts; attempt++ {
		if attempt > 0 {
			start = referenceframe.RandomInputs(s.limits, rSeed)
		}
		sol, reason, err := s.attempt(ctx, goal, start)
		if err != nil {
			return nil, err
		}
		sol.Restarts = attempt
		if reason == "" {
			s.logger.Debugw("ik converged",
				"iterations", sol.Iterations, "restarts", attempt, "residual", sol.Residual)
			return sol, nil
		}
		s.logger.Debugw("ik attempt failed", "attempt", attempt, "reason", reason, "residual", sol.Residual)
		if best == nil || sol.Residual < best.Residual {
			best, bestReason = sol, reason
		}
	}
	return nil, &ConvergenceError{Reason: bestReason, Best: best}
}

// attempt runs one damped least squares descent from start. An empty reason means it converged.
func (s *LMSolver) attempt(ctx context.Context, goal *Goal, start []referenceframe.Input) (*Solution, Reason, error) {
	q := referenceframe.CopyInputs(start)
	lambda := s.cfg.InitialDamping
	e, resid, err := s.residual(goal, q)
	if err != nil {
		return nil, "", err
	}

	iter := 0
	for ; iter < s.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if resid < s.cfg.Tolerance {
			return s.solution(goal, q, iter, resid), "", nil
		}

		jac, err := s.model.Jacobian(q)
		if err != nil {
			return nil, "", err
		}
		dq, ok := dampedStep(jac, goal.Weights, e, lambda)
		if !ok {
			lambda = math.Min(lambda*s.cfg.DampingUp, s.cfg.MaxDamping)
			continue
		}
		if floats.Norm(dq, 2) < s.cfg.StepFloor {
			return s.solution(goal, q, iter, resid), ReasonStalled, nil
		}

		candidate := make([]referenceframe.Input, len(q))
		for i := range q {
			candidate[i] = referenceframe.Input{Value: q[i].Value + dq[i]}
		}
		candE, candResid, err := s.residual(goal, candidate)
		if err != nil {
			return nil, "", err
		}
		if candResid < resid {
			q, e, resid = candidate, candE, candResid
			lambda = math.Max(lambda*s.cfg.DampingDown, s.cfg.MinDamping)
		} else {
			lambda = math.Min(lambda*s.cfg.DampingUp, s.cfg.MaxDamping)
		}
	}
	if resid < s.cfg.Tolerance {
		return s.solution(goal, q, iter, resid), "", nil
	}
	return s.solution(goal, q, iter, resid), ReasonMaxIterations, nil
}

// residual returns the raw error vector and the norm of its weighted form.
func (s *LMSolver) residual(goal *Goal, q []referenceframe.Input) ([]float64, float64, error) {
	pose, err := s.model.Transform(q)
	if err != nil {
		return nil, 0, err
	}
	e := spatialmath.PoseErrorVector(pose, goal.Pose)
	return e, floats.Norm(goal.errorVector(pose), 2), nil
}

// dampedStep solves (JᵀWJ + λI)Δq = JᵀWe where W holds the squared goal weights, so that the step minimizes the
// weighted residual. It reports false when the damped normal matrix cannot be factorized.
func dampedStep(jac *mat.Dense, weights [6]float64, e []float64, lambda float64) ([]float64, bool) {
	rows, n := jac.Dims()
	wj := mat.DenseCopyOf(jac)
	we := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		w := weights[r] * weights[r]
		for c := 0; c < n; c++ {
			wj.Set(r, c, w*jac.At(r, c))
		}
		we.SetVec(r, w*e[r])
	}

	var normal mat.Dense
	normal.Mul(jac.T(), wj)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := normal.At(i, j)
			if i == j {
				v += lambda
			}
			sym.SetSym(i, j, v)
		}
	}

	var rhs mat.VecDense
	rhs.MulVec(jac.T(), we)

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, false
	}
	dq := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(dq, &rhs); err != nil {
		return nil, false
	}
	return dq.RawVector().Data, true
}

func (s *LMSolver) solution(goal *Goal, q []referenceframe.Input, iterations int, resid float64) *Solution {
	out := make([]referenceframe.Input, len(q))
	for i, in := range q {
		out[i] = referenceframe.Input{Value: utils.WrapAngle(in.Value)}
	}
	sol := &Solution{Configuration: out, Iterations: iterations, Residual: resid}
	if pose, err := s.model.Transform(q); err == nil {
		sol.PositionError = pose.Point().Distance(goal.Pose.Point())
		sol.OrientationError = OrientDist(pose.Orientation(), goal.Pose.Orientation())
	}
	return sol
}
