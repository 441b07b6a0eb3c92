package ik

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/armlab/dofbot/logging"
	"github.com/armlab/dofbot/referenceframe"
)

// CombinedIK runs several solvers in parallel on the same goal and keeps the best answer.
type CombinedIK struct {
	solvers []Solver
	logger  logging.Logger
}

// CreateCombinedIKSolver creates nSolvers LM solvers which differ only in the random seed used for their restarts.
func CreateCombinedIKSolver(model Kinematic, logger logging.Logger, cfg *Config, nSolvers int) (*CombinedIK, error) {
	if nSolvers < 1 {
		nSolvers = 1
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	solvers := make([]Solver, 0, nSolvers)
	for i := 0; i < nSolvers; i++ {
		solverCfg := *cfg
		solverCfg.Seed = cfg.Seed + int64(i)
		solver, err := CreateLMSolver(model, logger.Sublogger("lm"), &solverCfg)
		if err != nil {
			return nil, err
		}
		solvers = append(solvers, solver)
	}
	return NewCombinedIK(logger, solvers...)
}

// NewCombinedIK combines arbitrary solvers, e.g. an LM solver and an nlopt solver.
func NewCombinedIK(logger logging.Logger, solvers ...Solver) (*CombinedIK, error) {
	if len(solvers) == 0 {
		return nil, errors.New("combined solver needs at least one solver")
	}
	return &CombinedIK{solvers: solvers, logger: logger}, nil
}

// Solve runs every child solver and returns the converged solution with the lowest residual. The first
// success cancels the remaining solvers.
func (ik *CombinedIK) Solve(ctx context.Context, goal *Goal, seed []referenceframe.Input) (*Solution, error) {
	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		activeSolvers sync.WaitGroup
		mu            sync.Mutex
		best          *Solution
		bestFailure   *ConvergenceError
		solveErrors   error
	)
	for _, solver := range ik.solvers {
		thisSolver := solver
		activeSolvers.Add(1)
		utils.PanicCapturingGo(func() {
			defer activeSolvers.Done()
			sol, err := thisSolver.Solve(cancelCtx, goal, referenceframe.CopyInputs(seed))

			mu.Lock()
			defer mu.Unlock()
			var convErr *ConvergenceError
			switch {
			case err == nil:
				if best == nil || sol.Residual < best.Residual {
					best = sol
				}
				cancel()
			case errors.As(err, &convErr):
				if bestFailure == nil || (convErr.Best != nil &&
					(bestFailure.Best == nil || convErr.Best.Residual < bestFailure.Best.Residual)) {
					bestFailure = convErr
				}
			case errors.Is(err, context.Canceled) && ctx.Err() == nil:
				// cancelled by a sibling's success
			default:
				solveErrors = multierr.Combine(solveErrors, err)
			}
		})
	}
	activeSolvers.Wait()

	if best != nil {
		return best, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if solveErrors != nil {
		return nil, solveErrors
	}
	if bestFailure == nil {
		return nil, errors.Wrap(ErrNoSolution, "no solver produced a result")
	}
	ik.logger.Debugw("combined ik failed", "reason", bestFailure.Reason, "solvers", len(ik.solvers))
	return nil, bestFailure
}
