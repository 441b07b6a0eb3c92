package ik

import (
	"github.com/armlab/dofbot/logging"
)

// CreateSolver builds the solver named by cfg.Solver. Builds without the nlopt tag return ErrNloptUnavailable
// for the nlopt kind.
func CreateSolver(model Kinematic, logger logging.Logger, cfg *Config) (Solver, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate("ik"); err != nil {
		return nil, err
	}
	var (
		solver Solver
		err    error
	)
	switch cfg.Solver {
	case SolverCombined:
		var combined *CombinedIK
		combined, err = CreateCombinedIKSolver(model, logger, cfg, cfg.Parallel)
		solver = combined
	case SolverNlopt:
		var nlopt *NloptIK
		nlopt, err = CreateNloptSolver(model, logger, cfg)
		solver = nlopt
	default:
		var lm *LMSolver
		lm, err = CreateLMSolver(model, logger, cfg)
		solver = lm
	}
	if err != nil {
		return nil, err
	}
	logger.Debugw("created ik solver", "kind", cfg.Solver)
	return solver, nil
}
