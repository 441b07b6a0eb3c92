package ik

import (
	"math"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

const (
	defaultMaxIterations  = 500
	defaultTolerance      = 1e-8
	defaultInitialDamping = 1e-3
	defaultDampingUp      = 10.
	defaultDampingDown    = 0.1
	defaultMinDamping     = 1e-9
	defaultMaxDamping     = 1e9
	defaultStepFloor      = 1e-12
	defaultRestarts       = 10
	defaultParallel       = 4
)

// Solver kinds selectable from the config.
const (
	SolverLM       = "lm"
	SolverCombined = "combined"
	SolverNlopt    = "nlopt"
)

// Config selects a solver and holds the tuning of the damped least squares solver.
type Config struct {
	// Solver is one of lm, combined or nlopt. Empty means lm.
	Solver string `json:"solver"`
	// Parallel is the number of LM solvers a combined solver races.
	Parallel       int     `json:"parallel"`
	MaxIterations  int     `json:"max_iterations"`
	Tolerance      float64 `json:"tolerance"`
	InitialDamping float64 `json:"initial_damping"`
	DampingUp      float64 `json:"damping_up"`
	DampingDown    float64 `json:"damping_down"`
	MinDamping     float64 `json:"min_damping"`
	MaxDamping     float64 `json:"max_damping"`
	StepFloor      float64 `json:"step_floor"`
	// Restarts is the number of extra attempts from random configurations after the seeded attempt fails.
	Restarts int   `json:"restarts"`
	Seed     int64 `json:"seed"`
}

// NewDefaultConfig returns the default solver tuning.
func NewDefaultConfig() *Config {
	return &Config{
		MaxIterations:  defaultMaxIterations,
		Tolerance:      defaultTolerance,
		InitialDamping: defaultInitialDamping,
		DampingUp:      defaultDampingUp,
		DampingDown:    defaultDampingDown,
		MinDamping:     defaultMinDamping,
		MaxDamping:     defaultMaxDamping,
		StepFloor:      defaultStepFloor,
		Restarts:       defaultRestarts,
		Seed:           1,
		Solver:         SolverLM,
		Parallel:       defaultParallel,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	switch cfg.Solver {
	case "", SolverLM, SolverCombined, SolverNlopt:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown solver %q", cfg.Solver))
	}
	if cfg.Solver == SolverCombined && cfg.Parallel < 1 {
		return utils.NewConfigValidationError(path, errors.New("parallel must be at least 1 for the combined solver"))
	}
	if cfg.MaxIterations < 1 {
		return utils.NewConfigValidationError(path, errors.New("max_iterations must be at least 1"))
	}
	if cfg.Restarts < 0 {
		return utils.NewConfigValidationError(path, errors.New("restarts cannot be negative"))
	}
	for name, v := range map[string]float64{
		"tolerance":       cfg.Tolerance,
		"initial_damping": cfg.InitialDamping,
		"min_damping":     cfg.MinDamping,
		"max_damping":     cfg.MaxDamping,
		"step_floor":      cfg.StepFloor,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return utils.NewConfigValidationError(path, errors.Errorf("%s must be positive and finite, got %v", name, v))
		}
	}
	if cfg.DampingUp <= 1 {
		return utils.NewConfigValidationError(path, errors.New("damping_up must be greater than 1"))
	}
	if cfg.DampingDown <= 0 || cfg.DampingDown >= 1 {
		return utils.NewConfigValidationError(path, errors.New("damping_down must be in (0, 1)"))
	}
	if cfg.MinDamping > cfg.MaxDamping {
		return utils.NewConfigValidationError(path, errors.New("min_damping cannot exceed max_damping"))
	}
	if cfg.InitialDamping < cfg.MinDamping || cfg.InitialDamping > cfg.MaxDamping {
		return utils.NewConfigValidationError(path, errors.New("initial_damping must lie within [min_damping, max_damping]"))
	}
	return nil
}
