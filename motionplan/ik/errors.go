package ik

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoSolution is wrapped by every error returned when the solver gives up on a goal.
var ErrNoSolution = errors.New("kinematics could not solve for position")

// Reason describes why a solve attempt stopped without converging.
type Reason string

const (
	// ReasonMaxIterations means the iteration budget ran out while the residual was still above tolerance.
	ReasonMaxIterations Reason = "max iterations reached"
	// ReasonStalled means the damped step shrank below the step floor, which happens at local minima and
	// near singular configurations.
	ReasonStalled Reason = "step below floor"
)

// ConvergenceError reports a failed solve together with the best configuration found.
type ConvergenceError struct {
	Reason Reason
	// Best is the least-squares best configuration over all attempts.
	Best *Solution
}

func (e *ConvergenceError) Error() string {
	if e.Best == nil {
		return fmt.Sprintf("%s: %s", ErrNoSolution, e.Reason)
	}
	return fmt.Sprintf("%s: %s, best residual %.3g after %d iterations and %d restarts",
		ErrNoSolution, e.Reason, e.Best.Residual, e.Best.Iterations, e.Best.Restarts)
}

// Unwrap lets errors.Is match ErrNoSolution.
func (e *ConvergenceError) Unwrap() error {
	return ErrNoSolution
}
