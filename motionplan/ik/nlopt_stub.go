//go:build !nlopt

package ik

import (
	"context"

	"github.com/pkg/errors"

	"github.com/armlab/dofbot/logging"
	"github.com/armlab/dofbot/referenceframe"
)

// ErrNloptUnavailable is returned by the nlopt solver on builds without the nlopt tag.
var ErrNloptUnavailable = errors.New("nlopt is not supported on this build, rebuild with -tags nlopt")

// NloptIK mimics the type in the nlopt tagged build.
type NloptIK struct{}

// CreateNloptSolver is not supported without the nlopt build tag.
func CreateNloptSolver(model Kinematic, logger logging.Logger, cfg *Config) (*NloptIK, error) {
	return nil, ErrNloptUnavailable
}

// Solve refuses to solve problems without nlopt.
func (ik *NloptIK) Solve(ctx context.Context, goal *Goal, seed []referenceframe.Input) (*Solution, error) {
	return nil, ErrNloptUnavailable
}
