//go:build nlopt

package ik

import (
	"context"
	"testing"

	"go.viam.com/test"

	"github.com/armlab/dofbot/kinematics"
	"github.com/armlab/dofbot/logging"
)

func TestCreateNloptSolver(t *testing.T) {
	chain, err := kinematics.MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	cfg := NewDefaultConfig()
	cfg.Solver = SolverNlopt
	solver, err := CreateSolver(chain, logging.NewTestLogger(t), cfg)
	test.That(t, err, test.ShouldBeNil)
	_, ok := solver.(*NloptIK)
	test.That(t, ok, test.ShouldBeTrue)

	goal, err := chain.ForwardKinematics(kinematics.DemoConfigurations[0])
	test.That(t, err, test.ShouldBeNil)
	sol, err := solver.Solve(context.Background(), NewPositionGoal(goal.Point()), kinematics.DemoConfigurations[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.PositionError, test.ShouldBeLessThan, 1e-3)
}
