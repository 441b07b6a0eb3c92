package report

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/armlab/dofbot/kinematics"
	"github.com/armlab/dofbot/motionplan"
	"github.com/armlab/dofbot/motionplan/ik"
	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/services/pickplace"
)

func TestTables(t *testing.T) {
	chain, err := kinematics.MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)

	dh := DHTable(chain)
	test.That(t, dh, test.ShouldContainSubstring, "0.08285")
	test.That(t, dh, test.ShouldContainSubstring, "-90.0")
	test.That(t, dh, test.ShouldContainSubstring, "J5")

	zero := make([]referenceframe.Input, kinematics.NumJoints)
	pose, err := chain.ForwardKinematics(zero)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, Pose("zero", pose), test.ShouldContainSubstring, "0.39862")
	test.That(t, ForwardTable([]ForwardRow{{"0", zero, pose}}), test.ShouldContainSubstring, "Z:0.39862")

	frames, err := JointPoses(chain, zero)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frames, test.ShouldContainSubstring, "Z:0.10450")
	_, err = JointPoses(chain, zero[:2])
	test.That(t, err, test.ShouldNotBeNil)

	inv := InverseTable([]InverseRow{
		{Label: "1", Solution: &ik.Solution{Configuration: zero, Iterations: 7}},
		{Label: "2", Err: errors.New("boom")},
	})
	test.That(t, inv, test.ShouldContainSubstring, "ok")
	test.That(t, inv, test.ShouldContainSubstring, "FAILED: boom")

	test.That(t, Radians(referenceframe.FloatsToInputs([]float64{1, -0.5})), test.ShouldEqual, "[1.0000, -0.5000]")
	test.That(t, Degrees(referenceframe.FloatsToInputs([]float64{0})), test.ShouldEqual, "[0.00]")

	status := pickplace.Status{State: pickplace.Set, Ticks: 12, Complete: true}
	test.That(t, Task(status), test.ShouldContainSubstring, "SET")
}

func TestPlanTable(t *testing.T) {
	chain, err := kinematics.MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	zero := make([]referenceframe.Input, kinematics.NumJoints)
	path, err := motionplan.ExpandWaypoints([][]referenceframe.Input{zero, kinematics.DemoConfigurations[0]}, 5)
	test.That(t, err, test.ShouldBeNil)

	out, err := PlanTable("demo", path, chain, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Z:0.39862")
	test.That(t, out, test.ShouldContainSubstring, "5 steps")
	test.That(t, out, test.ShouldContainSubstring, "[0.00, 60.00, 45.00, 36.00, 0.00]")

	_, err = PlanTable("bad", motionplan.Plan{zero[:2]}, chain, 1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWorkspaceReport(t *testing.T) {
	chain, err := kinematics.MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	samples, err := kinematics.SampleWorkspace(chain, kinematics.DefaultLimits(), 200, nil)
	test.That(t, err, test.ShouldBeNil)
	summary, err := kinematics.SummarizeWorkspace(samples)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, Workspace(summary), test.ShouldContainSubstring, "200 samples")
	var buf bytes.Buffer
	test.That(t, ReachHistogram(&buf, summary, 8), test.ShouldBeNil)
	test.That(t, buf.Len(), test.ShouldBeGreaterThan, 0)
}
