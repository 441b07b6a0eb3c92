package kinematics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/armlab/dofbot/referenceframe"
)

func TestSampleWorkspace(t *testing.T) {
	chain, err := MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	limits := DefaultLimits()

	//nolint:gosec
	samples, err := SampleWorkspace(chain, limits, 2000, rand.New(rand.NewSource(3)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(samples), test.ShouldEqual, 2000)

	// arm length is the sum of the link offsets
	const reach = 0.1045 + 0.08285 + 0.08285 + 0.12842
	for _, s := range samples {
		test.That(t, referenceframe.InputsWithinLimits(s.Configuration, limits), test.ShouldBeNil)
		test.That(t, s.Position.Norm(), test.ShouldBeLessThanOrEqualTo, reach+1e-9)
		pose, err := chain.ForwardKinematics(s.Configuration)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.Point(), test.ShouldResemble, s.Position)
	}

	summary, err := SummarizeWorkspace(samples)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Samples, test.ShouldEqual, 2000)
	test.That(t, summary.MaxReach, test.ShouldBeLessThanOrEqualTo, reach+1e-9)
	test.That(t, summary.MedianReach, test.ShouldBeLessThanOrEqualTo, summary.MaxReach)
	test.That(t, summary.MeanReach, test.ShouldBeGreaterThan, 0)
	test.That(t, summary.Min.X, test.ShouldBeLessThan, summary.Mean.X)
	test.That(t, summary.Max.Z, test.ShouldBeGreaterThan, summary.Mean.Z)
	test.That(t, len(summary.Reach), test.ShouldEqual, 2000)

	// same seed, same samples
	//nolint:gosec
	again, err := SampleWorkspace(chain, limits, 2000, rand.New(rand.NewSource(3)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again[1999].Position, test.ShouldResemble, samples[1999].Position)
}

func TestSampleWorkspaceErrors(t *testing.T) {
	chain, err := MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)

	_, err = SampleWorkspace(chain, DefaultLimits()[:3], 10, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = SampleWorkspace(chain, DefaultLimits(), -1, nil)
	test.That(t, err, test.ShouldNotBeNil)

	samples, err := SampleWorkspace(chain, DefaultLimits(), 0, nil)
	test.That(t, err, test.ShouldBeNil)
	_, err = SummarizeWorkspace(samples)
	test.That(t, errors.Is(err, ErrNoSamples), test.ShouldBeTrue)
}

func TestTraverseWorkspace(t *testing.T) {
	chain, err := MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	limits := []referenceframe.Limit{
		{Min: -math.Pi, Max: math.Pi},
		{Min: 0, Max: math.Pi},
		{Min: 0, Max: 1},
		{Min: 0, Max: 0},
		{Min: 0, Max: 0},
	}
	samples, err := TraverseWorkspace(chain, limits, math.Pi/2)
	test.That(t, err, test.ShouldBeNil)
	// 5 base steps, 3 shoulder steps, elbow at 0 and at its upper end
	test.That(t, len(samples), test.ShouldEqual, 5*3*2)
	test.That(t, samples[0].Configuration[0].Value, test.ShouldEqual, -math.Pi)
	test.That(t, samples[len(samples)-1].Configuration[0].Value, test.ShouldEqual, math.Pi)
	test.That(t, samples[1].Configuration[2].Value, test.ShouldEqual, 1)
	for _, s := range samples {
		test.That(t, referenceframe.InputsWithinLimits(s.Configuration, limits), test.ShouldBeNil)
	}

	_, err = TraverseWorkspace(chain, limits, 0)
	test.That(t, err, test.ShouldNotBeNil)
	limits[1].Max = math.Inf(1)
	_, err = TraverseWorkspace(chain, limits, 0.1)
	test.That(t, err, test.ShouldNotBeNil)

	// a single point is still summarized
	summary, err := SummarizeWorkspace(samples[:1])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Min, test.ShouldResemble, summary.Max)
	test.That(t, summary.Mean, test.ShouldResemble, r3.Vector{X: samples[0].Position.X, Y: samples[0].Position.Y, Z: samples[0].Position.Z})
}
