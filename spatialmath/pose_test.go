package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestPoseErrorVector(t *testing.T) {
	current := NewPose(r3.Vector{X: 0.1}, &R4AA{Theta: 0.2, RY: 1})
	goal := NewPose(r3.Vector{X: 0.1, Z: 0.05}, &R4AA{Theta: 0.5, RY: 1})
	e := PoseErrorVector(current, goal)
	test.That(t, len(e), test.ShouldEqual, 6)
	test.That(t, e[0], test.ShouldAlmostEqual, 0)
	test.That(t, e[2], test.ShouldAlmostEqual, 0.05)
	test.That(t, e[4], test.ShouldAlmostEqual, 0.3)

	same := PoseErrorVector(goal, goal)
	for _, v := range same {
		test.That(t, v, test.ShouldAlmostEqual, 0)
	}
}

func TestPoseMatrixRoundTrip(t *testing.T) {
	p := NewPose(r3.Vector{X: 0.2, Y: 0, Z: 0.2}, &R4AA{Theta: math.Pi / 3, RY: -1})
	m := PoseToMatrix(p)
	back, err := NewPoseFromMatrix(m)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, PoseAlmostEqual(p, back), test.ShouldBeTrue)

	// rounded hand-written targets are accepted and projected onto a rotation
	rounded := mat.NewDense(4, 4, []float64{
		-0.866, -0.25, -0.433, -0.03704,
		0.5, -0.433, -0.75, -0.06415,
		0.0, -0.866, 0.5, 0.3073,
		0, 0, 0, 1,
	})
	pr, err := NewPoseFromMatrix(rounded)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pr.Orientation().RotationMatrix().IsOrthonormal(1e-9), test.ShouldBeTrue)
	test.That(t, pr.Point().Z, test.ShouldAlmostEqual, 0.3073)

	_, err = NewPoseFromMatrix(mat.NewDense(3, 3, nil))
	test.That(t, err, test.ShouldNotBeNil)

	// a scaled block is not a rotation
	scaled := mat.DenseCopyOf(m)
	scaled.Set(0, 0, 2*m.At(0, 0))
	_, err = NewPoseFromMatrix(scaled)
	test.That(t, err, test.ShouldNotBeNil)

	bad := mat.DenseCopyOf(m)
	bad.Set(3, 0, 1)
	_, err = NewPoseFromMatrix(bad)
	test.That(t, err, test.ShouldNotBeNil)
}
