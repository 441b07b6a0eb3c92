package kinematics

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/spatialmath"
)

func TestDofbotTable(t *testing.T) {
	chain, err := MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain.Name(), test.ShouldEqual, "dofbot")

	joints := chain.Joints()
	test.That(t, len(joints), test.ShouldEqual, NumJoints)
	expA := []float64{0, 0, 0.08285, 0.08285, 0}
	expAlpha := []float64{0, -math.Pi / 2, 0, 0, math.Pi / 2}
	expD := []float64{0.1045, 0, 0, 0, 0.12842}
	expOffset := []float64{0, -math.Pi / 2, 0, math.Pi / 2, 0}
	for i, j := range joints {
		test.That(t, j.A, test.ShouldAlmostEqual, expA[i])
		test.That(t, j.Alpha, test.ShouldAlmostEqual, expAlpha[i])
		test.That(t, j.D, test.ShouldAlmostEqual, expD[i])
		test.That(t, j.Offset, test.ShouldAlmostEqual, expOffset[i])
	}

	// the returned joints are a copy
	joints[0].D = 10
	test.That(t, chain.Joints()[0].D, test.ShouldAlmostEqual, 0.1045)
}

func TestZeroConfiguration(t *testing.T) {
	chain, err := MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)

	pose, err := chain.ForwardKinematics(make([]referenceframe.Input, NumJoints))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PointAlmostEqual(pose.Point(), r3.Vector{X: 0, Y: 0, Z: 0.39862}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.OrientationAlmostEqualEps(pose.Orientation(), spatialmath.NewIdentityRotationMatrix(), 1e-9),
		test.ShouldBeTrue)
}

func TestForwardKinematicsRepeatable(t *testing.T) {
	chain, err := MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)

	for _, q := range DemoConfigurations {
		first, err := chain.ForwardKinematics(q)
		test.That(t, err, test.ShouldBeNil)
		second, err := chain.Transform(q)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, first.Point(), test.ShouldResemble, second.Point())
		test.That(t, first.Orientation().RotationMatrix(), test.ShouldResemble, second.Orientation().RotationMatrix())
		test.That(t, first.Orientation().RotationMatrix().IsOrthonormal(1e-9), test.ShouldBeTrue)
	}

	// the base joint only spins the tool about z
	q := referenceframe.FloatsToInputs([]float64{0, math.Pi / 3, math.Pi / 4, math.Pi / 5, 0})
	p0, err := chain.ForwardKinematics(q)
	test.That(t, err, test.ShouldBeNil)
	q[0].Value = math.Pi / 2
	p1, err := chain.ForwardKinematics(q)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p1.Point().Z, test.ShouldAlmostEqual, p0.Point().Z)
	test.That(t, math.Hypot(p1.Point().X, p1.Point().Y), test.ShouldAlmostEqual, math.Hypot(p0.Point().X, p0.Point().Y))
}

func TestForwardKinematicsDoFMismatch(t *testing.T) {
	chain, err := MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	_, err = chain.ForwardKinematics(make([]referenceframe.Input, 4))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected 5 but got 4")
	_, err = chain.Jacobian(nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = chain.JointPoses(make([]referenceframe.Input, 6))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestJointPoses(t *testing.T) {
	chain, err := MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	q := DemoConfigurations[2]
	poses, err := chain.JointPoses(q)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(poses), test.ShouldEqual, NumJoints)
	tool, err := chain.ForwardKinematics(q)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(poses[NumJoints-1], tool), test.ShouldBeTrue)
	test.That(t, poses[0].Point().Z, test.ShouldAlmostEqual, 0.1045)
}

func TestJacobianMatchesFiniteDifference(t *testing.T) {
	chain, err := MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	//nolint:gosec
	rSeed := rand.New(rand.NewSource(7))
	const h = 1e-6

	for n := 0; n < 20; n++ {
		q := referenceframe.RandomInputs(chain.DoF(), rSeed)
		jac, err := chain.Jacobian(q)
		test.That(t, err, test.ShouldBeNil)
		rows, cols := jac.Dims()
		test.That(t, rows, test.ShouldEqual, 6)
		test.That(t, cols, test.ShouldEqual, NumJoints)

		base, err := chain.ForwardKinematics(q)
		test.That(t, err, test.ShouldBeNil)
		for i := range q {
			stepped := referenceframe.CopyInputs(q)
			stepped[i].Value += h
			next, err := chain.ForwardKinematics(stepped)
			test.That(t, err, test.ShouldBeNil)
			numeric := spatialmath.PoseErrorVector(base, next)
			for r := 0; r < 6; r++ {
				test.That(t, numeric[r]/h, test.ShouldAlmostEqual, jac.At(r, i), 1e-4)
			}
		}
	}
}

func TestNewChain(t *testing.T) {
	_, err := NewChain("short", make([]Joint, 4))
	test.That(t, errors.Is(err, ErrJointCount), test.ShouldBeTrue)

	joints := make([]Joint, NumJoints)
	joints[2].Limit = referenceframe.Limit{Min: 1, Max: -1}
	_, err = NewChain("bad", joints)
	test.That(t, err, test.ShouldNotBeNil)

	joints[2].Limit = referenceframe.Limit{}
	chain, err := NewChain("flat", joints)
	test.That(t, err, test.ShouldBeNil)
	joints[0].D = 3
	pose, err := chain.ForwardKinematics(make([]referenceframe.Input, NumJoints))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point(), test.ShouldResemble, r3.Vector{})
}

func TestParseChainJSON(t *testing.T) {
	_, err := ParseChainJSON(nil, "")
	test.That(t, errors.Is(err, ErrNoModelInformation), test.ShouldBeTrue)

	_, err = ParseChainJSON([]byte("{"), "")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParseChainJSON([]byte(`{"name": "x", "kinematic_param_type": "SVA"}`), "")
	test.That(t, err, test.ShouldNotBeNil)

	// rows listed out of order are chained by parent
	shuffled := `{"name": "shuffled", "dhParams": [
		{"id": "j3", "parent": "j2", "a": 0.08285},
		{"id": "j5", "parent": "j4", "alpha": 90, "d": 0.12842},
		{"id": "j1", "parent": "world", "d": 0.1045, "min": -180, "max": 180},
		{"id": "j4", "parent": "j3", "a": 0.08285, "offset": 90},
		{"id": "j2", "parent": "j1", "alpha": -90, "offset": -90}
	]}`
	chain, err := ParseChainJSON([]byte(shuffled), "renamed")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain.Name(), test.ShouldEqual, "renamed")
	test.That(t, chain.DoF()[0].Max, test.ShouldAlmostEqual, math.Pi)
	pose, err := chain.ForwardKinematics(make([]referenceframe.Input, NumJoints))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point().Z, test.ShouldAlmostEqual, 0.39862)

	broken := `{"dhParams": [{"id": "j1", "parent": "base"}]}`
	_, err = ParseChainJSON([]byte(broken), "")
	test.That(t, err, test.ShouldNotBeNil)

	file := filepath.Join(t.TempDir(), "arm.json")
	test.That(t, os.WriteFile(file, []byte(shuffled), 0o600), test.ShouldBeNil)
	fromFile, err := ParseChainJSONFile(file, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromFile.Name(), test.ShouldEqual, "shuffled")
	_, err = ParseChainJSONFile(filepath.Join(t.TempDir(), "missing.json"), "")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestJacobianZeroConfiguration(t *testing.T) {
	chain, err := MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	jac, err := chain.Jacobian(make([]referenceframe.Input, NumJoints))
	test.That(t, err, test.ShouldBeNil)

	// upright arm: the base and wrist roll axes are vertical and pass through the tool
	for _, col := range []int{0, 4} {
		test.That(t, jac.At(5, col), test.ShouldAlmostEqual, 1)
		test.That(t, mat.Norm(jac.Slice(0, 3, col, col+1), 2), test.ShouldAlmostEqual, 0)
	}
}
