package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"github.com/armlab/dofbot/kinematics"
)

const yamlConfig = `
model:
  name: arm1
ik:
  max_iterations: 250
  restarts: 2
task:
  pre_grasp_ticks: 10
  pre_grasp_offset: {x: -0.01, y: -0.01, z: 0.05}
scene:
  target: {x: 0.1, y: 0.2, z: 0.015}
workspace:
  samples: 500
  limits:
    - {min: -90, max: 90}
    - {min: 0, max: 180}
    - {min: 0, max: 180}
    - {min: 0, max: 180}
    - {min: 0, max: 180}
log:
  level: debug
`

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.Workspace.Samples, test.ShouldEqual, 10000)
	test.That(t, cfg.Workspace.JointLimits(), test.ShouldResemble, kinematics.DefaultLimits())

	chain, err := cfg.Model.Chain()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain.Name(), test.ShouldEqual, "dofbot")
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(yamlConfig), FormatYAML)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Model.Name, test.ShouldEqual, "arm1")
	test.That(t, cfg.IK.MaxIterations, test.ShouldEqual, 250)
	test.That(t, cfg.IK.Restarts, test.ShouldEqual, 2)
	// unset keys keep their defaults
	test.That(t, cfg.IK.Tolerance, test.ShouldEqual, 1e-8)
	test.That(t, cfg.Task.PreGraspTicks, test.ShouldEqual, 10)
	test.That(t, cfg.Task.GraspTicks, test.ShouldEqual, 1200)
	test.That(t, cfg.Task.PreGraspOffset.Z, test.ShouldEqual, 0.05)
	test.That(t, cfg.Scene.Target.Y, test.ShouldEqual, 0.2)
	test.That(t, cfg.Scene.GrabRadius, test.ShouldBeGreaterThan, 0)
	test.That(t, cfg.Log.Level, test.ShouldEqual, "debug")

	limits := cfg.Workspace.JointLimits()
	test.That(t, len(limits), test.ShouldEqual, 5)
	test.That(t, limits[1].Max, test.ShouldAlmostEqual, 3.141592653589793)

	chain, err := cfg.Model.Chain()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain.Name(), test.ShouldEqual, "arm1")
}

func TestFromJSONFile(t *testing.T) {
	t.Setenv("DOFBOT_SAMPLES", "42")
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	err := os.WriteFile(path, []byte(`{"workspace": {"samples": ${DOFBOT_SAMPLES}}, "task": {"max_ticks": 100}}`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Workspace.Samples, test.ShouldEqual, 42)
	test.That(t, cfg.Task.MaxTicks, test.ShouldEqual, 100)

	_, err = Read(filepath.Join(dir, "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, FormatFromPath("a/b.YML"), test.ShouldEqual, FormatYAML)
	test.That(t, FormatFromPath("a/b.json"), test.ShouldEqual, FormatJSON)
}

func TestRejectsBadConfigs(t *testing.T) {
	_, err := FromBytes([]byte(`{"ik": {"max_iteration": 3}}`), FormatJSON)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_iteration")

	_, err = FromBytes([]byte(`{"model": `), FormatJSON)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromBytes([]byte("workspace:\n  limits:\n    - {min: 0, max: 1}\n"), FormatYAML)
	test.That(t, err, test.ShouldNotBeNil)

	// every invalid section is reported
	cfg := NewDefaultConfig()
	cfg.Model.Name = ""
	cfg.IK.MaxIterations = 0
	cfg.Task.SetTicks = 0
	cfg.Log.Level = "loud"
	err = cfg.Validate()
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 4)

	cfg = NewDefaultConfig()
	cfg.IK = nil
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}

func TestModelFile(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Model.File = filepath.Join("..", "kinematics", "dofbot.json")
	chain, err := cfg.Model.Chain()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain.Name(), test.ShouldEqual, "dofbot")
	test.That(t, len(chain.DoF()), test.ShouldEqual, kinematics.NumJoints)
}
