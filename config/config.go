// Package config defines the structures to configure a dofbot run: the kinematic model, the solver, the
// task, the simulated scene, workspace sampling and logging.
package config

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/armlab/dofbot/components/arm/fake"
	"github.com/armlab/dofbot/kinematics"
	"github.com/armlab/dofbot/logging"
	"github.com/armlab/dofbot/motionplan/ik"
	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/services/pickplace"
	rutils "github.com/armlab/dofbot/utils"
)

// Config describes a complete run.
type Config struct {
	ConfigFilePath string `json:"-"`

	Model     ModelConfig       `json:"model"`
	IK        *ik.Config        `json:"ik"`
	Task      *pickplace.Config `json:"task"`
	Scene     fake.Config       `json:"scene"`
	Workspace WorkspaceConfig   `json:"workspace"`
	Log       logging.Config    `json:"log"`
}

// ModelConfig selects the kinematic model. An empty File uses the compiled in dofbot table.
type ModelConfig struct {
	Name string `json:"name"`
	File string `json:"file,omitempty"`
}

// LimitConfig is a joint range in degrees.
type LimitConfig struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// WorkspaceConfig controls the workspace sampler.
type WorkspaceConfig struct {
	Samples int   `json:"samples"`
	Seed    int64 `json:"seed"`
	// Limits holds one range per joint. Empty uses kinematics.DefaultLimits.
	Limits []LimitConfig `json:"limits,omitempty"`
	// GridStepDeg enables an exhaustive traversal of joint space with the given step.
	GridStepDeg float64 `json:"grid_step_deg,omitempty"`
}

// NewDefaultConfig returns the settings of the simulated pick and place run.
func NewDefaultConfig() *Config {
	return &Config{
		Model:     ModelConfig{Name: "dofbot"},
		IK:        ik.NewDefaultConfig(),
		Task:      pickplace.NewDefaultConfig(),
		Scene:     fake.NewDefaultConfig(),
		Workspace: WorkspaceConfig{Samples: 10000, Seed: 1},
		Log:       logging.Config{Level: "info"},
	}
}

// Validate checks every section and returns all problems found.
func (c *Config) Validate() error {
	var err error
	if c.Model.Name == "" {
		multierr.AppendInto(&err, utils.NewConfigValidationFieldRequiredError("model", "name"))
	}
	if c.IK == nil {
		multierr.AppendInto(&err, utils.NewConfigValidationFieldRequiredError("", "ik"))
	} else {
		multierr.AppendInto(&err, c.IK.Validate("ik"))
	}
	if c.Task == nil {
		multierr.AppendInto(&err, utils.NewConfigValidationFieldRequiredError("", "task"))
	} else {
		multierr.AppendInto(&err, c.Task.Validate("task"))
	}
	multierr.AppendInto(&err, c.Scene.Validate("scene"))
	multierr.AppendInto(&err, c.Workspace.Validate("workspace"))
	multierr.AppendInto(&err, c.Log.Validate("log"))
	return err
}

// Chain builds the configured kinematic model.
func (m ModelConfig) Chain() (*kinematics.Chain, error) {
	if m.File == "" {
		chain, err := kinematics.MakeDofbotChain()
		if err != nil || m.Name == "" || m.Name == chain.Name() {
			return chain, err
		}
		return kinematics.NewChain(m.Name, chain.Joints())
	}
	return kinematics.ParseChainJSONFile(m.File, m.Name)
}

// Validate ensures all parts of the config are valid.
func (w *WorkspaceConfig) Validate(path string) error {
	if w.Samples < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("samples cannot be negative, got %d", w.Samples))
	}
	if w.GridStepDeg < 0 || math.IsNaN(w.GridStepDeg) {
		return utils.NewConfigValidationError(path, errors.New("grid_step_deg must be positive"))
	}
	if len(w.Limits) == 0 {
		return nil
	}
	if len(w.Limits) != kinematics.NumJoints {
		return utils.NewConfigValidationError(path,
			errors.Errorf("limits needs %d entries, got %d", kinematics.NumJoints, len(w.Limits)))
	}
	if err := referenceframe.ValidateLimits(w.JointLimits()); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// JointLimits returns the sampling limits in radians.
func (w *WorkspaceConfig) JointLimits() []referenceframe.Limit {
	if len(w.Limits) == 0 {
		return kinematics.DefaultLimits()
	}
	limits := make([]referenceframe.Limit, 0, len(w.Limits))
	for _, l := range w.Limits {
		limits = append(limits, referenceframe.Limit{Min: rutils.DegToRad(l.Min), Max: rutils.DegToRad(l.Max)})
	}
	return limits
}
