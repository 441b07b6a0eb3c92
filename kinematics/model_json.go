package kinematics

import (
	// for embedding model file.
	_ "embed"
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/utils"
)

//go:embed dofbot.json
var dofbotJSON []byte

// ErrNoModelInformation is used when there is no model information.
var ErrNoModelInformation = errors.New("no model information")

// ModelConfigJSON represents all supported fields in a kinematics JSON file.
type ModelConfigJSON struct {
	Name         string          `json:"name"`
	KinParamType string          `json:"kinematic_param_type,omitempty"`
	DHParams     []DHParamConfig `json:"dhParams"`
}

// DHParamConfig is one row of a modified DH table. Lengths are in meters, angles in degrees.
type DHParamConfig struct {
	ID     string  `json:"id"`
	Parent string  `json:"parent"`
	A      float64 `json:"a"`
	Alpha  float64 `json:"alpha"`
	D      float64 `json:"d"`
	Offset float64 `json:"offset"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ToJoint converts the row to a Joint in radians.
func (cfg DHParamConfig) ToJoint() Joint {
	return Joint{
		A:      cfg.A,
		Alpha:  utils.DegToRad(cfg.Alpha),
		D:      cfg.D,
		Offset: utils.DegToRad(cfg.Offset),
		Limit:  referenceframe.Limit{Min: utils.DegToRad(cfg.Min), Max: utils.DegToRad(cfg.Max)},
	}
}

// ParseConfig converts the config into a Chain named modelName, or the config's own name when modelName is empty.
// Rows may appear in any order; they are chained by their parent ids starting from "world".
func (cfg *ModelConfigJSON) ParseConfig(modelName string) (*Chain, error) {
	if modelName == "" {
		modelName = cfg.Name
	}
	if cfg.KinParamType != "" && cfg.KinParamType != "DH" {
		return nil, errors.Errorf("unsupported param type: %s, only DH is supported", cfg.KinParamType)
	}

	byParent := map[string]DHParamConfig{}
	for _, dh := range cfg.DHParams {
		if dh.ID == "" {
			return nil, errors.New("dh param is missing an id")
		}
		if _, ok := byParent[dh.Parent]; ok {
			return nil, errors.Errorf("more than one joint has parent %q, chain must be serial", dh.Parent)
		}
		byParent[dh.Parent] = dh
	}

	joints := make([]Joint, 0, len(cfg.DHParams))
	parent := "world"
	for range cfg.DHParams {
		dh, ok := byParent[parent]
		if !ok {
			return nil, errors.Errorf("no joint attached to %q", parent)
		}
		joints = append(joints, dh.ToJoint())
		parent = dh.ID
	}
	return NewChain(modelName, joints)
}

// ParseChainJSON will parse the given JSON data into a chain.
func ParseChainJSON(jsonData []byte, modelName string) (*Chain, error) {
	if len(jsonData) == 0 {
		return nil, ErrNoModelInformation
	}
	cfg := &ModelConfigJSON{}
	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal json file")
	}
	return cfg.ParseConfig(modelName)
}

// ParseChainJSONFile will read a given file and then parse the contained JSON data.
func ParseChainJSONFile(filename, modelName string) (*Chain, error) {
	//nolint:gosec
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read json file")
	}
	return ParseChainJSON(jsonData, modelName)
}

// MakeDofbotChain returns the kinematic model of the yahboom dofbot.
func MakeDofbotChain() (*Chain, error) {
	return ParseChainJSON(dofbotJSON, "")
}

// DefaultLimits returns the joint ranges swept by the workspace sampler: the base turns a full
// revolution and the other joints sweep half of one.
func DefaultLimits() []referenceframe.Limit {
	return []referenceframe.Limit{
		{Min: -math.Pi, Max: math.Pi},
		{Min: 0, Max: math.Pi},
		{Min: 0, Max: math.Pi},
		{Min: 0, Max: math.Pi},
		{Min: 0, Max: math.Pi},
	}
}

// DemoConfigurations are the joint configurations used to check forward kinematics by hand.
var DemoConfigurations = [][]referenceframe.Input{
	referenceframe.FloatsToInputs([]float64{0, math.Pi / 3, math.Pi / 4, math.Pi / 5, 0}),
	referenceframe.FloatsToInputs([]float64{math.Pi / 2, math.Pi / 5, math.Pi / 5, math.Pi / 5, math.Pi}),
	referenceframe.FloatsToInputs([]float64{math.Pi / 3, math.Pi / 4, -math.Pi / 3, -math.Pi / 4, math.Pi / 2}),
	referenceframe.FloatsToInputs([]float64{-math.Pi / 2, math.Pi / 3, -math.Pi * 2 / 3, math.Pi / 3, math.Pi / 3}),
}
