package pickplace

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Config holds the task geometry, the dwell of every state and the loop bounds. Heights are offsets in meters
// added to the z of the object or target position.
type Config struct {
	PreGraspTicks int `json:"pre_grasp_ticks"`
	GraspTicks    int `json:"grasp_ticks"`
	MoveTicks     int `json:"move_ticks"`
	SetTicks      int `json:"set_ticks"`

	// PreGraspOffset is added to the object position while approaching it.
	PreGraspOffset r3.Vector `json:"pre_grasp_offset"`
	GraspHeight    float64   `json:"grasp_height"`
	CarryHeight    float64   `json:"carry_height"`
	PrePlaceHeight float64   `json:"pre_place_height"`
	PlaceHeight    float64   `json:"place_height"`

	// Gripper commands, in whatever unit the actuator takes.
	GripperOpen  float64 `json:"gripper_open"`
	GripperClose float64 `json:"gripper_close"`

	// MaxTicks bounds Run. Zero means no bound.
	MaxTicks int `json:"max_ticks"`
	// TickPeriodMs paces Run. Zero runs ticks back to back.
	TickPeriodMs int `json:"tick_period_ms"`
}

// NewDefaultConfig returns the settings used in simulation, gripper angles in radians.
func NewDefaultConfig() *Config {
	return &Config{
		PreGraspTicks:  1800,
		GraspTicks:     1200,
		MoveTicks:      2000,
		SetTicks:       1000,
		PreGraspOffset: r3.Vector{X: -0.015, Y: -0.015, Z: 0.045},
		GraspHeight:    0.025,
		CarryHeight:    0.145,
		PrePlaceHeight: 0.045 * 0.8,
		PlaceHeight:    0.025,
		GripperOpen:    20 * math.Pi / 180,
		GripperClose:   -20 * math.Pi / 180,
		MaxTicks:       20000,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	for name, n := range map[string]int{
		"pre_grasp_ticks": cfg.PreGraspTicks,
		"grasp_ticks":     cfg.GraspTicks,
		"move_ticks":      cfg.MoveTicks,
		"set_ticks":       cfg.SetTicks,
	} {
		if n < 1 {
			return utils.NewConfigValidationFieldRequiredError(path, name)
		}
	}
	if cfg.MaxTicks < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_ticks cannot be negative, got %d", cfg.MaxTicks))
	}
	if cfg.TickPeriodMs < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("tick_period_ms cannot be negative, got %d", cfg.TickPeriodMs))
	}
	if cfg.GripperOpen == cfg.GripperClose {
		return utils.NewConfigValidationError(path, errors.New("gripper_open and gripper_close must differ"))
	}
	return nil
}

// TickPeriod returns the pacing of Run.
func (cfg *Config) TickPeriod() time.Duration {
	return time.Duration(cfg.TickPeriodMs) * time.Millisecond
}

// TotalTicks is the number of ticks from the start of the task to the end of the Set dwell.
func (cfg *Config) TotalTicks() int {
	return cfg.PreGraspTicks + cfg.GraspTicks + cfg.MoveTicks + cfg.SetTicks
}

func (cfg *Config) dwellFor(state MotionState) int {
	switch state {
	case PreGrasp:
		return cfg.PreGraspTicks
	case Grasp:
		return cfg.GraspTicks
	case Move:
		return cfg.MoveTicks
	case Set:
		return cfg.SetTicks
	default:
		return 0
	}
}
