package pickplace

import (
	"github.com/golang/geo/r3"
)

// MotionState is a phase of the pick and place task.
type MotionState int

// The task phases, in the only order they can occur.
const (
	PreGrasp MotionState = iota
	Grasp
	Move
	Set
)

func (s MotionState) String() string {
	switch s {
	case PreGrasp:
		return "PRE_GRASP"
	case Grasp:
		return "GRASP"
	case Move:
		return "MOVE"
	case Set:
		return "SET"
	default:
		return "UNKNOWN"
	}
}

// Transition returns the state following state once it has been held for dwell ticks, and whether the dwell of
// state is used up. Set has no successor: it reports true and stays in Set.
func Transition(state MotionState, dwell int, cfg *Config) (MotionState, bool) {
	if dwell < cfg.dwellFor(state) {
		return state, false
	}
	if state == Set {
		return Set, true
	}
	return state + 1, true
}

// PhaseTarget is the tool position and gripper command for a tick.
type PhaseTarget struct {
	Position r3.Vector
	Gripper  float64
}

// TargetFor computes where the tool goes during the given tick of a state. object is the live object position,
// pickSite where the object was grasped and target the drop spot.
func TargetFor(state MotionState, dwell int, object, pickSite, target r3.Vector, cfg *Config) PhaseTarget {
	up := func(p r3.Vector, h float64) r3.Vector { return r3.Vector{X: p.X, Y: p.Y, Z: p.Z + h} }
	switch state {
	case PreGrasp:
		return PhaseTarget{object.Add(cfg.PreGraspOffset), cfg.GripperOpen}
	case Grasp:
		return PhaseTarget{up(object, cfg.GraspHeight), cfg.GripperClose}
	case Move:
		// lift straight up, then carry over the target
		if dwell < cfg.MoveTicks/2 {
			return PhaseTarget{up(pickSite, cfg.CarryHeight), cfg.GripperClose}
		}
		return PhaseTarget{up(target, cfg.CarryHeight), cfg.GripperClose}
	default:
		if dwell < cfg.SetTicks/2 {
			return PhaseTarget{up(target, cfg.PrePlaceHeight), cfg.GripperClose}
		}
		return PhaseTarget{up(target, cfg.PlaceHeight), cfg.GripperOpen}
	}
}
