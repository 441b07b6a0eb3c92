// Package motionplan turns joint-space targets into the dense paths fed to an arm, one
// configuration per control step.
package motionplan

import (
	"github.com/pkg/errors"

	"github.com/armlab/dofbot/referenceframe"
)

// ErrTooFewSteps is returned when a path is requested with fewer than two points.
var ErrTooFewSteps = errors.New("interpolation needs at least 2 steps")

// Interpolate returns count configurations evenly spaced from start to end. The first element equals start and the
// last equals end exactly.
func Interpolate(start, end []referenceframe.Input, count int) ([][]referenceframe.Input, error) {
	if count < 2 {
		return nil, errors.Wrapf(ErrTooFewSteps, "got %d", count)
	}
	if len(start) != len(end) {
		return nil, referenceframe.NewIncorrectDoFError(len(end), len(start))
	}
	path := make([][]referenceframe.Input, 0, count)
	path = append(path, referenceframe.CopyInputs(start))
	for i := 1; i < count-1; i++ {
		path = append(path, referenceframe.InterpolateInputs(start, end, float64(i)/float64(count-1)))
	}
	return append(path, referenceframe.CopyInputs(end)), nil
}

// ExpandWaypoints interpolates stepsPerSegment configurations between each consecutive pair of waypoints and joins
// the segments, keeping each junction once.
func ExpandWaypoints(waypoints [][]referenceframe.Input, stepsPerSegment int) ([][]referenceframe.Input, error) {
	switch len(waypoints) {
	case 0:
		return nil, nil
	case 1:
		return [][]referenceframe.Input{referenceframe.CopyInputs(waypoints[0])}, nil
	}
	path := make([][]referenceframe.Input, 0, (len(waypoints)-1)*(stepsPerSegment-1)+1)
	for i := 1; i < len(waypoints); i++ {
		segment, err := Interpolate(waypoints[i-1], waypoints[i], stepsPerSegment)
		if err != nil {
			return nil, errors.Wrapf(err, "segment %d", i)
		}
		if i > 1 {
			segment = segment[1:]
		}
		path = append(path, segment...)
	}
	return path, nil
}
