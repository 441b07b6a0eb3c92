package kinematics

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/utils"
)

// ErrNoSamples is returned when a workspace summary is requested over zero samples.
var ErrNoSamples = errors.New("workspace has no samples")

// WorkspaceSample is a joint configuration together with the tool position it reaches.
type WorkspaceSample struct {
	Configuration []referenceframe.Input
	Position      r3.Vector
}

// WorkspaceSummary holds the reach statistics of a set of workspace samples.
type WorkspaceSummary struct {
	Samples     int
	Min         r3.Vector
	Max         r3.Vector
	Mean        r3.Vector
	MaxReach    float64
	MeanReach   float64
	MedianReach float64
	// Reach lists the distance of every sample from the base origin, in sample order.
	Reach []float64
}

// SampleWorkspace draws sampleCount configurations uniformly within limits and records the tool position of each.
// A nil rng uses a fixed seed.
func SampleWorkspace(chain *Chain, limits []referenceframe.Limit, sampleCount int, rng *rand.Rand) ([]WorkspaceSample, error) {
	if sampleCount < 0 {
		return nil, errors.Errorf("sample count cannot be negative, got %d", sampleCount)
	}
	if err := checkLimits(chain, limits); err != nil {
		return nil, err
	}
	if rng == nil {
		//nolint:gosec
		rng = rand.New(rand.NewSource(1))
	}

	configs := make([][]referenceframe.Input, 0, sampleCount)
	for i := 0; i < sampleCount; i++ {
		configs = append(configs, referenceframe.RandomInputs(limits, rng))
	}
	return evaluate(chain, configs)
}

// TraverseWorkspace walks a regular grid over the joint limits with the given step in radians, visiting
// both ends of every range.
func TraverseWorkspace(chain *Chain, limits []referenceframe.Limit, step float64) ([]WorkspaceSample, error) {
	if step <= 0 || math.IsNaN(step) {
		return nil, errors.Errorf("traversal step must be positive, got %v", step)
	}
	if err := checkLimits(chain, limits); err != nil {
		return nil, err
	}

	axes := make([][]float64, len(limits))
	for i, lim := range limits {
		if math.IsInf(lim.Min, 0) || math.IsInf(lim.Max, 0) {
			return nil, errors.Errorf("cannot traverse unbounded joint %d", i)
		}
		n := int(math.Floor((lim.Max-lim.Min)/step)) + 1
		for k := 0; k < n; k++ {
			axes[i] = append(axes[i], math.Min(lim.Min+float64(k)*step, lim.Max))
		}
		if axes[i][n-1] < lim.Max {
			axes[i] = append(axes[i], lim.Max)
		}
	}

	var configs [][]referenceframe.Input
	idx := make([]int, len(axes))
	for {
		q := make([]referenceframe.Input, len(axes))
		for i, k := range idx {
			q[i] = referenceframe.Input{Value: axes[i][k]}
		}
		configs = append(configs, q)

		// odometer increment, last joint fastest
		j := len(idx) - 1
		for ; j >= 0; j-- {
			idx[j]++
			if idx[j] < len(axes[j]) {
				break
			}
			idx[j] = 0
		}
		if j < 0 {
			return evaluate(chain, configs)
		}
	}
}

// evaluate runs forward kinematics over configs in parallel, keeping their order.
func evaluate(chain *Chain, configs [][]referenceframe.Input) ([]WorkspaceSample, error) {
	samples := make([]WorkspaceSample, len(configs))
	var (
		mu      sync.Mutex
		evalErr error
	)
	err := utils.GroupWorkParallel(
		context.Background(),
		len(configs),
		nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				pose, err := chain.ForwardKinematics(configs[workNum])
				if err != nil {
					mu.Lock()
					evalErr = multierr.Append(evalErr, err)
					mu.Unlock()
					return
				}
				samples[workNum] = WorkspaceSample{Configuration: configs[workNum], Position: pose.Point()}
			}, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if evalErr != nil {
		return nil, evalErr
	}
	return samples, nil
}

// SummarizeWorkspace computes per-axis bounds and means together with reach statistics.
func SummarizeWorkspace(samples []WorkspaceSample) (*WorkspaceSummary, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	xs := make(stats.Float64Data, 0, len(samples))
	ys := make(stats.Float64Data, 0, len(samples))
	zs := make(stats.Float64Data, 0, len(samples))
	reach := make(stats.Float64Data, 0, len(samples))
	for _, s := range samples {
		xs = append(xs, s.Position.X)
		ys = append(ys, s.Position.Y)
		zs = append(zs, s.Position.Z)
		reach = append(reach, s.Position.Norm())
	}

	summary := &WorkspaceSummary{Samples: len(samples), Reach: reach}
	var err error
	if summary.Min, err = axisStat(stats.Min, xs, ys, zs); err != nil {
		return nil, err
	}
	if summary.Max, err = axisStat(stats.Max, xs, ys, zs); err != nil {
		return nil, err
	}
	if summary.Mean, err = axisStat(stats.Mean, xs, ys, zs); err != nil {
		return nil, err
	}
	if summary.MaxReach, err = reach.Max(); err != nil {
		return nil, err
	}
	if summary.MeanReach, err = reach.Mean(); err != nil {
		return nil, err
	}
	if summary.MedianReach, err = reach.Median(); err != nil {
		return nil, err
	}
	return summary, nil
}

func axisStat(f func(stats.Float64Data) (float64, error), xs, ys, zs stats.Float64Data) (r3.Vector, error) {
	x, err := f(xs)
	if err != nil {
		return r3.Vector{}, err
	}
	y, err := f(ys)
	if err != nil {
		return r3.Vector{}, err
	}
	z, err := f(zs)
	if err != nil {
		return r3.Vector{}, err
	}
	return r3.Vector{X: x, Y: y, Z: z}, nil
}

func checkLimits(chain *Chain, limits []referenceframe.Limit) error {
	if len(limits) != len(chain.DoF()) {
		return referenceframe.NewIncorrectDoFError(len(limits), len(chain.DoF()))
	}
	return referenceframe.ValidateLimits(limits)
}
