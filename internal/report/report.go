// Package report renders kinematic results as text tables for terminals and logs.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/armlab/dofbot/kinematics"
	"github.com/armlab/dofbot/motionplan"
	"github.com/armlab/dofbot/motionplan/ik"
	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/services/pickplace"
	"github.com/armlab/dofbot/spatialmath"
	"github.com/armlab/dofbot/utils"
)

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func vec(v r3.Vector) string {
	return fmt.Sprintf("X:%.5f, Y:%.5f, Z:%.5f", v.X, v.Y, v.Z)
}

func rpy(o spatialmath.Orientation) string {
	ea := o.EulerAngles()
	return fmt.Sprintf("Roll:%.2f, Pitch:%.2f, Yaw:%.2f",
		utils.RadToDeg(ea.Roll), utils.RadToDeg(ea.Pitch), utils.RadToDeg(ea.Yaw))
}

// Radians formats a configuration in radians.
func Radians(q []referenceframe.Input) string {
	return "[" + strings.Join(lo.Map(q, func(in referenceframe.Input, _ int) string {
		return fmt.Sprintf("%.4f", in.Value)
	}), ", ") + "]"
}

// Degrees formats a configuration in degrees.
func Degrees(q []referenceframe.Input) string {
	return "[" + strings.Join(lo.Map(q, func(in referenceframe.Input, _ int) string {
		return fmt.Sprintf("%.2f", utils.RadToDeg(in.Value))
	}), ", ") + "]"
}

// DHTable prints the modified DH parameters of a chain, lengths in meters and angles in degrees.
func DHTable(chain *kinematics.Chain) string {
	t := newTable(chain.Name())
	t.AppendHeader(table.Row{"Joint", "a", "alpha", "d", "offset", "min", "max"})
	for i, j := range chain.Joints() {
		t.AppendRow(table.Row{
			fmt.Sprintf("J%d", i+1),
			fmt.Sprintf("%.5f", j.A),
			fmt.Sprintf("%.1f", utils.RadToDeg(j.Alpha)),
			fmt.Sprintf("%.5f", j.D),
			fmt.Sprintf("%.1f", utils.RadToDeg(j.Offset)),
			fmt.Sprintf("%.1f", utils.RadToDeg(j.Limit.Min)),
			fmt.Sprintf("%.1f", utils.RadToDeg(j.Limit.Max)),
		})
	}
	return t.Render()
}

// Pose prints a pose as its homogeneous matrix.
func Pose(title string, p spatialmath.Pose) string {
	t := newTable(title)
	m := spatialmath.PoseToMatrix(p)
	for r := 0; r < 4; r++ {
		row := make(table.Row, 0, 4)
		for c := 0; c < 4; c++ {
			row = append(row, fmt.Sprintf("% .5f", m.At(r, c)))
		}
		t.AppendRow(row)
	}
	return t.Render()
}

// ForwardRow is one configuration and the pose it reaches.
type ForwardRow struct {
	Label         string
	Configuration []referenceframe.Input
	Pose          spatialmath.Pose
}

// ForwardTable prints configurations with their tool positions and orientations.
func ForwardTable(rows []ForwardRow) string {
	t := newTable("forward kinematics")
	t.AppendHeader(table.Row{"#", "Joints (deg)", "Position (m)", "Orientation (deg)"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Label, Degrees(r.Configuration), vec(r.Pose.Point()), rpy(r.Pose.Orientation())})
	}
	return t.Render()
}

// JointPoses prints the frame of every joint of a chain at a configuration.
func JointPoses(chain *kinematics.Chain, q []referenceframe.Input) (string, error) {
	poses, err := chain.JointPoses(q)
	if err != nil {
		return "", err
	}
	t := newTable("joint frames")
	t.AppendHeader(table.Row{"Joint", "Position (m)", "Orientation (deg)"})
	for i, p := range poses {
		t.AppendRow(table.Row{fmt.Sprintf("J%d", i+1), vec(p.Point()), rpy(p.Orientation())})
	}
	return t.Render(), nil
}

// PlanTable prints every nth step of a joint path with its tool position, always including the last step, and the
// total joint travel.
func PlanTable(title string, plan motionplan.Plan, f referenceframe.Frame, every int) (string, error) {
	poses, err := plan.Poses(f)
	if err != nil {
		return "", err
	}
	if every < 1 {
		every = 1
	}
	t := newTable(title)
	t.AppendHeader(table.Row{"Step", "Joints (deg)", "Position (m)"})
	for i, q := range plan {
		if i%every != 0 && i != len(plan)-1 {
			continue
		}
		t.AppendRow(table.Row{i, Degrees(q), vec(poses[i].Point())})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"travel", fmt.Sprintf("%.4f rad", plan.Evaluate()), fmt.Sprintf("%d steps", len(plan))})
	return t.Render(), nil
}

// InverseRow is the outcome of one inverse kinematics query. Err is set when the solver failed, in which case
// Solution may hold the best attempt.
type InverseRow struct {
	Label    string
	Solution *ik.Solution
	Err      error
}

// InverseTable prints inverse kinematics outcomes, marking failures explicitly.
func InverseTable(rows []InverseRow) string {
	t := newTable("inverse kinematics")
	t.AppendHeader(table.Row{"#", "Result", "Joints (rad)", "Pos err (m)", "Orient err (deg)", "Iterations"})
	for _, r := range rows {
		result := "ok"
		if r.Err != nil {
			result = "FAILED: " + r.Err.Error()
		}
		if r.Solution == nil {
			t.AppendRow(table.Row{r.Label, result, "-", "-", "-", "-"})
			continue
		}
		s := r.Solution
		t.AppendRow(table.Row{
			r.Label, result, Radians(s.Configuration),
			fmt.Sprintf("%.2e", s.PositionError),
			fmt.Sprintf("%.3f", utils.RadToDeg(s.OrientationError)),
			s.Iterations,
		})
	}
	return t.Render()
}

// Workspace prints the reach statistics of a workspace summary.
func Workspace(s *kinematics.WorkspaceSummary) string {
	t := newTable(fmt.Sprintf("workspace (%d samples)", s.Samples))
	t.AppendHeader(table.Row{"", "X", "Y", "Z"})
	for _, r := range []struct {
		name string
		v    r3.Vector
	}{{"min", s.Min}, {"max", s.Max}, {"mean", s.Mean}} {
		t.AppendRow(table.Row{r.name, fmt.Sprintf("%.5f", r.v.X), fmt.Sprintf("%.5f", r.v.Y), fmt.Sprintf("%.5f", r.v.Z)})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"reach max", fmt.Sprintf("%.5f", s.MaxReach), "", ""})
	t.AppendRow(table.Row{"reach mean", fmt.Sprintf("%.5f", s.MeanReach), "", ""})
	t.AppendRow(table.Row{"reach median", fmt.Sprintf("%.5f", s.MedianReach), "", ""})
	return t.Render()
}

// ReachHistogram writes a text histogram of the reach distribution.
func ReachHistogram(w io.Writer, s *kinematics.WorkspaceSummary, bins int) error {
	if bins < 1 {
		bins = 1
	}
	return histogram.Fprint(w, histogram.Hist(bins, s.Reach), histogram.Linear(40))
}

// Task prints the final state of a pick and place run.
func Task(status pickplace.Status) string {
	t := newTable("pick and place")
	t.AppendRow(table.Row{"state", status.State.String()})
	t.AppendRow(table.Row{"ticks", status.Ticks})
	t.AppendRow(table.Row{"skipped", status.Skipped})
	t.AppendRow(table.Row{"settled", status.Settled})
	t.AppendRow(table.Row{"complete", status.Complete})
	t.AppendRow(table.Row{"last joints (deg)", Degrees(status.Commanded)})
	return t.Render()
}
