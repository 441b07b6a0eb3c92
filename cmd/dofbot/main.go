// Package main is the dofbot command line tool. It evaluates kinematics and runs the simulated pick and
// place task from a config file.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/armlab/dofbot/components/arm/fake"
	"github.com/armlab/dofbot/config"
	"github.com/armlab/dofbot/internal/report"
	"github.com/armlab/dofbot/kinematics"
	"github.com/armlab/dofbot/logging"
	"github.com/armlab/dofbot/motionplan"
	"github.com/armlab/dofbot/motionplan/ik"
	"github.com/armlab/dofbot/referenceframe"
	"github.com/armlab/dofbot/services/pickplace"
	"github.com/armlab/dofbot/utils"
)

const (
	flagConfig  = "config"
	flagX       = "x"
	flagY       = "y"
	flagZ       = "z"
	flagSamples = "samples"
	flagGrid    = "grid-step"
	flagName    = "name"
	flagEvery   = "every"

	scriptGrasp     = "grasp"
	scriptPickPlace = "pickplace"
)

var app = &cli.App{
	Name:  "dofbot",
	Usage: "kinematics and pick and place for the dofbot arm",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "JSON or YAML config file, - reads YAML from stdin, defaults are used when unset",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "dh",
			Usage:     "print the DH table of the configured model",
			UsageText: "dofbot dh",
			Action:    DHAction,
		},
		{
			Name:      "fk",
			Usage:     "forward kinematics of a configuration in degrees, or of the demo configurations",
			UsageText: "dofbot fk [j1 j2 j3 j4 j5]",
			Action:    ForwardAction,
		},
		{
			Name:      "ik",
			Usage:     "solve for a tool position in meters",
			UsageText: "dofbot ik --x <x> --y <y> --z <z>",
			Flags: []cli.Flag{
				&cli.Float64Flag{Name: flagX, Required: true},
				&cli.Float64Flag{Name: flagY, Required: true},
				&cli.Float64Flag{Name: flagZ, Required: true},
			},
			Action: InverseAction,
		},
		{
			Name:      "workspace",
			Usage:     "sample the reachable workspace",
			UsageText: "dofbot workspace [--samples <n>] [--grid-step <degrees>]",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: flagSamples, Usage: "override the configured sample count"},
				&cli.Float64Flag{Name: flagGrid, Usage: "traverse joint space on a grid instead of sampling"},
			},
			Action: WorkspaceAction,
		},
		{
			Name:      "pickplace",
			Usage:     "run the pick and place state machine against the simulator",
			UsageText: "dofbot pickplace",
			Action:    PickPlaceAction,
		},
		{
			Name:      "script",
			Usage:     "replay a joint space waypoint script against the simulator",
			UsageText: "dofbot script [--name grasp|pickplace] [--every <n>]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: flagName, Value: scriptGrasp, Usage: "grasp or pickplace"},
				&cli.IntFlag{Name: flagEvery, Value: 7, Usage: "print every nth step of the path"},
			},
			Action: ScriptAction,
		},
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cmdEnv holds what every command needs from the config.
type cmdEnv struct {
	cfg    *config.Config
	chain  *kinematics.Chain
	logger logging.Logger
}

func newCmdEnv(c *cli.Context) (*cmdEnv, error) {
	cfg := config.NewDefaultConfig()
	switch path := c.String(flagConfig); path {
	case "":
	case "-":
		var err error
		if cfg, err = config.FromReader(c.App.Reader, config.FormatYAML); err != nil {
			return nil, errors.Wrap(err, "reading config from stdin")
		}
	default:
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	}
	logger, err := logging.NewLoggerFromConfig("dofbot", cfg.Log)
	if err != nil {
		return nil, err
	}
	chain, err := cfg.Model.Chain()
	if err != nil {
		return nil, err
	}
	return &cmdEnv{cfg: cfg, chain: chain, logger: logger}, nil
}

// DHAction prints the DH table.
func DHAction(c *cli.Context) error {
	rt, err := newCmdEnv(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, report.DHTable(rt.chain))
	return nil
}

// ForwardAction prints the tool pose of the configuration given as arguments, or of the demo configurations.
func ForwardAction(c *cli.Context) error {
	rt, err := newCmdEnv(c)
	if err != nil {
		return err
	}
	configs := kinematics.DemoConfigurations
	if c.NArg() > 0 {
		if c.NArg() != len(rt.chain.DoF()) {
			return referenceframe.NewIncorrectDoFError(c.NArg(), len(rt.chain.DoF()))
		}
		q := make([]float64, 0, c.NArg())
		for _, arg := range c.Args().Slice() {
			deg, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return errors.Wrapf(err, "joint angle %q", arg)
			}
			q = append(q, utils.DegToRad(deg))
		}
		configs = [][]referenceframe.Input{referenceframe.FloatsToInputs(q)}
	}

	poses, err := motionplan.Plan(configs).Poses(rt.chain)
	if err != nil {
		return err
	}
	rows := make([]report.ForwardRow, 0, len(configs))
	for i, q := range configs {
		if err := referenceframe.InputsWithinLimits(q, rt.chain.DoF()); err != nil {
			rt.logger.Warnw("configuration outside the joint limits", "configuration", i, "error", err)
		}
		rows = append(rows, report.ForwardRow{Label: strconv.Itoa(i), Configuration: q, Pose: poses[i]})
	}
	fmt.Fprintln(c.App.Writer, report.ForwardTable(rows))
	return nil
}

// InverseAction solves for a tool position. A failed solve is printed with its best attempt and returned.
func InverseAction(c *cli.Context) error {
	rt, err := newCmdEnv(c)
	if err != nil {
		return err
	}
	solver, err := ik.CreateSolver(rt.chain, rt.logger.Sublogger("ik"), rt.cfg.IK)
	if err != nil {
		return err
	}
	goal := ik.NewPositionGoal(r3.Vector{X: c.Float64(flagX), Y: c.Float64(flagY), Z: c.Float64(flagZ)})
	seed := make([]referenceframe.Input, len(rt.chain.DoF()))

	row := report.InverseRow{Label: "0"}
	row.Solution, row.Err = solver.Solve(c.Context, goal, seed)
	var convErr *ik.ConvergenceError
	if errors.As(row.Err, &convErr) {
		row.Solution = convErr.Best
	}
	fmt.Fprintln(c.App.Writer, report.InverseTable([]report.InverseRow{row}))
	return row.Err
}

// WorkspaceAction samples the workspace and prints its summary and reach histogram.
func WorkspaceAction(c *cli.Context) error {
	rt, err := newCmdEnv(c)
	if err != nil {
		return err
	}
	ws := rt.cfg.Workspace
	if c.IsSet(flagSamples) {
		ws.Samples = c.Int(flagSamples)
	}
	if c.IsSet(flagGrid) {
		ws.GridStepDeg = c.Float64(flagGrid)
	}
	if err := ws.Validate("workspace"); err != nil {
		return err
	}

	var samples []kinematics.WorkspaceSample
	if ws.GridStepDeg > 0 {
		samples, err = kinematics.TraverseWorkspace(rt.chain, ws.JointLimits(), utils.DegToRad(ws.GridStepDeg))
	} else {
		samples, err = kinematics.SampleWorkspace(rt.chain, ws.JointLimits(), ws.Samples, newRand(ws.Seed))
	}
	if err != nil {
		return err
	}
	summary, err := kinematics.SummarizeWorkspace(samples)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, report.Workspace(summary))
	return report.ReachHistogram(c.App.Writer, summary, 20)
}

// PickPlaceAction runs the pick and place task in the simulator and prints the final status.
func PickPlaceAction(c *cli.Context) error {
	rt, err := newCmdEnv(c)
	if err != nil {
		return err
	}
	sim, err := fake.NewArm(rt.chain, rt.cfg.Scene, rt.logger.Sublogger("sim"))
	if err != nil {
		return err
	}
	solver, err := ik.CreateSolver(rt.chain, rt.logger.Sublogger("ik"), rt.cfg.IK)
	if err != nil {
		return err
	}
	machine, err := pickplace.NewStateMachine(sim, solver, rt.cfg.Task, rt.logger.Sublogger("pickplace"))
	if err != nil {
		return err
	}
	status, err := machine.Run(c.Context)
	fmt.Fprintln(c.App.Writer, report.Task(status))
	return err
}

// ScriptAction replays one of the hardware scripts in the simulator and prints its tool path.
func ScriptAction(c *cli.Context) error {
	rt, err := newCmdEnv(c)
	if err != nil {
		return err
	}
	var script *pickplace.Script
	switch name := c.String(flagName); name {
	case scriptGrasp:
		script = pickplace.DofbotGraspScript(fake.GripperOpenAngle, fake.GripperCloseAngle)
	case scriptPickPlace:
		script = pickplace.DofbotPickPlaceScript(fake.GripperOpenAngle, fake.GripperCloseAngle)
	default:
		return errors.Errorf("unknown script %q, want %s or %s", name, scriptGrasp, scriptPickPlace)
	}
	script.Settle = 0

	plan, err := script.Plan()
	if err != nil {
		return err
	}
	path, err := report.PlanTable(script.Name, plan, rt.chain, c.Int(flagEvery))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, path)

	sim, err := fake.NewArm(rt.chain, rt.cfg.Scene, rt.logger.Sublogger("sim"))
	if err != nil {
		return err
	}
	if err := pickplace.RunScripts(c.Context, sim, nil, rt.logger.Sublogger("script"), script); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d joint commands, final joints (deg) %s, holding object: %t\n",
		sim.Moves(), report.Degrees(sim.JointConfiguration()), sim.Holding())
	return nil
}

func newRand(seed int64) *rand.Rand {
	//nolint:gosec
	return rand.New(rand.NewSource(seed))
}
