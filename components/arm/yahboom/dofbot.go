// Package yahboom implements a yahboom dofbot arm driven over I2C.
// code with commands found at http://www.yahboom.net/study/Dofbot-Pi
package yahboom

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/armlab/dofbot/components/arm"
	"github.com/armlab/dofbot/kinematics"
	"github.com/armlab/dofbot/logging"
	"github.com/armlab/dofbot/referenceframe"
)

// Address is the I2C address of the dofbot expansion board.
const Address = 0x15

const (
	writeRegister  = 0x10
	readRegister   = 0x30
	torqueRegister = 0x1A

	gripperServo = 6
	// servo degrees at the kinematic zero of every arm joint
	servoZero = 90.0
)

// ErrBadReading is returned when a servo reports a position outside its calibrated range.
var ErrBadReading = errors.New("servo returned an out of range position")

// servoRange maps servo degrees [0, degrees] onto raw positions [low, high].
type servoRange struct {
	low, high int
	degrees   float64
	inverted  bool
}

// servos 2 to 4 are mounted mirrored; servo 5 has a wider travel.
var servos = map[int]servoRange{
	1: {900, 3100, 180, false},
	2: {900, 3100, 180, true},
	3: {900, 3100, 180, true},
	4: {900, 3100, 180, true},
	5: {380, 3700, 270, false},
	6: {900, 3100, 180, false},
}

func (sr servoRange) toHw(degrees float64) int {
	degrees = math.Max(0, math.Min(sr.degrees, degrees))
	if sr.inverted {
		degrees = sr.degrees - degrees
	}
	return int(float64(sr.high-sr.low)*degrees/sr.degrees) + sr.low
}

func (sr servoRange) toDegrees(pos int) (float64, error) {
	if pos < sr.low || pos > sr.high {
		return 0, errors.Wrapf(ErrBadReading, "raw position %d", pos)
	}
	degrees := sr.degrees * float64(pos-sr.low) / float64(sr.high-sr.low)
	if sr.inverted {
		degrees = sr.degrees - degrees
	}
	return degrees, nil
}

// ServoDegreesToInputs converts servo degrees for the five arm joints to kinematic radians.
func ServoDegreesToInputs(degrees []float64) []referenceframe.Input {
	return lo.Map(degrees, func(d float64, _ int) referenceframe.Input {
		return referenceframe.Input{Value: (d - servoZero) * math.Pi / 180}
	})
}

// InputsToServoDegrees converts kinematic radians to servo degrees.
func InputsToServoDegrees(inputs []referenceframe.Input) []float64 {
	return lo.Map(inputs, func(in referenceframe.Input, _ int) float64 {
		return in.Value*180/math.Pi + servoZero
	})
}

// Config is the config for a yahboom arm.
type Config struct {
	I2CBus string `json:"i2c_bus"`
	// MoveTimeMs is the time each servo is given to reach a commanded position.
	MoveTimeMs int `json:"move_time_ms"`
	// Gripper servo angles in degrees.
	GripperOpen   float64 `json:"gripper_open"`
	GripperClosed float64 `json:"gripper_closed"`
}

// NewDefaultConfig returns the config of a dofbot on a Jetson Nano carrier board.
func NewDefaultConfig() Config {
	return Config{
		I2CBus:        "1",
		MoveTimeMs:    100,
		GripperOpen:   120,
		GripperClosed: 30,
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.I2CBus == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "i2c_bus")
	}
	if conf.MoveTimeMs < 0 || conf.MoveTimeMs > math.MaxUint16 {
		return utils.NewConfigValidationError(path, errors.Errorf("move_time_ms %d out of range", conf.MoveTimeMs))
	}
	for name, v := range map[string]float64{"gripper_open": conf.GripperOpen, "gripper_closed": conf.GripperClosed} {
		if v < 0 || v > servos[gripperServo].degrees {
			return utils.NewConfigValidationError(path, errors.Errorf("%s %.1f outside [0, 180]", name, v))
		}
	}
	return nil
}

// Dofbot implements a yahboom dofbot arm.
type Dofbot struct {
	dev    conn.Conn
	closer io.Closer
	chain  *kinematics.Chain
	conf   Config
	logger logging.Logger

	mu        sync.Mutex
	commanded []referenceframe.Input
	torqueOff bool
}

// Open initializes the host drivers and connects to a dofbot on the configured bus.
func Open(conf Config, chain *kinematics.Chain, logger logging.Logger) (*Dofbot, error) {
	if err := conf.Validate("yahboom"); err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing host drivers")
	}
	bus, err := i2creg.Open(conf.I2CBus)
	if err != nil {
		return nil, errors.Wrapf(err, "opening i2c bus %q", conf.I2CBus)
	}
	a, err := NewDofbot(&i2c.Dev{Bus: bus, Addr: Address}, bus, chain, conf, logger)
	if err != nil {
		return nil, multierr.Combine(err, bus.Close())
	}
	return a, nil
}

// NewDofbot is a constructor to create a new dofbot arm on an already opened connection. closer may be nil.
func NewDofbot(dev conn.Conn, closer io.Closer, chain *kinematics.Chain, conf Config, logger logging.Logger) (*Dofbot, error) {
	if err := conf.Validate("yahboom"); err != nil {
		return nil, err
	}
	if chain == nil {
		return nil, errors.New("yahboom arm needs a kinematic chain")
	}
	a := &Dofbot{dev: dev, closer: closer, chain: chain, conf: conf, logger: logger}

	// sanity check if init succeeded
	pos, err := a.JointPositions(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "error reading joint positions during init")
	}
	a.commanded = pos
	logger.Debugw("current joint positions", "degrees", arm.JointPositionsToProto(pos).Values)
	return a, nil
}

// SetJointConfiguration sends every joint to the given configuration, in radians.
func (a *Dofbot) SetJointConfiguration(ctx context.Context, joints []referenceframe.Input) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := arm.CheckDesiredJointPositions(a.chain, a.commanded, joints); err != nil {
		return err
	}
	if a.torqueOff {
		if err := a.setTorqueInLock(true); err != nil {
			a.logger.Warnw("error turning on torque", "error", err)
		}
	}
	for i, d := range InputsToServoDegrees(joints) {
		if err := a.moveServoInLock(i+1, d); err != nil {
			return errors.Wrapf(err, "error moving joint %d", i+1)
		}
		if !utils.SelectContextOrWait(ctx, time.Millisecond) {
			return ctx.Err()
		}
	}
	a.commanded = referenceframe.CopyInputs(joints)
	return nil
}

// SetGripper moves the gripper servo to the given angle in servo degrees.
func (a *Dofbot) SetGripper(ctx context.Context, degrees float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moveServoInLock(gripperServo, degrees)
}

// Reset sends the arm to its kinematic zero with the gripper open.
func (a *Dofbot) Reset(ctx context.Context) error {
	if err := a.SetGripper(ctx, a.conf.GripperOpen); err != nil {
		return err
	}
	zero := make([]referenceframe.Input, kinematics.NumJoints)
	a.mu.Lock()
	// the arm may start anywhere, zero is always allowed
	a.commanded = nil
	a.mu.Unlock()
	if err := a.SetJointConfiguration(ctx, zero); err != nil {
		return err
	}
	if !utils.SelectContextOrWait(ctx, time.Duration(a.conf.MoveTimeMs)*time.Millisecond) {
		return ctx.Err()
	}
	return nil
}

// GripperOpen returns the configured open gripper angle.
func (a *Dofbot) GripperOpen() float64 {
	return a.conf.GripperOpen
}

// GripperClosed returns the configured closed gripper angle.
func (a *Dofbot) GripperClosed() float64 {
	return a.conf.GripperClosed
}

func (a *Dofbot) moveServoInLock(id int, degrees float64) error {
	pos := servos[id].toHw(degrees)
	ms := a.conf.MoveTimeMs

	buf := make([]byte, 5)
	buf[0] = byte(writeRegister + id)
	binary.BigEndian.PutUint16(buf[1:3], uint16(pos))
	binary.BigEndian.PutUint16(buf[3:5], uint16(ms))
	return a.dev.Tx(buf, nil)
}

// JointPositions reads the current joint positions of the arm, in radians.
func (a *Dofbot) JointPositions(ctx context.Context) ([]referenceframe.Input, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	degrees := make([]float64, 0, kinematics.NumJoints)
	for i := 1; i <= kinematics.NumJoints; i++ {
		d, err := a.readServoInLock(ctx, i)
		if err != nil {
			return nil, err
		}
		degrees = append(degrees, d)
	}
	return ServoDegreesToInputs(degrees), nil
}

// Gripper reads the gripper servo angle in degrees.
func (a *Dofbot) Gripper(ctx context.Context) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readServoInLock(ctx, gripperServo)
}

func (a *Dofbot) readServoInLock(ctx context.Context, id int) (float64, error) {
	reg := byte(readRegister + id)
	if err := a.dev.Tx([]byte{reg, 0}, nil); err != nil {
		return 0, errors.Wrapf(err, "error requesting joint %v from register %#x", id, reg)
	}

	if !utils.SelectContextOrWait(ctx, 3*time.Millisecond) {
		return 0, ctx.Err()
	}

	rd := make([]byte, 2)
	if err := a.dev.Tx([]byte{reg}, rd); err != nil {
		return 0, errors.Wrapf(err, "error reading joint %v from register %#x", id, reg)
	}
	d, err := servos[id].toDegrees(int(binary.BigEndian.Uint16(rd)))
	return d, errors.Wrapf(err, "joint %d", id)
}

// Stop turns off the torque of every servo so the arm can be moved by hand.
func (a *Dofbot) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.setTorqueInLock(false); err != nil {
		return err
	}
	a.torqueOff = true
	return nil
}

func (a *Dofbot) setTorqueInLock(on bool) error {
	buf := []byte{torqueRegister, 0}
	if on {
		buf[1] = 1
	}
	if err := a.dev.Tx(buf, nil); err != nil {
		return err
	}
	a.torqueOff = !on
	return nil
}

// Close releases the I2C bus.
func (a *Dofbot) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

var _ arm.Actuator = (*Dofbot)(nil)
