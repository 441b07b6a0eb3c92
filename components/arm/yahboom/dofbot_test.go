package yahboom

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"periph.io/x/conn/v3"

	"github.com/armlab/dofbot/kinematics"
	"github.com/armlab/dofbot/logging"
)

// fakeBoard answers the expansion board protocol from an in-memory table of raw servo positions.
type fakeBoard struct {
	mu      sync.Mutex
	raw     map[int]uint16
	writes  [][]byte
	torque  byte
	closed  bool
	failing bool
}

func newFakeBoard() *fakeBoard {
	b := &fakeBoard{raw: map[int]uint16{}, torque: 1}
	for id, sr := range servos {
		b.raw[id] = uint16(sr.toHw(servoZero))
	}
	return b
}

func (b *fakeBoard) String() string { return "fake dofbot board" }

func (b *fakeBoard) Duplex() conn.Duplex { return conn.Half }

func (b *fakeBoard) Close() error {
	b.closed = true
	return nil
}

func (b *fakeBoard) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return errors.New("bus error")
	}
	b.writes = append(b.writes, append([]byte(nil), w...))
	reg := int(w[0])
	switch {
	case reg == torqueRegister:
		b.torque = w[1]
	case reg > writeRegister && reg <= writeRegister+gripperServo:
		b.raw[reg-writeRegister] = binary.BigEndian.Uint16(w[1:3])
	case reg > readRegister && reg <= readRegister+gripperServo && len(r) == 2:
		binary.BigEndian.PutUint16(r, b.raw[reg-readRegister])
	}
	return nil
}

func setupDofbot(t *testing.T) (*fakeBoard, *Dofbot) {
	t.Helper()
	chain, err := kinematics.MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	b := newFakeBoard()
	a, err := NewDofbot(b, b, chain, NewDefaultConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return b, a
}

func TestServoConversion(t *testing.T) {
	test.That(t, servos[1].toHw(0), test.ShouldEqual, 900)
	test.That(t, servos[1].toHw(180), test.ShouldEqual, 3100)
	test.That(t, servos[1].toHw(90), test.ShouldEqual, 2000)
	test.That(t, servos[2].toHw(0), test.ShouldEqual, 3100)
	test.That(t, servos[5].toHw(270), test.ShouldEqual, 3700)
	// out of range commands are clamped
	test.That(t, servos[1].toHw(-10), test.ShouldEqual, 900)

	for id, sr := range servos {
		d, err := sr.toDegrees(sr.toHw(45))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, d, test.ShouldAlmostEqual, 45, 0.1)
		_, err = sr.toDegrees(sr.low - 1)
		test.That(t, errors.Is(err, ErrBadReading), test.ShouldBeTrue)
		test.That(t, id, test.ShouldBeBetweenOrEqual, 1, gripperServo)
	}

	in := ServoDegreesToInputs([]float64{90, 0, 180})
	for i, want := range []float64{0, -math.Pi / 2, math.Pi / 2} {
		test.That(t, in[i].Value, test.ShouldAlmostEqual, want)
	}
	for i, want := range []float64{90, 0, 180} {
		test.That(t, InputsToServoDegrees(in)[i], test.ShouldAlmostEqual, want)
	}
}

func TestInitReadsPositions(t *testing.T) {
	_, a := setupDofbot(t)
	for _, in := range a.commanded {
		test.That(t, in.Value, test.ShouldAlmostEqual, 0, 1e-3)
	}
}

func TestSetJointConfiguration(t *testing.T) {
	b, a := setupDofbot(t)
	ctx := context.Background()

	target := ServoDegreesToInputs([]float64{137, 51, 52, 2, 90})
	test.That(t, a.SetJointConfiguration(ctx, target), test.ShouldBeNil)

	// one write per joint, register 0x10+id, position then move time, big endian
	last := b.writes[len(b.writes)-5:]
	for i, w := range last {
		test.That(t, len(w), test.ShouldEqual, 5)
		test.That(t, int(w[0]), test.ShouldEqual, writeRegister+i+1)
		test.That(t, binary.BigEndian.Uint16(w[3:5]), test.ShouldEqual, uint16(100))
	}
	test.That(t, binary.BigEndian.Uint16(last[0][1:3]), test.ShouldEqual, uint16(servos[1].toHw(137)))

	got, err := a.JointPositions(ctx)
	test.That(t, err, test.ShouldBeNil)
	for i, d := range InputsToServoDegrees(got) {
		test.That(t, d, test.ShouldAlmostEqual, InputsToServoDegrees(target)[i], 0.1)
	}

	// servo 1 cannot go past 180 degrees
	err = a.SetJointConfiguration(ctx, ServoDegreesToInputs([]float64{200, 90, 90, 90, 90}))
	test.That(t, err, test.ShouldNotBeNil)
	err = a.SetJointConfiguration(ctx, ServoDegreesToInputs([]float64{90, 90}))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGripperAndTorque(t *testing.T) {
	b, a := setupDofbot(t)
	ctx := context.Background()

	test.That(t, a.SetGripper(ctx, a.GripperClosed()), test.ShouldBeNil)
	d, err := a.Gripper(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldAlmostEqual, 30, 0.1)

	test.That(t, a.Stop(ctx), test.ShouldBeNil)
	test.That(t, b.torque, test.ShouldEqual, byte(0))
	test.That(t, a.Reset(ctx), test.ShouldBeNil)
	test.That(t, b.torque, test.ShouldEqual, byte(1))
	d, err = a.Gripper(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldAlmostEqual, a.GripperOpen(), 0.1)

	test.That(t, a.Close(), test.ShouldBeNil)
	test.That(t, b.closed, test.ShouldBeTrue)
	test.That(t, a.Close(), test.ShouldBeNil)
}

func TestBusErrors(t *testing.T) {
	b, a := setupDofbot(t)
	b.failing = true
	_, err := a.JointPositions(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, a.SetGripper(context.Background(), 90), test.ShouldNotBeNil)

	chain, err := kinematics.MakeDofbotChain()
	test.That(t, err, test.ShouldBeNil)
	_, err = NewDofbot(b, nil, chain, NewDefaultConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigValidate(t *testing.T) {
	conf := NewDefaultConfig()
	test.That(t, conf.Validate("arm"), test.ShouldBeNil)
	conf.I2CBus = ""
	test.That(t, conf.Validate("arm"), test.ShouldNotBeNil)
	conf = NewDefaultConfig()
	conf.GripperOpen = 200
	test.That(t, conf.Validate("arm"), test.ShouldNotBeNil)
	conf = NewDefaultConfig()
	conf.MoveTimeMs = -1
	test.That(t, conf.Validate("arm"), test.ShouldNotBeNil)
}
