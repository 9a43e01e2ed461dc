// Package dispatch turns decoded wire messages into motor commands on the
// actuator unit.
package dispatch

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/actuator"
	"github.com/w1xm/climber/internal/metrics"
	"github.com/w1xm/climber/protocol"
)

// Button names read from a ButtonReport.
const (
	ClimbUp   = "CLU"
	ClimbDown = "CLD"
	Cut       = "CT"
)

// ResolveButtons maps one button snapshot to the climb command followed by
// the cut command. Any climb combination other than exactly one of CLU or
// CLD set resolves to stop; missing names count as 0.
func ResolveButtons(levels map[string]int) []actuator.Command {
	r := protocol.ButtonReport{Levels: levels}
	up, down := r.Level(ClimbUp) == 1, r.Level(ClimbDown) == 1
	climb := actuator.Stop
	switch {
	case up && !down:
		climb = actuator.Forward
	case down && !up:
		climb = actuator.Reverse
	}
	cut := actuator.Command{Kind: actuator.CutStop}
	if r.Level(Cut) == 1 {
		cut.Kind = actuator.CutStart
	}
	return []actuator.Command{actuator.ClimbCommand(climb), cut}
}

// ServoConfig wires one encoder index to a pulsed servo.
type ServoConfig struct {
	Index int
	// Start is the encoder value assumed before the first report.
	Start int
	// Min and Max are the angles pulsed to for a decrease and an increase.
	Min, Max float64
	Neutral  float64
	Hold     time.Duration
}

type servoState struct {
	cfg  ServoConfig
	prev int
}

type Config struct {
	Driver actuator.Driver
	Servos []ServoConfig
	Logger *log.Entry
}

// Dispatcher applies messages to a Driver one at a time.
type Dispatcher struct {
	driver actuator.Driver
	log    *log.Entry
	sleep  func(time.Duration)

	mu     sync.Mutex
	servos map[int]*servoState
}

func New(cfg Config) (*Dispatcher, error) {
	if cfg.Driver == nil {
		return nil, errors.New("dispatcher needs a driver")
	}
	d := &Dispatcher{
		driver: cfg.Driver,
		log:    cfg.Logger,
		sleep:  time.Sleep,
		servos: make(map[int]*servoState),
	}
	if d.log == nil {
		d.log = log.NewEntry(log.StandardLogger())
	}
	for _, s := range cfg.Servos {
		if _, ok := d.servos[s.Index]; ok {
			return nil, errors.Errorf("servo %d configured twice", s.Index)
		}
		d.servos[s.Index] = &servoState{cfg: s, prev: s.Start}
	}
	return d, nil
}

// Dispatch resolves msg and applies every resulting command, even after an
// earlier one fails. It returns the commands and the first error.
func (d *Dispatcher) Dispatch(msg protocol.Message) ([]actuator.Command, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	metrics.RecordPacket(msg.Kind())

	var cmds []actuator.Command
	switch m := msg.(type) {
	case protocol.ButtonReport:
		cmds = ResolveButtons(m.Levels)
	case protocol.EncoderReport:
		if c, ok := d.resolveEncoder(m); ok {
			cmds = append(cmds, c)
		}
	case protocol.Unrecognized:
		d.log.Warnf("dropping unrecognized message %q", m.Raw)
		return nil, nil
	default:
		d.log.Warnf("dropping message of kind %s", msg.Kind())
		return nil, nil
	}

	var first error
	for _, c := range cmds {
		err := d.apply(c)
		metrics.RecordCommand(c.Kind.String(), err)
		if err != nil {
			d.log.Errorf("%v: %v", c, err)
			if first == nil {
				first = errors.Wrapf(err, "%v", c)
			}
		}
	}
	d.publishState()
	return cmds, first
}

func (d *Dispatcher) resolveEncoder(m protocol.EncoderReport) (actuator.Command, bool) {
	s, ok := d.servos[m.Index]
	if !ok {
		d.log.Debugf("no servo for encoder %d", m.Index)
		return actuator.Command{}, false
	}
	if m.Value == s.prev {
		return actuator.Command{}, false
	}
	sign := 1
	if m.Value < s.prev {
		sign = -1
	}
	s.prev = m.Value
	return actuator.Command{Kind: actuator.ServoMove, Servo: m.Index, Sign: sign}, true
}

func (d *Dispatcher) apply(c actuator.Command) error {
	switch c.Kind {
	case actuator.ClimbForward:
		return d.driver.SetClimb(actuator.Forward)
	case actuator.ClimbReverse:
		return d.driver.SetClimb(actuator.Reverse)
	case actuator.ClimbStop:
		return d.driver.SetClimb(actuator.Stop)
	case actuator.CutStart:
		return d.driver.SetCut(true)
	case actuator.CutStop:
		return d.driver.SetCut(false)
	case actuator.ServoMove:
		return d.pulse(c)
	}
	return errors.Errorf("unknown command %v", c)
}

// pulse moves a servo to one extreme, holds, then returns it to neutral.
func (d *Dispatcher) pulse(c actuator.Command) error {
	s := d.servos[c.Servo]
	target := s.cfg.Max
	if c.Sign < 0 {
		target = s.cfg.Min
	}
	if err := d.driver.SetServo(c.Servo, target); err != nil {
		return err
	}
	d.sleep(s.cfg.Hold)
	return d.driver.SetServo(c.Servo, s.cfg.Neutral)
}

func (d *Dispatcher) publishState() {
	st := d.driver.State()
	climb := 0.0
	switch st.Climb {
	case actuator.Forward:
		climb = 1
	case actuator.Reverse:
		climb = -1
	}
	cut := 0.0
	if st.Cutting {
		cut = 1
	}
	metrics.SetMotorState("climb", climb)
	metrics.SetMotorState("cut", cut)
}

// Stop forces every motor to stop.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.driver.Stop()
	d.publishState()
	return err
}
