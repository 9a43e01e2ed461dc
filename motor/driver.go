// Package motor implements the actuator unit's motors as discrete state
// machines: the climbing motor is stopped, forward or reverse, the cutting
// motor is stopped or running. Every transition is commanded and immediate.
package motor

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/actuator"
)

type StateCallback func(state actuator.State)

type Config struct {
	Climber Climber
	Cutter  Cutter
	Servos  map[int]*Servo
	Logger  *log.Entry
	// StateCallback is called after every state change, outside any lock.
	StateCallback StateCallback
}

// Driver is the actuator.Driver built from individual motors.
type Driver struct {
	climber  Climber
	cutter   Cutter
	servos   map[int]*Servo
	log      *log.Entry
	callback StateCallback

	mu    sync.Mutex
	state actuator.State
}

var _ actuator.Driver = (*Driver)(nil)

// New forces every motor to stop before returning. A driver that cannot
// reach its safe state is never handed out.
func New(cfg Config) (*Driver, error) {
	if cfg.Climber == nil || cfg.Cutter == nil {
		return nil, errors.Wrap(ErrInvalidWiring, "driver needs a climber and a cutter")
	}
	d := &Driver{
		climber:  cfg.Climber,
		cutter:   cfg.Cutter,
		servos:   cfg.Servos,
		log:      cfg.Logger,
		callback: cfg.StateCallback,
	}
	if d.log == nil {
		d.log = log.NewEntry(log.StandardLogger())
	}
	if err := d.Stop(); err != nil {
		return nil, errors.Wrap(err, "could not force motors to a safe state")
	}
	return d, nil
}

func (d *Driver) State() actuator.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Driver) notify(state actuator.State) {
	if d.callback != nil {
		d.callback(state)
	}
}

// SetClimb is idempotent for Forward and Reverse; Stop is always written
// through to the hardware.
func (d *Driver) SetClimb(dir actuator.Direction) error {
	if dir != actuator.Stop && dir != actuator.Forward && dir != actuator.Reverse {
		return errors.Wrapf(ErrInvalidDirection, "%v", dir)
	}
	d.mu.Lock()
	if dir != actuator.Stop && d.state.Climb == dir {
		d.mu.Unlock()
		return nil
	}
	prev := d.state
	err := d.climber.Drive(dir)
	switch {
	case err == nil:
		d.state.Climb = dir
	case errors.Is(err, ErrInvalidSpeed):
		// Rejected before any pin write; keep the last good state.
	default:
		d.log.Errorf("climb %v failed: %v", dir, err)
		if dir != actuator.Stop {
			if stopErr := d.climber.Drive(actuator.Stop); stopErr != nil {
				d.log.Errorf("could not stop climbing motor: %v", stopErr)
			}
		}
		d.state.Climb = actuator.Stop
	}
	state := d.state
	d.mu.Unlock()

	if state != prev {
		d.log.Infof("climbing motor %v -> %v", prev.Climb, state.Climb)
		d.notify(state)
	}
	return err
}

func (d *Driver) SetCut(on bool) error {
	d.mu.Lock()
	if on && d.state.Cutting {
		d.mu.Unlock()
		return nil
	}
	prev := d.state
	err := d.cutter.Run(on)
	switch {
	case err == nil:
		d.state.Cutting = on
	case errors.Is(err, ErrInvalidSpeed):
	default:
		d.log.Errorf("cut %v failed: %v", on, err)
		if on {
			if stopErr := d.cutter.Run(false); stopErr != nil {
				d.log.Errorf("could not stop cutting motor: %v", stopErr)
			}
		}
		d.state.Cutting = false
	}
	state := d.state
	d.mu.Unlock()

	if state != prev {
		d.log.Infof("cutting motor running=%v -> %v", prev.Cutting, state.Cutting)
		d.notify(state)
	}
	return err
}

func (d *Driver) SetServo(index int, angle float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.servos[index]
	if !ok {
		return errors.Wrapf(ErrNoServo, "%d", index)
	}
	from := s.Angle()
	if err := s.SetAngle(angle); err != nil {
		return errors.Wrapf(err, "servo %d", index)
	}
	d.log.Debugf("servo %d %v -> %v", index, from, s.Angle())
	return nil
}

// Stop attempts to stop every motor even when one of them fails, and
// returns the first failure.
func (d *Driver) Stop() error {
	d.mu.Lock()
	prev := d.state
	climbErr := d.climber.Drive(actuator.Stop)
	cutErr := d.cutter.Run(false)
	d.state = actuator.State{Climb: actuator.Stop, Cutting: false}
	state := d.state
	d.mu.Unlock()

	if state != prev {
		d.notify(state)
	}
	if climbErr != nil {
		return errors.Wrap(climbErr, "climbing motor")
	}
	if cutErr != nil {
		return errors.Wrap(cutErr, "cutting motor")
	}
	return nil
}
