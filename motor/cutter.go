package motor

import (
	"github.com/pkg/errors"

	"github.com/w1xm/climber/pin"
)

// Cutter switches the cutting motor on or off.
type Cutter interface {
	Run(on bool) error
}

type DCMotorConfig struct {
	Pin1, Pin2 pin.Output
	Enable     pin.PWM
	// MinDuty and MaxDuty bound the enable duty for speeds 1..100. The
	// defaults suit a 15kHz PWM.
	MinDuty, MaxDuty float64
	// Speed is the fixed running speed, 1..100.
	Speed float64
}

const (
	DefaultMinDuty = 750.0 / 1023
	DefaultMaxDuty = 1.0
)

// DCMotor is a single direction motor behind an enable PWM and two
// direction lines.
type DCMotor struct {
	cfg DCMotorConfig
}

func NewDCMotor(cfg DCMotorConfig) (*DCMotor, error) {
	if cfg.Pin1 == nil || cfg.Pin2 == nil || cfg.Enable == nil {
		return nil, errors.Wrap(ErrInvalidWiring, "dc motor needs two direction pins and an enable pwm")
	}
	if cfg.Speed <= 0 || cfg.Speed > 100 {
		return nil, errors.Wrapf(ErrInvalidSpeed, "dc motor speed %v", cfg.Speed)
	}
	if cfg.MaxDuty == 0 {
		cfg.MinDuty, cfg.MaxDuty = DefaultMinDuty, DefaultMaxDuty
	}
	if cfg.MinDuty < 0 || cfg.MinDuty > cfg.MaxDuty || cfg.MaxDuty > 1 {
		return nil, errors.Wrapf(ErrInvalidWiring, "dc motor duty range [%v,%v]", cfg.MinDuty, cfg.MaxDuty)
	}
	m := &DCMotor{cfg: cfg}
	if err := m.Run(false); err != nil {
		return nil, errors.Wrap(err, "could not stop dc motor")
	}
	return m, nil
}

func (m *DCMotor) duty(speed float64) float64 {
	if speed <= 0 {
		return 0
	}
	if speed > 100 {
		speed = 100
	}
	return m.cfg.MinDuty + (m.cfg.MaxDuty-m.cfg.MinDuty)*speed/100
}

func (m *DCMotor) Run(on bool) error {
	if !on {
		errs := []error{m.cfg.Enable.Duty(0), m.cfg.Pin1.Out(false), m.cfg.Pin2.Out(false)}
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := m.cfg.Pin2.Out(false); err != nil {
		return err
	}
	if err := m.cfg.Pin1.Out(true); err != nil {
		return err
	}
	return m.cfg.Enable.Duty(m.duty(m.cfg.Speed))
}

// Switch is a cutting motor on a single relay line.
type Switch struct {
	out pin.Output
}

func NewSwitch(out pin.Output) (*Switch, error) {
	if out == nil {
		return nil, errors.Wrap(ErrInvalidWiring, "switch needs an output")
	}
	s := &Switch{out: out}
	if err := s.Run(false); err != nil {
		return nil, errors.Wrap(err, "could not open switch")
	}
	return s, nil
}

func (s *Switch) Run(on bool) error {
	return s.out.Out(on)
}
