package motor

import (
	"github.com/pkg/errors"

	"github.com/w1xm/climber/actuator"
	"github.com/w1xm/climber/pin"
)

// Climber drives the climbing motor into one of its three states.
type Climber interface {
	Drive(d actuator.Direction) error
}

// physical applies the wiring polarity to a logical direction.
func physical(d actuator.Direction, inverted bool) actuator.Direction {
	if !inverted {
		return d
	}
	switch d {
	case actuator.Forward:
		return actuator.Reverse
	case actuator.Reverse:
		return actuator.Forward
	}
	return d
}

type HBridgeConfig struct {
	RPWM, LPWM       pin.PWM
	REnable, LEnable pin.Output
	// Speed is used for Forward and Reverse, above 0 and at most 100.
	Speed float64
	// Inverted swaps forward and reverse to match the motor wiring.
	Inverted bool
}

// HBridge is a BTS7960 style driver: one PWM input and one enable per
// half bridge.
type HBridge struct {
	cfg HBridgeConfig
}

// NewHBridge disables both half bridges before returning.
func NewHBridge(cfg HBridgeConfig) (*HBridge, error) {
	if cfg.RPWM == nil || cfg.LPWM == nil || cfg.REnable == nil || cfg.LEnable == nil {
		return nil, errors.Wrap(ErrInvalidWiring, "h-bridge needs two pwm and two enable pins")
	}
	if cfg.Speed <= 0 || cfg.Speed > 100 {
		return nil, errors.Wrapf(ErrInvalidSpeed, "h-bridge speed %v", cfg.Speed)
	}
	h := &HBridge{cfg: cfg}
	if err := h.Start(0); err != nil {
		return nil, errors.Wrap(err, "could not disable h-bridge")
	}
	return h, nil
}

func (h *HBridge) Drive(d actuator.Direction) error {
	switch d {
	case actuator.Stop:
		return h.Start(0)
	case actuator.Forward:
		return h.Start(h.cfg.Speed)
	case actuator.Reverse:
		return h.Start(-h.cfg.Speed)
	}
	return errors.Wrapf(ErrInvalidDirection, "%v", d)
}

// Start runs the motor at speed in -100..100; positive is forward and 0
// stops. An out of range speed is rejected before any pin is touched.
func (h *HBridge) Start(speed float64) error {
	if speed < -100 || speed > 100 {
		return errors.Wrapf(ErrInvalidSpeed, "%v", speed)
	}
	if speed == 0 {
		return h.disable()
	}
	dir := actuator.Forward
	if speed < 0 {
		dir = actuator.Reverse
		speed = -speed
	}
	active, idle := h.cfg.RPWM, h.cfg.LPWM
	if physical(dir, h.cfg.Inverted) == actuator.Reverse {
		active, idle = idle, active
	}
	// Release the opposite half bridge before driving this one.
	if err := idle.Duty(0); err != nil {
		return err
	}
	if err := h.enable(true); err != nil {
		return err
	}
	return active.Duty(speed / 100)
}

func (h *HBridge) disable() error {
	// Try every pin even if one fails.
	var first error
	for _, err := range []error{
		h.enable(false),
		h.cfg.RPWM.Duty(0),
		h.cfg.LPWM.Duty(0),
	} {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h *HBridge) enable(on bool) error {
	if err := h.cfg.REnable.Out(on); err != nil {
		return err
	}
	return h.cfg.LEnable.Out(on)
}

type TwoPinConfig struct {
	A, B     pin.Output
	Inverted bool
}

// TwoPin drives a motor through two relay or direction lines. Both low is
// stopped.
type TwoPin struct {
	cfg TwoPinConfig
}

func NewTwoPin(cfg TwoPinConfig) (*TwoPin, error) {
	if cfg.A == nil || cfg.B == nil {
		return nil, errors.Wrap(ErrInvalidWiring, "two-pin driver needs two outputs")
	}
	t := &TwoPin{cfg: cfg}
	if err := t.Drive(actuator.Stop); err != nil {
		return nil, errors.Wrap(err, "could not stop two-pin driver")
	}
	return t, nil
}

func (t *TwoPin) Drive(d actuator.Direction) error {
	switch physical(d, t.cfg.Inverted) {
	case actuator.Stop:
		errA := t.cfg.A.Out(false)
		errB := t.cfg.B.Out(false)
		if errA != nil {
			return errA
		}
		return errB
	case actuator.Forward:
		if err := t.cfg.B.Out(false); err != nil {
			return err
		}
		return t.cfg.A.Out(true)
	case actuator.Reverse:
		if err := t.cfg.A.Out(false); err != nil {
			return err
		}
		return t.cfg.B.Out(true)
	}
	return errors.Wrapf(ErrInvalidDirection, "%v", d)
}
