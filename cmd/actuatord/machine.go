package main

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/config"
	"github.com/w1xm/climber/gpio"
	"github.com/w1xm/climber/internal/logsetup"
	"github.com/w1xm/climber/motor"
	"github.com/w1xm/climber/pin"
	"github.com/w1xm/climber/relay"
)

// pinSource hands out named output pins.
type pinSource interface {
	Output(name string) (pin.Output, error)
	PWM(name string, hz int) (pin.PWM, error)
}

type gpioPins struct{}

func (gpioPins) Output(name string) (pin.Output, error)   { return gpio.Output(name) }
func (gpioPins) PWM(name string, hz int) (pin.PWM, error) { return gpio.PWM(name, hz) }

// mockPins logs every write to a fake pin.
type mockPins struct {
	log  *log.Entry
	pins map[string]*pin.Fake
}

func newMockPins(logger *log.Entry) *mockPins {
	return &mockPins{log: logger, pins: map[string]*pin.Fake{}}
}

type loggedPin struct {
	*pin.Fake
	log *log.Entry
}

func (p loggedPin) Out(high bool) error {
	p.log.Debugf("%s -> %v", p.Name, high)
	return p.Fake.Out(high)
}

func (p loggedPin) Duty(fraction float64) error {
	p.log.Debugf("%s duty -> %.3f", p.Name, fraction)
	return p.Fake.Duty(fraction)
}

func (m *mockPins) get(name string) loggedPin {
	f, ok := m.pins[name]
	if !ok {
		f = pin.NewFake(name)
		m.pins[name] = f
	}
	return loggedPin{Fake: f, log: m.log}
}

func (m *mockPins) Output(name string) (pin.Output, error)   { return m.get(name), nil }
func (m *mockPins) PWM(name string, hz int) (pin.PWM, error) { return m.get(name), nil }

func buildClimber(c config.Climb, pins pinSource) (motor.Climber, error) {
	switch c.Driver {
	case "hbridge":
		rpwm, err := pins.PWM(c.RPWM, c.Frequency)
		if err != nil {
			return nil, err
		}
		lpwm, err := pins.PWM(c.LPWM, c.Frequency)
		if err != nil {
			return nil, err
		}
		ren, err := pins.Output(c.REnable)
		if err != nil {
			return nil, err
		}
		lenable, err := pins.Output(c.LEnable)
		if err != nil {
			return nil, err
		}
		return motor.NewHBridge(motor.HBridgeConfig{
			RPWM: rpwm, LPWM: lpwm, REnable: ren, LEnable: lenable,
			Speed: c.Speed, Inverted: c.Inverted,
		})
	case "twopin":
		a, err := pins.Output(c.A)
		if err != nil {
			return nil, err
		}
		b, err := pins.Output(c.B)
		if err != nil {
			return nil, err
		}
		return motor.NewTwoPin(motor.TwoPinConfig{A: a, B: b, Inverted: c.Inverted})
	}
	return nil, errors.Errorf("unknown climb driver %q", c.Driver)
}

func buildCutter(c config.Cut, pins pinSource) (motor.Cutter, error) {
	switch c.Driver {
	case "dcmotor":
		p1, err := pins.Output(c.Pin1)
		if err != nil {
			return nil, err
		}
		p2, err := pins.Output(c.Pin2)
		if err != nil {
			return nil, err
		}
		en, err := pins.PWM(c.Enable, c.Frequency)
		if err != nil {
			return nil, err
		}
		return motor.NewDCMotor(motor.DCMotorConfig{
			Pin1: p1, Pin2: p2, Enable: en,
			MinDuty: c.MinDuty, MaxDuty: c.MaxDuty, Speed: c.Speed,
		})
	case "switch":
		out, err := pins.Output(c.Pin)
		if err != nil {
			return nil, err
		}
		return motor.NewSwitch(out)
	}
	return nil, errors.Errorf("unknown cut driver %q", c.Driver)
}

func buildServos(servos []config.Servo, pins pinSource) (map[int]*motor.Servo, error) {
	out := make(map[int]*motor.Servo)
	for _, s := range servos {
		p, err := pins.PWM(s.Pin, motor.ServoFrequency)
		if err != nil {
			return nil, errors.Wrapf(err, "servo %d", s.Index)
		}
		servo, err := motor.NewServo(p)
		if err != nil {
			return nil, err
		}
		out[s.Index] = servo
	}
	return out, nil
}

// buildMotors wires every motor for the selected machine. Each constructor
// leaves its motor stopped.
func buildMotors(ctx context.Context, machine string, wiring config.Actuator) (motor.Climber, motor.Cutter, map[int]*motor.Servo, error) {
	var pins pinSource
	switch machine {
	case "gpio":
		if err := gpio.Init(); err != nil {
			return nil, nil, nil, err
		}
		pins = gpioPins{}
	case "mock":
		pins = newMockPins(logsetup.New("mock"))
	case "modbus":
		return buildRelayMotors(ctx, wiring)
	default:
		return nil, nil, nil, errors.Errorf("unknown machine type %v", machine)
	}
	climber, err := buildClimber(wiring.Climb, pins)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "climbing motor")
	}
	cutter, err := buildCutter(wiring.Cut, pins)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "cutting motor")
	}
	servos, err := buildServos(wiring.Servos, pins)
	if err != nil {
		return nil, nil, nil, err
	}
	return climber, cutter, servos, nil
}

// buildRelayMotors drives a two-pin climber and a switched cutter from
// coils of a Modbus relay board.
func buildRelayMotors(ctx context.Context, wiring config.Actuator) (motor.Climber, motor.Cutter, map[int]*motor.Servo, error) {
	if wiring.Climb.Driver != "twopin" || wiring.Cut.Driver != "switch" {
		return nil, nil, nil, errors.Wrap(config.ErrInvalid, "modbus machine needs climb.driver = twopin and cut.driver = switch")
	}
	if len(wiring.Servos) > 0 {
		return nil, nil, nil, errors.Wrap(config.ErrInvalid, "modbus machine has no servo outputs")
	}
	board, err := relay.Open(ctx, relay.Config{
		Port:     wiring.Relay.Port,
		BaudRate: wiring.Relay.Baud,
		SlaveID:  byte(wiring.Relay.SlaveID),
		Count:    wiring.Relay.Count,
		Logger:   logsetup.New("relay"),
	})
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "relay board")
	}
	a, err := board.Coil(wiring.Climb.CoilA)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := board.Coil(wiring.Climb.CoilB)
	if err != nil {
		return nil, nil, nil, err
	}
	climber, err := motor.NewTwoPin(motor.TwoPinConfig{A: a, B: b, Inverted: wiring.Climb.Inverted})
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := board.Coil(wiring.Cut.Coil)
	if err != nil {
		return nil, nil, nil, err
	}
	cutter, err := motor.NewSwitch(c)
	if err != nil {
		return nil, nil, nil, err
	}
	return climber, cutter, nil, nil
}
