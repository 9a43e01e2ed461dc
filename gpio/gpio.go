// Package gpio drives pin.Input, pin.Output and pin.PWM lines through
// periph.io host drivers.
package gpio

import (
	"strings"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"

	"github.com/w1xm/climber/pin"
)

var ErrUnknownPin = errors.New("unknown gpio pin")

// Init loads the periph host drivers. It must be called once before any pin
// is looked up.
func Init() error {
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "could not initialize periph host")
	}
	return nil
}

// ParsePull maps a wiring file pull setting to a periph pull.
func ParsePull(pull string) (gpio.Pull, error) {
	switch strings.ToLower(pull) {
	case "", "none", "float":
		return gpio.Float, nil
	case "up":
		return gpio.PullUp, nil
	case "down":
		return gpio.PullDown, nil
	}
	return gpio.PullNoChange, errors.Errorf("unknown pull %q", pull)
}

func lookup(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Wrapf(ErrUnknownPin, "%q", name)
	}
	return p, nil
}

type input struct {
	p gpio.PinIO
}

func (i input) Read() bool {
	return i.p.Read() == gpio.High
}

// Input configures name as a polled input.
func Input(name string, pull string) (pin.Input, error) {
	pl, err := ParsePull(pull)
	if err != nil {
		return nil, err
	}
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if err := p.In(pl, gpio.NoEdge); err != nil {
		return nil, errors.Wrapf(err, "could not configure %s as input", name)
	}
	return input{p}, nil
}

type output struct {
	p gpio.PinIO
}

func (o output) Out(high bool) error {
	return o.p.Out(gpio.Level(high))
}

// Output configures name as an output, driven low.
func Output(name string) (pin.Output, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "could not configure %s as output", name)
	}
	return output{p}, nil
}

type pwm struct {
	p    gpio.PinIO
	freq physic.Frequency
}

func (w pwm) Duty(fraction float64) error {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return w.p.PWM(gpio.Duty(fraction*float64(gpio.DutyMax)), w.freq)
}

// PWM configures name as a PWM output at hz, starting at zero duty.
func PWM(name string, hz int) (pin.PWM, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	w := pwm{p: p, freq: physic.Frequency(hz) * physic.Hertz}
	if err := w.Duty(0); err != nil {
		return nil, errors.Wrapf(err, "could not configure %s as pwm", name)
	}
	return w, nil
}
