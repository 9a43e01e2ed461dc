package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/config"
	"github.com/w1xm/climber/gpio"
	"github.com/w1xm/climber/input"
	"github.com/w1xm/climber/pin"
	"github.com/w1xm/climber/sampler"
)

type pinFactory func(name, pull string) (pin.Input, error)

func buildSampler(wiring config.Remote, open pinFactory) (*sampler.Sampler, error) {
	var cfg sampler.Config
	for _, b := range wiring.Buttons {
		p, err := open(b.Pin, b.Pull)
		if err != nil {
			return nil, errors.Wrapf(err, "button %s", b.Name)
		}
		cfg.Buttons = append(cfg.Buttons, sampler.ButtonSource{Name: b.Name, Window: b.Debounce, Pin: p})
	}
	for _, e := range wiring.Encoders {
		clk, err := open(e.CLK, e.Pull)
		if err != nil {
			return nil, errors.Wrapf(err, "encoder %d clk", e.Index)
		}
		dt, err := open(e.DT, e.Pull)
		if err != nil {
			return nil, errors.Wrapf(err, "encoder %d dt", e.Index)
		}
		cfg.Encoders = append(cfg.Encoders, sampler.EncoderSource{
			EncoderConfig: input.EncoderConfig{Index: e.Index, Min: e.Min, Max: e.Max, Start: e.Start},
			CLK:           clk,
			DT:            dt,
		})
	}
	return sampler.New(cfg)
}

func gpioInputs() pinFactory {
	return gpio.Input
}

// mockInputs hands out fake pins keyed by pin name.
type mockInputs struct {
	pins    map[string]*pin.Fake
	buttons map[string]*pin.Fake
}

func newMockInputs(wiring config.Remote) *mockInputs {
	m := &mockInputs{pins: map[string]*pin.Fake{}, buttons: map[string]*pin.Fake{}}
	for _, b := range wiring.Buttons {
		m.buttons[b.Name] = m.fake(b.Pin)
	}
	return m
}

func (m *mockInputs) fake(name string) *pin.Fake {
	if p, ok := m.pins[name]; ok {
		return p
	}
	p := pin.NewFake(name)
	m.pins[name] = p
	return p
}

func (m *mockInputs) open(name, pull string) (pin.Input, error) {
	return m.fake(name), nil
}

// drive reads "<BUTTON> <0|1>" lines and sets the matching button pin.
func (m *mockInputs) drive(r io.Reader, logger *log.Entry) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			logger.Warnf("want \"<button> <0|1>\", got %q", scanner.Text())
			continue
		}
		p, ok := m.buttons[strings.ToUpper(fields[0])]
		if !ok {
			logger.Warnf("unknown button %q", fields[0])
			continue
		}
		p.Set(fields[1] == "1")
		logger.Infof("%s -> %s", strings.ToUpper(fields[0]), fields[1])
	}
}
