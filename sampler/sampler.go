// Package sampler polls the handheld's buttons and encoders and transmits
// their state changes over a radio link.
package sampler

import (
	"time"

	"github.com/pkg/errors"

	"github.com/w1xm/climber/input"
	"github.com/w1xm/climber/pin"
	"github.com/w1xm/climber/protocol"
)

// ChangeEvent is either a ButtonChanged or an EncoderChanged.
type ChangeEvent interface {
	isChangeEvent()
}

type ButtonChanged struct {
	Name  string
	Level bool
	// At is when the new level was committed.
	At time.Time
}

type EncoderChanged struct {
	Index    int
	Position int
}

func (ButtonChanged) isChangeEvent()  {}
func (EncoderChanged) isChangeEvent() {}

type ButtonSource struct {
	Name   string
	Window time.Duration
	Pin    pin.Input
}

type EncoderSource struct {
	input.EncoderConfig
	CLK pin.Input
	DT  pin.Input
}

type Config struct {
	Buttons  []ButtonSource
	Encoders []EncoderSource
}

type trackedButton struct {
	*input.Button
	pin pin.Input
}

type trackedEncoder struct {
	*input.Encoder
	clk, dt pin.Input
}

// Sampler owns a fixed set of inputs. The set and its order are fixed at
// construction.
type Sampler struct {
	buttons  []trackedButton
	encoders []trackedEncoder
}

// New reads every pin once to seed the initial levels.
func New(cfg Config) (*Sampler, error) {
	s := &Sampler{}
	names := make(map[string]bool)
	for _, src := range cfg.Buttons {
		if err := protocol.ValidateName(src.Name); err != nil {
			return nil, errors.Wrapf(err, "button %q", src.Name)
		}
		if names[src.Name] {
			return nil, errors.Errorf("duplicate button %q", src.Name)
		}
		names[src.Name] = true
		if src.Pin == nil {
			return nil, errors.Errorf("button %q has no pin", src.Name)
		}
		s.buttons = append(s.buttons, trackedButton{
			Button: input.NewButton(src.Name, src.Window, src.Pin.Read()),
			pin:    src.Pin,
		})
	}
	indices := make(map[int]bool)
	for _, src := range cfg.Encoders {
		if indices[src.Index] {
			return nil, errors.Errorf("duplicate encoder %d", src.Index)
		}
		indices[src.Index] = true
		if src.CLK == nil || src.DT == nil {
			return nil, errors.Errorf("encoder %d is missing a pin", src.Index)
		}
		e, err := input.NewEncoder(src.EncoderConfig, src.CLK.Read())
		if err != nil {
			return nil, err
		}
		s.encoders = append(s.encoders, trackedEncoder{Encoder: e, clk: src.CLK, dt: src.DT})
	}
	return s, nil
}

// Poll samples every input once.
func (s *Sampler) Poll(now time.Time) []ChangeEvent {
	var events []ChangeEvent
	for _, b := range s.buttons {
		if changed, level := b.Read(b.pin.Read(), now); changed {
			events = append(events, ButtonChanged{Name: b.Name, Level: level, At: b.LastTransition()})
		}
	}
	for _, e := range s.encoders {
		if changed, pos := e.Read(e.clk.Read(), e.dt.Read()); changed {
			events = append(events, EncoderChanged{Index: e.Index(), Position: pos})
		}
	}
	return events
}

// Buttons returns the stable level of every button in construction order.
func (s *Sampler) Buttons() []protocol.ButtonLevel {
	out := make([]protocol.ButtonLevel, len(s.buttons))
	for i, b := range s.buttons {
		out[i] = protocol.ButtonLevel{Name: b.Name, Level: b.Level()}
	}
	return out
}

// Encoders returns the encoders in construction order.
func (s *Sampler) Encoders() []*input.Encoder {
	out := make([]*input.Encoder, len(s.encoders))
	for i, e := range s.encoders {
		out[i] = e.Encoder
	}
	return out
}
