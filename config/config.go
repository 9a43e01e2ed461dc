// Package config loads the TOML wiring files of the remote and the actuator
// unit. A missing path means the built-in defaults for the reference
// hardware.
package config

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/w1xm/climber/protocol"
)

var ErrInvalid = errors.New("invalid configuration")

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalid, format, args...)
}

// DefaultPeer is the radio address of the reference actuator unit.
const DefaultPeer = "30:ae:a4:f6:7d:4c"

type Button struct {
	Name     string        `toml:"name"`
	Pin      string        `toml:"pin"`
	Pull     string        `toml:"pull"`
	Debounce time.Duration `toml:"debounce"`
}

type Encoder struct {
	Index int    `toml:"index"`
	CLK   string `toml:"clk"`
	DT    string `toml:"dt"`
	Pull  string `toml:"pull"`
	Min   int    `toml:"min"`
	Max   int    `toml:"max"`
	Start int    `toml:"start"`
}

// Remote is the wiring of the handheld transmitter.
type Remote struct {
	// Peer is the radio address messages are sent to.
	Peer       string        `toml:"peer"`
	PollPeriod time.Duration `toml:"poll_period"`
	EncoderGap time.Duration `toml:"encoder_gap"`
	Buttons    []Button      `toml:"buttons"`
	Encoders   []Encoder     `toml:"encoders"`
}

const (
	defaultDebounce   = 30 * time.Millisecond
	defaultPollPeriod = 4 * time.Millisecond
	defaultEncoderGap = 5 * time.Millisecond

	// Shared by the remote's encoders and the actuator's servos.
	defaultEncoderMax   = 180
	defaultEncoderStart = 90
)

func defaultButtons() []Button {
	return []Button{
		{Name: "CLU", Pin: "GPIO34", Debounce: defaultDebounce},
		{Name: "CLD", Pin: "GPIO22", Debounce: defaultDebounce},
		{Name: "CT", Pin: "GPIO17", Debounce: defaultDebounce},
	}
}

func defaultEncoders() []Encoder {
	pins := [][2]string{{"GPIO32", "GPIO33"}, {"GPIO14", "GPIO27"}, {"GPIO13", "GPIO12"}, {"GPIO25", "GPIO26"}}
	var out []Encoder
	for i, p := range pins {
		out = append(out, Encoder{Index: i + 1, CLK: p[0], DT: p[1], Min: 0, Max: defaultEncoderMax, Start: defaultEncoderStart})
	}
	return out
}

func DefaultRemote() Remote {
	return Remote{
		Peer:       DefaultPeer,
		PollPeriod: defaultPollPeriod,
		EncoderGap: defaultEncoderGap,
		Buttons:    defaultButtons(),
		Encoders:   defaultEncoders(),
	}
}

// LoadRemote reads path, fills unset values with defaults and validates
// the result.
func LoadRemote(path string) (Remote, error) {
	if path == "" {
		cfg := DefaultRemote()
		return cfg, cfg.Validate()
	}
	var cfg Remote
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Remote{}, errors.Wrapf(err, "loading %q", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Remote{}, invalid("unknown keys in %q: %v", path, undecoded)
	}
	if cfg.Peer == "" {
		cfg.Peer = DefaultPeer
	}
	if cfg.PollPeriod == 0 {
		cfg.PollPeriod = defaultPollPeriod
	}
	if cfg.EncoderGap == 0 {
		cfg.EncoderGap = defaultEncoderGap
	}
	if !meta.IsDefined("buttons") {
		cfg.Buttons = defaultButtons()
	}
	if !meta.IsDefined("encoders") {
		cfg.Encoders = defaultEncoders()
	}
	for i := range cfg.Buttons {
		cfg.Buttons[i].Name = strings.ToUpper(strings.TrimSpace(cfg.Buttons[i].Name))
		if cfg.Buttons[i].Debounce == 0 {
			cfg.Buttons[i].Debounce = defaultDebounce
		}
	}
	return cfg, cfg.Validate()
}

func (r Remote) Validate() error {
	if r.PollPeriod <= 0 {
		return invalid("poll_period must be positive, got %v", r.PollPeriod)
	}
	if r.EncoderGap < 0 {
		return invalid("encoder_gap must not be negative, got %v", r.EncoderGap)
	}
	if r.Peer == "" {
		return invalid("peer not set")
	}
	names := make(map[string]bool)
	for i, b := range r.Buttons {
		if err := protocol.ValidateName(b.Name); err != nil {
			return invalid("buttons[%d]: %v", i, err)
		}
		if names[b.Name] {
			return invalid("buttons[%d]: duplicate name %q", i, b.Name)
		}
		names[b.Name] = true
		if b.Pin == "" {
			return invalid("button %s: pin not set", b.Name)
		}
		if b.Debounce < 2*r.PollPeriod {
			return invalid("button %s: debounce %v shorter than two poll periods", b.Name, b.Debounce)
		}
	}
	indices := make(map[int]bool)
	for i, e := range r.Encoders {
		if e.Index < 0 {
			return invalid("encoders[%d]: negative index %d", i, e.Index)
		}
		if indices[e.Index] {
			return invalid("encoders[%d]: duplicate index %d", i, e.Index)
		}
		indices[e.Index] = true
		if e.CLK == "" || e.DT == "" {
			return invalid("encoder %d: clk and dt pins must be set", e.Index)
		}
		if e.Min > e.Max || e.Start < e.Min || e.Start > e.Max {
			return invalid("encoder %d: need min <= start <= max, got %d <= %d <= %d", e.Index, e.Min, e.Start, e.Max)
		}
	}
	return nil
}
