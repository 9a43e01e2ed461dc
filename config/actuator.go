package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Climb wires the climbing motor. Driver is "hbridge" or "twopin". The
// two-pin driver uses pins A and B, or relay coils CoilA and CoilB on a
// Modbus board.
type Climb struct {
	Driver    string  `toml:"driver"`
	RPWM      string  `toml:"rpwm"`
	LPWM      string  `toml:"lpwm"`
	REnable   string  `toml:"ren"`
	LEnable   string  `toml:"len"`
	A         string  `toml:"a"`
	B         string  `toml:"b"`
	CoilA     int     `toml:"coil_a"`
	CoilB     int     `toml:"coil_b"`
	Frequency int     `toml:"frequency"`
	Speed     float64 `toml:"speed"`
	Inverted  bool    `toml:"inverted"`
}

// Cut wires the cutting motor. Driver is "dcmotor" or "switch".
type Cut struct {
	Driver    string  `toml:"driver"`
	Pin1      string  `toml:"pin1"`
	Pin2      string  `toml:"pin2"`
	Enable    string  `toml:"enable"`
	Pin       string  `toml:"pin"`
	Coil      int     `toml:"coil"`
	Frequency int     `toml:"frequency"`
	MinDuty   float64 `toml:"min_duty"`
	MaxDuty   float64 `toml:"max_duty"`
	Speed     float64 `toml:"speed"`
}

// Servo is a pulsed servo driven by encoder reports with the same index.
type Servo struct {
	Index   int           `toml:"index"`
	Pin     string        `toml:"pin"`
	Start   int           `toml:"start"`
	Min     float64       `toml:"min"`
	Max     float64       `toml:"max"`
	Neutral float64       `toml:"neutral"`
	Hold    time.Duration `toml:"hold"`
}

type Relay struct {
	Port    string `toml:"port"`
	Baud    int    `toml:"baud"`
	SlaveID int    `toml:"slave_id"`
	Count   int    `toml:"count"`
}

// Actuator is the wiring of the receiving unit.
type Actuator struct {
	// Peer, if set, is the only radio address commands are accepted from.
	Peer   string  `toml:"peer"`
	Climb  Climb   `toml:"climb"`
	Cut    Cut     `toml:"cut"`
	Servos []Servo `toml:"servos"`
	Relay  Relay   `toml:"relay"`
}

func DefaultActuator() Actuator {
	return Actuator{
		Climb: Climb{
			Driver:    "hbridge",
			RPWM:      "GPIO13",
			LPWM:      "GPIO4",
			REnable:   "GPIO33",
			LEnable:   "GPIO12",
			CoilA:     0,
			CoilB:     1,
			Frequency: 1000,
			Speed:     50,
		},
		Cut: Cut{
			Driver:    "switch",
			Pin:       "GPIO25",
			Coil:      2,
			Frequency: 15000,
			Speed:     100,
		},
		Relay: Relay{
			Port:    "/dev/ttyUSB0",
			Baud:    9600,
			SlaveID: 1,
			Count:   4,
		},
	}
}

// LoadActuator reads path over the defaults and validates the result.
func LoadActuator(path string) (Actuator, error) {
	cfg := DefaultActuator()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Actuator{}, errors.Wrapf(err, "loading %q", path)
	}
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Actuator{}, errors.Wrapf(err, "loading %q", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Actuator{}, invalid("unknown keys in %q: %v", path, undecoded)
	}
	// MetaData keys do not tell array elements apart, so look at the raw
	// tables to see which servo fields were given.
	var raw struct {
		Servos []map[string]interface{} `toml:"servos"`
	}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return Actuator{}, errors.Wrapf(err, "loading %q", path)
	}
	for i, fields := range raw.Servos {
		applyServoDefaults(&cfg.Servos[i], fields)
	}
	return cfg, cfg.Validate()
}

func applyServoDefaults(s *Servo, defined map[string]interface{}) {
	has := func(key string) bool {
		_, ok := defined[key]
		return ok
	}
	if !has("max") {
		s.Max = defaultEncoderMax
	}
	if !has("start") {
		s.Start = defaultEncoderStart
	}
	if !has("neutral") {
		s.Neutral = (s.Min + s.Max) / 2
	}
	if !has("hold") {
		s.Hold = 200 * time.Millisecond
	}
}

func validAngle(a float64) bool {
	return a >= 0 && a <= 180
}

func (a Actuator) Validate() error {
	switch a.Climb.Driver {
	case "hbridge", "twopin":
	default:
		return invalid("climb.driver must be hbridge or twopin, got %q", a.Climb.Driver)
	}
	if a.Climb.Speed <= 0 || a.Climb.Speed > 100 {
		return invalid("climb.speed must be within 1..100, got %v", a.Climb.Speed)
	}
	switch a.Cut.Driver {
	case "dcmotor", "switch":
	default:
		return invalid("cut.driver must be dcmotor or switch, got %q", a.Cut.Driver)
	}
	if a.Cut.Speed <= 0 || a.Cut.Speed > 100 {
		return invalid("cut.speed must be within 1..100, got %v", a.Cut.Speed)
	}
	if a.Cut.MinDuty < 0 || a.Cut.MaxDuty > 1 || (a.Cut.MaxDuty != 0 && a.Cut.MinDuty > a.Cut.MaxDuty) {
		return invalid("cut duty range [%v,%v] must be within 0..1", a.Cut.MinDuty, a.Cut.MaxDuty)
	}
	indices := make(map[int]bool)
	for i, s := range a.Servos {
		if s.Index < 0 || indices[s.Index] {
			return invalid("servos[%d]: index %d negative or duplicated", i, s.Index)
		}
		indices[s.Index] = true
		if !validAngle(s.Min) || !validAngle(s.Max) || !validAngle(s.Neutral) || !validAngle(float64(s.Start)) {
			return invalid("servo %d: angles must be within 0..180", s.Index)
		}
		if s.Hold < 0 {
			return invalid("servo %d: negative hold %v", s.Index, s.Hold)
		}
	}
	if a.Relay.Count < 0 || a.Relay.SlaveID < 0 || a.Relay.SlaveID > 247 {
		return invalid("relay: bad count %d or slave id %d", a.Relay.Count, a.Relay.SlaveID)
	}
	return nil
}
