package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wiring.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultRemote(t *testing.T) {
	cfg, err := LoadRemote("")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, b := range cfg.Buttons {
		names = append(names, b.Name)
		if b.Debounce != 30*time.Millisecond {
			t.Errorf("button %s debounce = %v, want 30ms", b.Name, b.Debounce)
		}
	}
	if diff := cmp.Diff([]string{"CLU", "CLD", "CT"}, names); diff != "" {
		t.Errorf("buttons (-want +got):\n%s", diff)
	}
	if len(cfg.Encoders) != 4 || cfg.Encoders[0].Index != 1 || cfg.Encoders[3].Start != 90 {
		t.Errorf("encoders = %+v", cfg.Encoders)
	}
	if cfg.PollPeriod != 4*time.Millisecond || cfg.EncoderGap != 5*time.Millisecond {
		t.Errorf("poll %v gap %v", cfg.PollPeriod, cfg.EncoderGap)
	}
}

func TestLoadRemote(t *testing.T) {
	path := writeFile(t, `
peer = "remote-b"
poll_period = "5ms"
encoders = []

[[buttons]]
name = "clu"
pin = "GPIO5"

[[buttons]]
name = "CLD"
pin = "GPIO6"
debounce = "50ms"
`)
	cfg, err := LoadRemote(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Remote{
		Peer:       "remote-b",
		PollPeriod: 5 * time.Millisecond,
		EncoderGap: 5 * time.Millisecond,
		Buttons: []Button{
			{Name: "CLU", Pin: "GPIO5", Debounce: 30 * time.Millisecond},
			{Name: "CLD", Pin: "GPIO6", Debounce: 50 * time.Millisecond},
		},
		Encoders: []Encoder{},
	}
	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("LoadRemote (-want +got):\n%s", diff)
	}
}

func TestRemoteValidate(t *testing.T) {
	for _, test := range []struct {
		name   string
		mutate func(*Remote)
	}{
		{"reserved name", func(r *Remote) { r.Buttons[0].Name = "CL=U" }},
		{"duplicate name", func(r *Remote) { r.Buttons[1].Name = "CLU" }},
		{"missing pin", func(r *Remote) { r.Buttons[2].Pin = "" }},
		{"short debounce", func(r *Remote) { r.Buttons[0].Debounce = 5 * time.Millisecond }},
		{"zero poll", func(r *Remote) { r.PollPeriod = 0 }},
		{"duplicate index", func(r *Remote) { r.Encoders[1].Index = 1 }},
		{"negative index", func(r *Remote) { r.Encoders[0].Index = -1 }},
		{"start outside", func(r *Remote) { r.Encoders[0].Start = 200 }},
		{"min above max", func(r *Remote) { r.Encoders[0].Min = 190 }},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultRemote()
			test.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, `pol_period = "4ms"`)
	if _, err := LoadRemote(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("LoadRemote = %v, want ErrInvalid", err)
	}
}

func TestLoadActuator(t *testing.T) {
	path := writeFile(t, `
peer = "remote"

[climb]
driver = "twopin"
a = "GPIO20"
b = "GPIO21"
inverted = true

[[servos]]
index = 2
pin = "GPIO18"
start = 90
`)
	cfg, err := LoadActuator(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Climb.Driver != "twopin" || !cfg.Climb.Inverted || cfg.Climb.Speed != 50 {
		t.Errorf("climb = %+v", cfg.Climb)
	}
	if cfg.Cut.Driver != "switch" {
		t.Errorf("cut driver = %q, want default switch", cfg.Cut.Driver)
	}
	want := []Servo{{Index: 2, Pin: "GPIO18", Start: 90, Min: 0, Max: 180, Neutral: 90, Hold: 200 * time.Millisecond}}
	if diff := cmp.Diff(want, cfg.Servos); diff != "" {
		t.Errorf("servos (-want +got):\n%s", diff)
	}
}

func TestLoadActuatorServoDefaults(t *testing.T) {
	path := writeFile(t, `
[[servos]]
index = 1
pin = "GPIO5"

[[servos]]
index = 2
pin = "GPIO6"
min = 0
max = 170
start = 20
neutral = 0
hold = "50ms"
`)
	cfg, err := LoadActuator(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []Servo{
		{Index: 1, Pin: "GPIO5", Start: 90, Min: 0, Max: 180, Neutral: 90, Hold: 200 * time.Millisecond},
		{Index: 2, Pin: "GPIO6", Start: 20, Min: 0, Max: 170, Neutral: 0, Hold: 50 * time.Millisecond},
	}
	if diff := cmp.Diff(want, cfg.Servos); diff != "" {
		t.Errorf("servos (-want +got):\n%s", diff)
	}
	remote := DefaultRemote()
	if start := remote.Encoders[0].Start; cfg.Servos[0].Start != start {
		t.Errorf("servo 1 start = %d, remote encoder 1 start = %d", cfg.Servos[0].Start, start)
	}
}

func TestActuatorValidate(t *testing.T) {
	for _, test := range []struct {
		name   string
		mutate func(*Actuator)
	}{
		{"climb driver", func(a *Actuator) { a.Climb.Driver = "stepper" }},
		{"climb speed", func(a *Actuator) { a.Climb.Speed = 120 }},
		{"zero climb speed", func(a *Actuator) { a.Climb.Speed = 0 }},
		{"servo start", func(a *Actuator) { a.Servos = []Servo{{Index: 1, Max: 180, Start: 181}} }},
		{"cut driver", func(a *Actuator) { a.Cut.Driver = "" }},
		{"cut speed", func(a *Actuator) { a.Cut.Speed = 0 }},
		{"servo angle", func(a *Actuator) { a.Servos = []Servo{{Index: 1, Max: 200}} }},
		{"servo index", func(a *Actuator) { a.Servos = []Servo{{Index: 1, Max: 180}, {Index: 1, Max: 180}} }},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultActuator()
			test.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
	if err := DefaultActuator().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}
