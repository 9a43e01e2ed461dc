package motor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/w1xm/climber/actuator"
	"github.com/w1xm/climber/pin"
)

type fakeClimber struct {
	calls []actuator.Direction
	fail  map[actuator.Direction]error
}

func (f *fakeClimber) Drive(d actuator.Direction) error {
	f.calls = append(f.calls, d)
	return f.fail[d]
}

type fakeCutter struct {
	calls []bool
	fail  map[bool]error
}

func (f *fakeCutter) Run(on bool) error {
	f.calls = append(f.calls, on)
	return f.fail[on]
}

func newDriver(t *testing.T) (*Driver, *fakeClimber, *fakeCutter, *[]actuator.State) {
	t.Helper()
	climb, cut := &fakeClimber{}, &fakeCutter{}
	var states []actuator.State
	d, err := New(Config{
		Climber:       climb,
		Cutter:        cut,
		StateCallback: func(s actuator.State) { states = append(states, s) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, climb, cut, &states
}

func TestNewForcesStop(t *testing.T) {
	_, climb, cut, _ := newDriver(t)
	if diff := cmp.Diff([]actuator.Direction{actuator.Stop}, climb.calls); diff != "" {
		t.Errorf("climber calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false}, cut.calls); diff != "" {
		t.Errorf("cutter calls (-want +got):\n%s", diff)
	}
}

func TestNewFailsWhenStopFails(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(Config{
		Climber: &fakeClimber{fail: map[actuator.Direction]error{actuator.Stop: boom}},
		Cutter:  &fakeCutter{},
	})
	if errors.Cause(err) != boom {
		t.Errorf("New error = %v, want boom", err)
	}
	if _, err := New(Config{Climber: &fakeClimber{}}); !errors.Is(err, ErrInvalidWiring) {
		t.Errorf("New without cutter error = %v, want ErrInvalidWiring", err)
	}
}

func TestClimbTransitions(t *testing.T) {
	d, climb, _, states := newDriver(t)
	climb.calls = nil
	for _, dir := range []actuator.Direction{
		actuator.Forward,
		actuator.Forward,
		actuator.Reverse,
		actuator.Stop,
		actuator.Stop,
	} {
		if err := d.SetClimb(dir); err != nil {
			t.Fatalf("SetClimb(%v): %v", dir, err)
		}
		if got := d.State().Climb; got != dir {
			t.Errorf("after SetClimb(%v) state = %v", dir, got)
		}
	}
	// The repeated Forward is absorbed; the repeated Stop is not.
	wantCalls := []actuator.Direction{actuator.Forward, actuator.Reverse, actuator.Stop, actuator.Stop}
	if diff := cmp.Diff(wantCalls, climb.calls); diff != "" {
		t.Errorf("climber calls (-want +got):\n%s", diff)
	}
	wantStates := []actuator.State{
		{Climb: actuator.Forward},
		{Climb: actuator.Reverse},
		{Climb: actuator.Stop},
	}
	if diff := cmp.Diff(wantStates, *states); diff != "" {
		t.Errorf("state callbacks (-want +got):\n%s", diff)
	}
}

func TestClimbFailureStops(t *testing.T) {
	d, climb, _, _ := newDriver(t)
	climb.fail = map[actuator.Direction]error{actuator.Reverse: errors.New("stalled")}
	if err := d.SetClimb(actuator.Forward); err != nil {
		t.Fatal(err)
	}
	climb.calls = nil
	if err := d.SetClimb(actuator.Reverse); err == nil {
		t.Fatal("SetClimb(Reverse) succeeded, want error")
	}
	if got := d.State().Climb; got != actuator.Stop {
		t.Errorf("state after failure = %v, want stop", got)
	}
	if diff := cmp.Diff([]actuator.Direction{actuator.Reverse, actuator.Stop}, climb.calls); diff != "" {
		t.Errorf("climber calls (-want +got):\n%s", diff)
	}
}

func TestClimbInvalidSpeedKeepsState(t *testing.T) {
	d, climb, _, _ := newDriver(t)
	d.SetClimb(actuator.Forward)
	climb.fail = map[actuator.Direction]error{actuator.Reverse: errors.Wrap(ErrInvalidSpeed, "150")}
	if err := d.SetClimb(actuator.Reverse); !errors.Is(err, ErrInvalidSpeed) {
		t.Fatalf("SetClimb error = %v, want ErrInvalidSpeed", err)
	}
	if got := d.State().Climb; got != actuator.Forward {
		t.Errorf("state = %v, want forward", got)
	}
}

func TestClimbRejectsUnknownDirection(t *testing.T) {
	d, climb, _, _ := newDriver(t)
	climb.calls = nil
	if err := d.SetClimb(actuator.Direction(7)); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("error = %v, want ErrInvalidDirection", err)
	}
	if len(climb.calls) != 0 {
		t.Errorf("unknown direction reached the motor: %v", climb.calls)
	}
}

func TestCut(t *testing.T) {
	d, _, cut, states := newDriver(t)
	cut.calls = nil
	for _, on := range []bool{true, true, false, false} {
		if err := d.SetCut(on); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]bool{true, false, false}, cut.calls); diff != "" {
		t.Errorf("cutter calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]actuator.State{{Cutting: true}, {}}, *states); diff != "" {
		t.Errorf("state callbacks (-want +got):\n%s", diff)
	}

	cut.fail = map[bool]error{true: errors.New("jammed")}
	cut.calls = nil
	if err := d.SetCut(true); err == nil {
		t.Fatal("SetCut(true) succeeded, want error")
	}
	if d.State().Cutting {
		t.Error("cutting after failure")
	}
	if diff := cmp.Diff([]bool{true, false}, cut.calls); diff != "" {
		t.Errorf("cutter calls (-want +got):\n%s", diff)
	}
}

func TestStopTriesEveryMotor(t *testing.T) {
	d, climb, cut, _ := newDriver(t)
	d.SetClimb(actuator.Forward)
	d.SetCut(true)
	climb.fail = map[actuator.Direction]error{actuator.Stop: errors.New("stuck")}
	cut.calls = nil
	if err := d.Stop(); err == nil {
		t.Error("Stop succeeded, want error")
	}
	if diff := cmp.Diff([]bool{false}, cut.calls); diff != "" {
		t.Errorf("cutter calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(actuator.State{}, d.State()); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
}

func TestServos(t *testing.T) {
	out := pin.NewFake("servo2")
	s, _ := NewServo(out)
	d, err := New(Config{Climber: &fakeClimber{}, Cutter: &fakeCutter{}, Servos: map[int]*Servo{2: s}})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetServo(2, 45); err != nil {
		t.Fatal(err)
	}
	if s.Angle() != 45 {
		t.Errorf("angle = %v, want 45", s.Angle())
	}
	if err := d.SetServo(1, 45); !errors.Is(err, ErrNoServo) {
		t.Errorf("SetServo(1) error = %v, want ErrNoServo", err)
	}
	if err := d.SetServo(2, -1); !errors.Is(err, ErrInvalidAngle) {
		t.Errorf("SetServo(2, -1) error = %v, want ErrInvalidAngle", err)
	}
}
