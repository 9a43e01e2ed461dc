package motor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/w1xm/climber/actuator"
	"github.com/w1xm/climber/pin"
)

type hbridgePins struct {
	rpwm, lpwm, ren, lenable *pin.Fake
}

func newHBridge(t *testing.T, speed float64, inverted bool) (*HBridge, hbridgePins) {
	t.Helper()
	p := hbridgePins{pin.NewFake("rpwm"), pin.NewFake("lpwm"), pin.NewFake("ren"), pin.NewFake("len")}
	p.ren.Set(true)
	p.lenable.Set(true)
	h, err := NewHBridge(HBridgeConfig{
		RPWM: p.rpwm, LPWM: p.lpwm, REnable: p.ren, LEnable: p.lenable,
		Speed: speed, Inverted: inverted,
	})
	if err != nil {
		t.Fatalf("NewHBridge: %v", err)
	}
	return h, p
}

func TestHBridgeDisabledAtConstruction(t *testing.T) {
	_, p := newHBridge(t, 50, false)
	if p.ren.Level() || p.lenable.Level() {
		t.Error("enables left high after construction")
	}
	if p.rpwm.CurrentDuty() != 0 || p.lpwm.CurrentDuty() != 0 {
		t.Error("pwm left running after construction")
	}
}

func TestHBridgeDirections(t *testing.T) {
	for _, test := range []struct {
		dir        actuator.Direction
		inverted   bool
		rpwm, lpwm float64
		enabled    bool
	}{
		{actuator.Forward, false, 0.5, 0, true},
		{actuator.Reverse, false, 0, 0.5, true},
		{actuator.Forward, true, 0, 0.5, true},
		{actuator.Reverse, true, 0.5, 0, true},
		{actuator.Stop, false, 0, 0, false},
	} {
		h, p := newHBridge(t, 50, test.inverted)
		if err := h.Drive(test.dir); err != nil {
			t.Fatalf("Drive(%v): %v", test.dir, err)
		}
		got := []interface{}{p.rpwm.CurrentDuty(), p.lpwm.CurrentDuty(), p.ren.Level() && p.lenable.Level()}
		want := []interface{}{test.rpwm, test.lpwm, test.enabled}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Drive(%v) inverted=%v (-want +got):\n%s", test.dir, test.inverted, diff)
		}
	}
}

func TestHBridgeRejectsInvalidSpeed(t *testing.T) {
	h, p := newHBridge(t, 50, false)
	h.Drive(actuator.Forward)
	p.rpwm.ClearWrites()
	for _, speed := range []float64{100.5, -101} {
		if err := h.Start(speed); !errors.Is(err, ErrInvalidSpeed) {
			t.Errorf("Start(%v) error = %v, want ErrInvalidSpeed", speed, err)
		}
	}
	if len(p.rpwm.Writes()) != 0 || p.rpwm.CurrentDuty() != 0.5 {
		t.Error("rejected speed touched the pins")
	}
	for _, speed := range []float64{120, 0, -10} {
		if _, err := NewHBridge(HBridgeConfig{RPWM: p.rpwm, LPWM: p.lpwm, REnable: p.ren, LEnable: p.lenable, Speed: speed}); !errors.Is(err, ErrInvalidSpeed) {
			t.Errorf("NewHBridge speed %v error = %v, want ErrInvalidSpeed", speed, err)
		}
	}
}

func TestHBridgeReversalReleasesOtherSide(t *testing.T) {
	h, p := newHBridge(t, 80, false)
	h.Drive(actuator.Forward)
	if err := h.Drive(actuator.Reverse); err != nil {
		t.Fatal(err)
	}
	if p.rpwm.CurrentDuty() != 0 || p.lpwm.CurrentDuty() != 0.8 {
		t.Errorf("after reversal rpwm=%v lpwm=%v", p.rpwm.CurrentDuty(), p.lpwm.CurrentDuty())
	}
}

func TestTwoPin(t *testing.T) {
	for _, test := range []struct {
		dir      actuator.Direction
		inverted bool
		a, b     bool
	}{
		{actuator.Forward, false, true, false},
		{actuator.Reverse, false, false, true},
		{actuator.Forward, true, false, true},
		{actuator.Reverse, true, true, false},
		{actuator.Stop, true, false, false},
	} {
		a, b := pin.NewFake("a"), pin.NewFake("b")
		m, err := NewTwoPin(TwoPinConfig{A: a, B: b, Inverted: test.inverted})
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Drive(test.dir); err != nil {
			t.Fatal(err)
		}
		if a.Level() != test.a || b.Level() != test.b {
			t.Errorf("Drive(%v) inverted=%v: a=%v b=%v, want a=%v b=%v", test.dir, test.inverted, a.Level(), b.Level(), test.a, test.b)
		}
	}
}

func TestNewRejectsMissingPins(t *testing.T) {
	if _, err := NewTwoPin(TwoPinConfig{A: pin.NewFake("a")}); !errors.Is(err, ErrInvalidWiring) {
		t.Errorf("NewTwoPin error = %v, want ErrInvalidWiring", err)
	}
	if _, err := NewHBridge(HBridgeConfig{Speed: 50}); !errors.Is(err, ErrInvalidWiring) {
		t.Errorf("NewHBridge error = %v, want ErrInvalidWiring", err)
	}
}
