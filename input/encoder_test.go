package input

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
)

func newEncoder(t *testing.T, min, max, start int) *Encoder {
	t.Helper()
	e, err := NewEncoder(EncoderConfig{Index: 1, Min: min, Max: max, Start: start}, false)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	return e
}

func TestEncoderCountsRisingEdges(t *testing.T) {
	e := newEncoder(t, 0, 180, 90)
	events := 0
	for i := 0; i < 3; i++ {
		if changed, _ := e.Read(true, false); changed {
			events++
		}
		if changed, _ := e.Read(false, false); changed {
			t.Fatal("falling edge moved the encoder")
		}
	}
	if events != 3 {
		t.Errorf("got %d change events, want 3", events)
	}
	if got := e.Position(); got != 93 {
		t.Errorf("Position = %d, want 93", got)
	}
}

func TestEncoderDirection(t *testing.T) {
	e := newEncoder(t, -5, 5, 0)
	e.Read(true, true)
	e.Read(false, true)
	if got := e.Position(); got != -1 {
		t.Errorf("dt high: Position = %d, want -1", got)
	}
	if changed, _ := e.Read(false, false); changed {
		t.Error("steady low clk moved the encoder")
	}
}

func TestEncoderClamps(t *testing.T) {
	e := newEncoder(t, 0, 2, 1)
	e.Read(true, false)
	e.Read(false, false)
	changed, pos := e.Read(true, false)
	if changed || pos != 2 {
		t.Errorf("clamped edge = (%v, %d), want (false, 2)", changed, pos)
	}
}

func TestEncoderStaysInRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	e := newEncoder(t, 10, 20, 15)
	for i := 0; i < 10000; i++ {
		_, pos := e.Read(r.Intn(2) == 0, r.Intn(2) == 0)
		if pos < 10 || pos > 20 {
			t.Fatalf("step %d: position %d out of [10,20]", i, pos)
		}
	}
}

func TestEncoderSendTracking(t *testing.T) {
	e := newEncoder(t, 0, 180, 90)
	if e.NeedsSend() {
		t.Fatal("fresh encoder needs send")
	}
	e.Read(true, false)
	if !e.NeedsSend() {
		t.Fatal("moved encoder does not need send")
	}
	e.MarkSent()
	if e.NeedsSend() {
		t.Fatal("NeedsSend true right after MarkSent")
	}
	e.Read(false, false)
	e.Read(true, false)
	e.Read(false, false)
	e.Read(true, true)
	if e.NeedsSend() {
		t.Error("NeedsSend true after returning to the sent position")
	}
}

func TestNewEncoderRejectsBadRange(t *testing.T) {
	for _, cfg := range []EncoderConfig{
		{Min: 10, Max: 0, Start: 5},
		{Min: 0, Max: 10, Start: 11},
		{Min: 0, Max: 10, Start: -1},
	} {
		if _, err := NewEncoder(cfg, false); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("NewEncoder(%+v) error = %v, want ErrInvalidRange", cfg, err)
		}
	}
}
