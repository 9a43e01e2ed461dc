package gpio

import (
	"testing"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
)

func TestParsePull(t *testing.T) {
	for _, test := range []struct {
		in   string
		want gpio.Pull
	}{
		{"", gpio.Float},
		{"none", gpio.Float},
		{"UP", gpio.PullUp},
		{"down", gpio.PullDown},
	} {
		got, err := ParsePull(test.in)
		if err != nil || got != test.want {
			t.Errorf("ParsePull(%q) = %v, %v; want %v", test.in, got, err, test.want)
		}
	}
	if _, err := ParsePull("sideways"); err == nil {
		t.Error("ParsePull(sideways) succeeded")
	}
}

func TestUnknownPin(t *testing.T) {
	if _, err := Output("NO_SUCH_PIN_42"); !errors.Is(err, ErrUnknownPin) {
		t.Errorf("Output error = %v, want ErrUnknownPin", err)
	}
}
