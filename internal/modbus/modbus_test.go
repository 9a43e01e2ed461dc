package modbus

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBytesToBits(t *testing.T) {
	for _, test := range []struct {
		in   []byte
		want []bool
	}{
		{nil, nil},
		{[]byte{0x01}, []bool{true, false, false, false, false, false, false, false}},
		{[]byte{0x80, 0x03}, []bool{
			false, false, false, false, false, false, false, true,
			true, true, false, false, false, false, false, false,
		}},
	} {
		if diff := cmp.Diff(test.want, BytesToBits(test.in)); diff != "" {
			t.Errorf("BytesToBits(%x) (-want +got):\n%s", test.in, diff)
		}
	}
}

func TestConnectFailsSynchronously(t *testing.T) {
	c := &Client{Port: "/nonexistent/relay-board", SlaveId: 1}
	if err := c.Connect(context.Background()); err == nil {
		t.Error("Connect to a missing port succeeded")
	}
}
