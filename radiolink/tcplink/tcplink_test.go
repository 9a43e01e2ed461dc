package tcplink

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/w1xm/climber/radiolink"
)

func receive(t *testing.T, l *Listener) radiolink.Packet {
	t.Helper()
	select {
	case p, ok := <-l.Packets():
		if !ok {
			t.Fatal("packets closed")
		}
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no packet received")
	}
	return radiolink.Packet{}
}

func TestDialToListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l, err := Listen(ctx, "127.0.0.1:0", nil)
	if err != nil {
		t.Fatal(err)
	}
	d, err := Dial(l.Addr().String(), "remote", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	for _, msg := range []string{"BTN:CLU=1,CLD=0,CT=0", "E2:91"} {
		if err := d.Send([]byte(msg)); err != nil {
			t.Fatalf("Send(%q): %v", msg, err)
		}
	}
	var got []string
	for i := 0; i < 2; i++ {
		p := receive(t, l)
		if p.Peer != "remote" {
			t.Errorf("peer = %q, want remote", p.Peer)
		}
		got = append(got, string(p.Data))
	}
	if diff := cmp.Diff([]string{"BTN:CLU=1,CLD=0,CT=0", "E2:91"}, got); diff != "" {
		t.Errorf("packets (-want +got):\n%s", diff)
	}

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-l.Packets():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("packets not closed after cancel")
		}
	}
}

func TestAnonymousPeerUsesAddress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l, err := Listen(ctx, "127.0.0.1:0", nil)
	if err != nil {
		t.Fatal(err)
	}
	d, _ := Dial(l.Addr().String(), "", nil)
	defer d.Close()
	if err := d.Send([]byte("E1:5")); err != nil {
		t.Fatal(err)
	}
	if p := receive(t, l); p.Peer == "" || p.Peer == "remote" {
		t.Errorf("peer = %q, want remote address", p.Peer)
	}
}

func TestDialerErrors(t *testing.T) {
	if _, err := Dial("127.0.0.1:1", "a\nb", nil); err == nil {
		t.Error("Dial with line break in name succeeded")
	}
	d, _ := Dial("127.0.0.1:1", "remote", nil)
	if err := d.Send([]byte("E1:1")); err == nil {
		t.Error("Send to closed port succeeded")
	}
	d.Close()
	if err := d.Send([]byte("E1:1")); !errors.Is(err, radiolink.ErrClosed) {
		t.Errorf("Send after Close error = %v, want ErrClosed", err)
	}
}
