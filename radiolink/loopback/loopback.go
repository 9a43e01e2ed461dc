// Package loopback provides in-memory radio links, wired back to back.
package loopback

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/w1xm/climber/radiolink"
)

var ErrDropped = errors.New("loopback buffer full, packet dropped")

// Link is one end of a loopback pair.
type Link struct {
	name string
	peer *Link

	mu      sync.Mutex
	packets chan radiolink.Packet
	closed  bool
	sent    [][]byte
	failErr error
	rearms  int
}

// Pair returns two links; whatever one sends the other receives. Each
// inbound queue holds up to buffer packets.
func Pair(a, b string, buffer int) (*Link, *Link) {
	la := &Link{name: a, packets: make(chan radiolink.Packet, buffer)}
	lb := &Link{name: b, packets: make(chan radiolink.Packet, buffer)}
	la.peer, lb.peer = lb, la
	return la, lb
}

// Send never blocks.
func (l *Link) Send(msg []byte) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return radiolink.ErrClosed
	}
	if l.failErr != nil {
		err := l.failErr
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()
	data := make([]byte, len(msg))
	copy(data, msg)
	if err := l.peer.deliver(radiolink.Packet{Peer: l.name, Data: data, Received: time.Now()}); err != nil {
		return err
	}
	l.mu.Lock()
	l.sent = append(l.sent, data)
	l.mu.Unlock()
	return nil
}

func (l *Link) deliver(p radiolink.Packet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrDropped
	}
	select {
	case l.packets <- p:
		return nil
	default:
		return ErrDropped
	}
}

// Inject queues data as if peer had sent it.
func (l *Link) Inject(peer string, data []byte) error {
	return l.deliver(radiolink.Packet{Peer: peer, Data: data, Received: time.Now()})
}

func (l *Link) Packets() <-chan radiolink.Packet {
	return l.packets
}

// Sent returns every message the peer accepted.
func (l *Link) Sent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.sent))
	for i, m := range l.sent {
		out[i] = string(m)
	}
	return out
}

func (l *Link) ClearSent() {
	l.mu.Lock()
	l.sent = nil
	l.mu.Unlock()
}

// FailSends makes Send return err until called again with nil.
func (l *Link) FailSends(err error) {
	l.mu.Lock()
	l.failErr = err
	l.mu.Unlock()
}

func (l *Link) Rearm() error {
	l.mu.Lock()
	l.rearms++
	l.mu.Unlock()
	return nil
}

// Rearms counts calls to Rearm.
func (l *Link) Rearms() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rearms
}

// Close closes this end's inbound queue.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.packets)
	return nil
}
