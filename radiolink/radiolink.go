// Package radiolink is the boundary to the best-effort radio between the
// handheld and the actuator unit. Delivery is never guaranteed; the wire
// protocol re-sends state on every change instead.
package radiolink

import (
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotConnected = errors.New("radio link not connected")
	ErrClosed       = errors.New("radio link closed")
)

// Packet is one inbound message.
type Packet struct {
	Peer     string
	Data     []byte
	Received time.Time
}

type Sender interface {
	// Send transmits msg once. A nil error only means the message was handed
	// to the radio, not that it arrived.
	Send(msg []byte) error
}

type Source interface {
	// Packets is the single inbound queue. It is closed when the link shuts
	// down.
	Packets() <-chan Packet
}

type Link interface {
	Sender
	Source
	Close() error
}

// Rearmer is implemented by links whose hardware can fall out of receive
// mode after handling a packet.
type Rearmer interface {
	Rearm() error
}
