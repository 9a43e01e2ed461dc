package dispatch

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/journal"
	"github.com/w1xm/climber/protocol"
	"github.com/w1xm/climber/radiolink"
)

// Recorder stores dispatched packets.
type Recorder interface {
	Record(e journal.Entry) (uint64, error)
}

// Receiver is the single consumer of a radio link's packets.
type Receiver struct {
	Source     radiolink.Source
	Dispatcher *Dispatcher
	// AllowedPeer, if set, drops packets from any other peer.
	AllowedPeer string
	Journal     Recorder
	// DispatchCallback is called with every dispatched packet.
	DispatchCallback func(journal.Entry)
	Logger           *log.Entry
}

// Run dispatches packets until the source is closed or ctx is done, then
// stops every motor.
func (r *Receiver) Run(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	defer func() {
		if err := r.Dispatcher.Stop(); err != nil {
			logger.Errorf("stopping motors on exit: %v", err)
		} else {
			logger.Info("motors stopped")
		}
	}()

	packets := r.Source.Packets()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-packets:
			if !ok {
				logger.Info("radio link closed")
				return nil
			}
			r.handle(logger, p)
			if rearmer, ok := r.Source.(radiolink.Rearmer); ok {
				if err := rearmer.Rearm(); err != nil {
					logger.Warnf("re-arming receiver: %v", err)
				}
			}
		}
	}
}

func (r *Receiver) handle(logger *log.Entry, p radiolink.Packet) {
	if r.AllowedPeer != "" && !strings.EqualFold(p.Peer, r.AllowedPeer) {
		logger.Warnf("dropping packet from unknown peer %q", p.Peer)
		return
	}
	msg := protocol.Decode(p.Data)
	logger.Debugf("packet from %s: %q (%s)", p.Peer, p.Data, msg.Kind())
	cmds, err := r.Dispatcher.Dispatch(msg)

	e := journal.Entry{
		Time: p.Received,
		Peer: p.Peer,
		Raw:  string(p.Data),
		Kind: msg.Kind(),
	}
	for _, c := range cmds {
		e.Commands = append(e.Commands, c.String())
	}
	if err != nil {
		e.Error = err.Error()
	}
	if r.Journal != nil {
		seq, jerr := r.Journal.Record(e)
		if jerr != nil {
			logger.Warnf("journal: %v", jerr)
		}
		e.Seq = seq
	}
	if r.DispatchCallback != nil {
		r.DispatchCallback(e)
	}
}
