package sampler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/internal/metrics"
	"github.com/w1xm/climber/protocol"
	"github.com/w1xm/climber/radiolink"
)

const (
	DefaultPollPeriod = 4 * time.Millisecond
	DefaultEncoderGap = 5 * time.Millisecond
)

type TransmitterConfig struct {
	Sampler *Sampler
	Link    radiolink.Sender
	// PollPeriod must stay well below the fastest encoder transition; a
	// skipped edge is never recovered.
	PollPeriod time.Duration
	// EncoderGap is slept after every successful encoder transmit.
	EncoderGap time.Duration
	Logger     *log.Entry
}

// Transmitter runs the handheld's single cooperative loop: sample, diff,
// transmit, sleep. Transmit failures are logged and left for the next tick.
type Transmitter struct {
	sampler    *Sampler
	link       radiolink.Sender
	pollPeriod time.Duration
	encoderGap time.Duration
	log        *log.Entry

	lastSent []protocol.ButtonLevel

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

func NewTransmitter(cfg TransmitterConfig) *Transmitter {
	t := &Transmitter{
		sampler:    cfg.Sampler,
		link:       cfg.Link,
		pollPeriod: cfg.PollPeriod,
		encoderGap: cfg.EncoderGap,
		log:        cfg.Logger,
		sleep:      time.Sleep,
	}
	if t.pollPeriod <= 0 {
		t.pollPeriod = DefaultPollPeriod
	}
	if t.log == nil {
		t.log = log.NewEntry(log.StandardLogger())
	}
	// The receiver starts stopped, which is what an idle snapshot asks for.
	t.lastSent = cfg.Sampler.Buttons()
	return t
}

// Tick runs one poll and transmit step.
func (t *Transmitter) Tick(now time.Time) {
	for _, ev := range t.sampler.Poll(now) {
		switch ev := ev.(type) {
		case ButtonChanged:
			t.log.Debugf("button %s -> %v", ev.Name, ev.Level)
		case EncoderChanged:
			t.log.Debugf("encoder %d -> %d", ev.Index, ev.Position)
		}
	}

	if snapshot := t.sampler.Buttons(); !sameLevels(snapshot, t.lastSent) {
		msg, err := protocol.EncodeButtons(snapshot)
		if err != nil {
			// Names are validated at construction.
			t.log.Errorf("could not encode buttons: %v", err)
		} else if t.send("button", msg) {
			t.lastSent = snapshot
		}
	}

	for _, e := range t.sampler.Encoders() {
		if !e.NeedsSend() {
			continue
		}
		if !t.send("encoder", protocol.EncodeEncoder(e.Index(), e.Position())) {
			continue
		}
		e.MarkSent()
		if t.encoderGap > 0 {
			t.sleep(t.encoderGap)
		}
	}
}

func (t *Transmitter) send(kind string, msg []byte) bool {
	err := t.link.Send(msg)
	metrics.RecordTransmit(kind, err)
	if err != nil {
		t.log.Warnf("could not send %q: %v", msg, err)
		return false
	}
	t.log.Debugf("sent %q", msg)
	return true
}

// Run ticks every poll period until ctx is done.
func (t *Transmitter) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.pollPeriod)
	defer ticker.Stop()
	t.log.Infof("polling %d buttons and %d encoders every %v", len(t.sampler.buttons), len(t.sampler.encoders), t.pollPeriod)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			t.Tick(now)
		}
	}
}

func sameLevels(a, b []protocol.ButtonLevel) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
