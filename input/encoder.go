package input

import "github.com/pkg/errors"

var ErrInvalidRange = errors.New("invalid encoder range")

type EncoderConfig struct {
	Index int
	Min   int
	Max   int
	Start int
}

// Encoder decodes a two line mechanical encoder into a position clamped to
// [Min, Max]. Only rising edges of clk move it; dt low on the edge counts up,
// dt high counts down.
type Encoder struct {
	cfg EncoderConfig

	position     int
	lastSent     int
	lastClkLevel bool
}

func NewEncoder(cfg EncoderConfig, initialClk bool) (*Encoder, error) {
	if cfg.Min > cfg.Max {
		return nil, errors.Wrapf(ErrInvalidRange, "encoder %d: min %d > max %d", cfg.Index, cfg.Min, cfg.Max)
	}
	if cfg.Start < cfg.Min || cfg.Start > cfg.Max {
		return nil, errors.Wrapf(ErrInvalidRange, "encoder %d: start %d outside [%d,%d]", cfg.Index, cfg.Start, cfg.Min, cfg.Max)
	}
	return &Encoder{
		cfg:          cfg,
		position:     cfg.Start,
		lastSent:     cfg.Start,
		lastClkLevel: initialClk,
	}, nil
}

func (e *Encoder) Index() int {
	return e.cfg.Index
}

// Read feeds one sample of both lines. changed reports whether the position
// moved, regardless of what has been sent.
func (e *Encoder) Read(clk, dt bool) (changed bool, position int) {
	rising := clk && !e.lastClkLevel
	e.lastClkLevel = clk
	if !rising {
		return false, e.position
	}
	next := e.position + 1
	if dt {
		next = e.position - 1
	}
	if next < e.cfg.Min {
		next = e.cfg.Min
	}
	if next > e.cfg.Max {
		next = e.cfg.Max
	}
	if next == e.position {
		return false, e.position
	}
	e.position = next
	return true, e.position
}

func (e *Encoder) Position() int {
	return e.position
}

// NeedsSend reports whether the position differs from the last value marked
// as sent.
func (e *Encoder) NeedsSend() bool {
	return e.position != e.lastSent
}

// MarkSent records the current position as delivered. Call it only after a
// transmit attempt went out; a failed transmit leaves the value pending.
func (e *Encoder) MarkSent() {
	e.lastSent = e.position
}
