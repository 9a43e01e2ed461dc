// Package relay drives a Modbus RTU relay board; each coil is a pin.Output.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/internal/modbus"
	"github.com/w1xm/climber/pin"
)

type Config struct {
	Port     string
	BaudRate int
	SlaveID  byte
	// Count is the number of coils on the board.
	Count        int
	PollInterval time.Duration
	Logger       *log.Entry
}

type coilClient interface {
	WriteCoil(coil int, value bool) error
	ReadCoils(address, quantity uint16) ([]byte, error)
}

type Board struct {
	count int
	log   *log.Entry

	mu     sync.Mutex
	client coilClient
	coils  []bool
}

// Open connects to the board before returning so that the caller can
// force its outputs off immediately.
func Open(ctx context.Context, cfg Config) (*Board, error) {
	if cfg.Count <= 0 {
		return nil, errors.Errorf("relay board needs a positive coil count, got %d", cfg.Count)
	}
	if cfg.SlaveID == 0 {
		cfg.SlaveID = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewEntry(log.StandardLogger())
	}
	client := &modbus.Client{
		Port:         cfg.Port,
		BaudRate:     cfg.BaudRate,
		SlaveId:      cfg.SlaveID,
		PollInterval: cfg.PollInterval,
		Logger:       cfg.Logger,
	}
	b := newBoard(client, cfg.Count, cfg.Logger)
	client.Poll = b.pollOnce
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func newBoard(client coilClient, count int, logger *log.Entry) *Board {
	return &Board{
		client: client,
		count:  count,
		log:    logger,
		coils:  make([]bool, count),
	}
}

func (b *Board) pollOnce() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	results, err := b.client.ReadCoils(0, uint16(b.count))
	if err != nil {
		return err
	}
	bits := modbus.BytesToBits(results)
	if len(bits) < b.count {
		return errors.Errorf("read %d coils, want %d", len(bits), b.count)
	}
	copy(b.coils, bits[:b.count])
	return nil
}

func (b *Board) write(n int, high bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.client.WriteCoil(n, high); err != nil {
		return errors.Wrapf(err, "writing coil %d", n)
	}
	b.coils[n] = high
	b.log.Debugf("coil %d -> %v", n, high)
	return nil
}

// Coil returns coil n, counted from zero, as an output.
func (b *Board) Coil(n int) (pin.Output, error) {
	if n < 0 || n >= b.count {
		return nil, errors.Errorf("coil %d out of range [0,%d)", n, b.count)
	}
	return coil{b: b, n: n}, nil
}

// Coils returns the last known coil states.
func (b *Board) Coils() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.coils...)
}

type coil struct {
	b *Board
	n int
}

func (c coil) Out(high bool) error {
	return c.b.write(c.n, high)
}
