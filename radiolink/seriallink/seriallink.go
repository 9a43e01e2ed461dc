// Package seriallink talks to a radio modem bridge over a UART.
//
// The bridge speaks a line protocol:
//
//	TX <peer> <payload>   host to bridge, send payload to peer
//	RXMODE                host to bridge, put the radio back in receive mode
//	RX <peer> <payload>   bridge to host, payload received from peer
//	!<text>               bridge to host, diagnostic
package seriallink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"
	"golang.org/x/sync/errgroup"

	"github.com/w1xm/climber/radiolink"
)

type Config struct {
	Port string
	Baud int
	// Peer is the address TX lines are sent to.
	Peer string
	// RetryInterval is the delay between reconnect attempts; default 1s.
	RetryInterval time.Duration
	Logger        *log.Entry
}

type Link struct {
	cfg    Config
	log    *log.Entry
	open   func(name string, baud int) (io.ReadWriteCloser, error)
	cancel context.CancelFunc

	mu      sync.Mutex
	port    io.ReadWriteCloser
	packets chan radiolink.Packet
}

var _ radiolink.Link = (*Link)(nil)
var _ radiolink.Rearmer = (*Link)(nil)

func openSerial(name string, baud int) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{Name: name, Baud: baud})
}

// Open starts the reconnect loop and returns immediately. Packets is closed
// once ctx is done or Close is called.
func Open(ctx context.Context, cfg Config) (*Link, error) {
	return open(ctx, cfg, openSerial)
}

func open(ctx context.Context, cfg Config, opener func(string, int) (io.ReadWriteCloser, error)) (*Link, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port not set")
	}
	if cfg.Peer == "" || strings.ContainsAny(cfg.Peer, " \r\n") {
		return nil, errors.Errorf("invalid peer %q", cfg.Peer)
	}
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &Link{
		cfg:     cfg,
		log:     cfg.Logger,
		open:    opener,
		cancel:  cancel,
		packets: make(chan radiolink.Packet, 16),
	}
	if l.log == nil {
		l.log = log.NewEntry(log.StandardLogger())
	}
	go l.reconnectLoop(ctx)
	return l, nil
}

func (l *Link) reconnectLoop(ctx context.Context) {
	defer close(l.packets)
	for {
		port, err := l.open(l.cfg.Port, l.cfg.Baud)
		if err != nil {
			l.log.Warnf("opening %q: %v", l.cfg.Port, err)
		} else {
			l.log.Infof("opened %q", l.cfg.Port)
			l.mu.Lock()
			l.port = port
			l.mu.Unlock()
			if err := l.watch(ctx, port); err != nil && ctx.Err() == nil {
				l.log.Warnf("reading %q: %v", l.cfg.Port, err)
			}
			l.mu.Lock()
			l.port = nil
			l.mu.Unlock()
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.cfg.RetryInterval):
		}
	}
}

var errEOF = errors.New("serial port closed")

func (l *Link) watch(ctx context.Context, port io.ReadWriteCloser) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return port.Close()
	})
	g.Go(func() error {
		scanner := bufio.NewScanner(port)
		for scanner.Scan() {
			l.handleLine(gctx, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return err
		}
		return errEOF
	})
	err := g.Wait()
	if err == errEOF {
		return nil
	}
	return err
}

type lineKind int

const (
	lineEmpty lineKind = iota
	lineReceive
	lineDiagnostic
	lineUnknown
)

// parseLine splits one bridge line. For receive lines it returns the peer
// and payload.
func parseLine(line string) (lineKind, string, string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return lineEmpty, "", ""
	}
	if line[0] == '!' {
		return lineDiagnostic, "", strings.TrimSpace(line[1:])
	}
	fields := strings.SplitN(line, " ", 3)
	if len(fields) == 3 && fields[0] == "RX" && fields[1] != "" {
		return lineReceive, fields[1], fields[2]
	}
	return lineUnknown, "", line
}

func (l *Link) handleLine(ctx context.Context, line string) {
	kind, peer, payload := parseLine(line)
	switch kind {
	case lineEmpty:
	case lineDiagnostic:
		l.log.Infof("bridge: %s", payload)
	case lineReceive:
		p := radiolink.Packet{Peer: peer, Data: []byte(payload), Received: time.Now()}
		// Never block the reader; the remote does not drain Packets.
		select {
		case l.packets <- p:
		case <-ctx.Done():
		default:
			l.log.Debugf("dropping packet from %s: queue full", peer)
		}
	default:
		l.log.Warnf("unknown input: %s", payload)
	}
}

func (l *Link) write(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return radiolink.ErrNotConnected
	}
	if _, err := io.WriteString(l.port, line); err != nil {
		return errors.Wrapf(err, "writing %q", l.cfg.Port)
	}
	return nil
}

func (l *Link) Send(msg []byte) error {
	if strings.ContainsAny(string(msg), "\r\n") {
		return errors.Errorf("message %q contains a line break", msg)
	}
	return l.write(fmt.Sprintf("TX %s %s\n", l.cfg.Peer, msg))
}

// Rearm asks the bridge to put the radio back in receive mode.
func (l *Link) Rearm() error {
	return l.write("RXMODE\n")
}

func (l *Link) Packets() <-chan radiolink.Packet {
	return l.packets
}

func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

func (l *Link) Close() error {
	l.cancel()
	return nil
}
