// Package tcplink carries wire lines over TCP for bench setups without a
// radio. A dialer may announce its name with a "PEER <name>" line; until
// it does, packets carry the remote address as their peer.
package tcplink

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/radiolink"
)

const peerPrefix = "PEER "

// Listener accepts connections and turns every line into a Packet.
type Listener struct {
	ln      net.Listener
	log     *log.Entry
	packets chan radiolink.Packet
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ radiolink.Source = (*Listener)(nil)

func Listen(ctx context.Context, addr string, logger *log.Entry) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %q", addr)
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &Listener{
		ln:      ln,
		log:     logger,
		packets: make(chan radiolink.Packet, 16),
		cancel:  cancel,
	}
	go func() {
		<-ctx.Done()
		l.log.Info("shutdown; closing radio socket")
		ln.Close()
	}()
	l.wg.Add(1)
	go l.acceptLoop(ctx)
	go func() {
		l.wg.Wait()
		close(l.packets)
	}()
	return l, nil
}

func (l *Listener) acceptLoop(ctx context.Context) {
	defer l.wg.Done()
	for ctx.Err() == nil {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				l.log.Warnf("failed to accept: %v", err)
				time.Sleep(100 * time.Millisecond)
			}
			continue
		}
		l.wg.Add(1)
		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer l.wg.Done()
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	peer := conn.RemoteAddr().String()
	l.log.Infof("accepted connection from %v", peer)
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, peerPrefix) {
			peer = strings.TrimSpace(line[len(peerPrefix):])
			l.log.Infof("%v is %q", conn.RemoteAddr(), peer)
			continue
		}
		p := radiolink.Packet{Peer: peer, Data: []byte(line), Received: time.Now()}
		select {
		case l.packets <- p:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		l.log.Warnf("reading from %v: %v", conn.RemoteAddr(), err)
	}
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

func (l *Listener) Packets() <-chan radiolink.Packet {
	return l.packets
}

func (l *Listener) Close() error {
	l.cancel()
	return nil
}

// Dialer sends lines to a Listener, redialing after any failure.
type Dialer struct {
	addr    string
	name    string
	timeout time.Duration
	log     *log.Entry

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

var _ radiolink.Sender = (*Dialer)(nil)

// Dial returns a Dialer for addr. The first connection is made on the
// first Send. name, if set, is announced to the listener.
func Dial(addr, name string, logger *log.Entry) (*Dialer, error) {
	if strings.ContainsAny(name, "\r\n") {
		return nil, errors.Errorf("invalid peer name %q", name)
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Dialer{addr: addr, name: name, timeout: time.Second, log: logger}, nil
}

func (d *Dialer) connect() error {
	conn, err := net.DialTimeout("tcp", d.addr, d.timeout)
	if err != nil {
		return errors.Wrapf(err, "dialing %q", d.addr)
	}
	if d.name != "" {
		if _, err := fmt.Fprintf(conn, "%s%s\n", peerPrefix, d.name); err != nil {
			conn.Close()
			return errors.Wrapf(err, "announcing to %q", d.addr)
		}
	}
	d.log.Infof("connected to %q", d.addr)
	d.conn = conn
	return nil
}

func (d *Dialer) Send(msg []byte) error {
	if strings.ContainsAny(string(msg), "\r\n") {
		return errors.Errorf("message %q contains a line break", msg)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return radiolink.ErrClosed
	}
	if d.conn == nil {
		if err := d.connect(); err != nil {
			return err
		}
	}
	d.conn.SetWriteDeadline(time.Now().Add(d.timeout))
	if _, err := d.conn.Write(append(append([]byte(nil), msg...), '\n')); err != nil {
		d.conn.Close()
		d.conn = nil
		return errors.Wrapf(err, "writing to %q", d.addr)
	}
	return nil
}

func (d *Dialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.conn != nil {
		err := d.conn.Close()
		d.conn = nil
		return err
	}
	return nil
}
