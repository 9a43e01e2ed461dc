// Package modbus wraps a Modbus RTU client that polls while connected and
// reconnects after any failure.
package modbus

import (
	"context"
	"time"

	"github.com/goburrow/modbus"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type modbusHandler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

type Client struct {
	Port string
	// BaudRate defaults to 19200
	BaudRate int
	SlaveId  byte
	// PollInterval is the delay between polls; default 200ms.
	PollInterval time.Duration
	Logger       *log.Entry

	// Poll is called in a loop while the connection is up. An error
	// drops the connection.
	Poll func() error

	handler modbusHandler
	modbus.Client
}

// Connect opens the port once, returning the error if that fails, and then
// keeps the connection alive in the background until ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	if c.BaudRate == 0 {
		c.BaudRate = 19200
	}
	if c.PollInterval == 0 {
		c.PollInterval = 200 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = log.NewEntry(log.StandardLogger())
	}
	if c.handler == nil {
		handler := modbus.NewRTUClientHandler(c.Port)
		handler.BaudRate = c.BaudRate
		handler.DataBits = 8
		handler.Parity = "N"
		handler.StopBits = 1
		handler.Timeout = 1 * time.Second
		handler.SlaveId = c.SlaveId
		c.handler = handler
	}
	c.Client = modbus.NewClient(c.handler)
	if err := c.handler.Connect(); err != nil {
		return errors.Wrapf(err, "opening %q", c.Port)
	}
	go c.reconnectLoop(ctx)
	return nil
}

func (c *Client) reconnectLoop(ctx context.Context) {
	for {
		if err := c.watch(ctx); err != nil && ctx.Err() == nil {
			c.Logger.Warnf("watching %q: %v", c.Port, err)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(1 * time.Second):
			}
			if err := c.handler.Connect(); err != nil {
				c.Logger.Warnf("opening %q: %v", c.Port, err)
				continue
			}
			c.Logger.Infof("reconnected %q", c.Port)
			break
		}
	}
}

func (c *Client) watch(ctx context.Context) error {
	defer c.handler.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.PollInterval):
		}
		if c.Poll == nil {
			continue
		}
		if err := c.Poll(); err != nil {
			return err
		}
	}
}

func (c *Client) WriteCoil(coil int, value bool) error {
	var v uint16
	if value {
		v = 0xFF00
	}
	_, err := c.WriteSingleCoil(uint16(coil), v)
	return err
}

func BytesToBits(bs []byte) []bool {
	var out []bool
	for _, b := range bs {
		for i := 0; i < 8; i++ {
			out = append(out, (b>>uint(i)&1) == 1)
		}
	}
	return out
}
