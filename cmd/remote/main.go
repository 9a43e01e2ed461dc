// Command remote samples the handheld's buttons and encoders and sends
// every change to the actuator unit.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/config"
	"github.com/w1xm/climber/gpio"
	"github.com/w1xm/climber/internal/logsetup"
	"github.com/w1xm/climber/radiolink"
	"github.com/w1xm/climber/radiolink/seriallink"
	"github.com/w1xm/climber/radiolink/tcplink"
	"github.com/w1xm/climber/sampler"
)

var (
	// Commit and Version are set with -ldflags at build time.
	Commit  string
	Version string
)

type sendCloser interface {
	radiolink.Sender
	Close() error
}

func remoteMain() error {
	cfg, err := loadOptions(os.Args[1:])
	if err != nil {
		return err
	}
	logCloser := logsetup.Configure(logsetup.Options{Debug: cfg.Debug, File: cfg.LogFile})
	defer logCloser.Close()

	log.Infof("Version %s (commit %s)", Version, Commit)
	if cfg.ShowVersion {
		return nil
	}

	wiring, err := config.LoadRemote(cfg.Config)
	if err != nil {
		return errors.Errorf("Could not load wiring: %v", err)
	}
	if cfg.Peer != "" {
		wiring.Peer = cfg.Peer
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var open pinFactory
	switch cfg.Inputs {
	case "gpio":
		if err := gpio.Init(); err != nil {
			return errors.Errorf("Could not initialize GPIO: %v", err)
		}
		open = gpioInputs()
		log.Info("Reading inputs from GPIO.")
	case "mock":
		m := newMockInputs(wiring)
		open = m.open
		go m.drive(os.Stdin, logsetup.New("mock"))
		log.Info("Reading mock inputs from stdin.")
	default:
		return errors.Errorf("Unknown inputs type %v", cfg.Inputs)
	}

	s, err := buildSampler(wiring, open)
	if err != nil {
		return errors.Errorf("Could not set up inputs: %v", err)
	}

	var link sendCloser
	switch cfg.Radio {
	case "serial":
		link, err = seriallink.Open(ctx, seriallink.Config{
			Port:   cfg.Serial.Port,
			Baud:   cfg.Serial.Baud,
			Peer:   wiring.Peer,
			Logger: logsetup.New("radio"),
		})
	case "tcp":
		link, err = tcplink.Dial(cfg.TCP.Addr, cfg.Name, logsetup.New("radio"))
	default:
		err = errors.Errorf("unknown radio type %v", cfg.Radio)
	}
	if err != nil {
		return errors.Errorf("Could not open radio link: %v", err)
	}
	defer func() {
		if err := link.Close(); err != nil {
			log.Errorf("Could not close radio link: %v", err)
		} else {
			log.Info("Closed radio link.")
		}
	}()

	t := sampler.NewTransmitter(sampler.TransmitterConfig{
		Sampler:    s,
		Link:       link,
		PollPeriod: wiring.PollPeriod,
		EncoderGap: wiring.EncoderGap,
		Logger:     logsetup.New("transmitter"),
	})

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		sig := <-signals
		log.Infof("Received %v, stopping transmitter...", sig)
		cancel()
	}()

	log.Infof("Sending to %s every change of %d buttons and %d encoders.", wiring.Peer, len(wiring.Buttons), len(wiring.Encoders))
	if err := t.Run(ctx); err != nil && err != context.Canceled {
		return errors.Errorf("Transmitter failed: %v", err)
	}
	return nil
}

func main() {
	if err := remoteMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.WithError(err).Println("Failed running remote.")
		os.Exit(1)
	}
}
