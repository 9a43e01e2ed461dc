// Command actuatord receives remote commands over the radio link and drives
// the climbing and cutting motors.
package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/w1xm/climber/config"
	"github.com/w1xm/climber/dispatch"
	"github.com/w1xm/climber/internal/logsetup"
	"github.com/w1xm/climber/internal/metrics"
	"github.com/w1xm/climber/journal"
	"github.com/w1xm/climber/motor"
	"github.com/w1xm/climber/radiolink"
	"github.com/w1xm/climber/radiolink/loopback"
	"github.com/w1xm/climber/radiolink/seriallink"
	"github.com/w1xm/climber/radiolink/tcplink"
)

var (
	// Commit and Version are set with -ldflags at build time.
	Commit  string
	Version string
)

// broadcastPeer is the TX address used by the serial bridge; the
// actuator never transmits.
const broadcastPeer = "ff:ff:ff:ff:ff:ff"

type sourceCloser interface {
	radiolink.Source
	Close() error
}

func openRadio(ctx context.Context, cfg *options) (sourceCloser, error) {
	logger := logsetup.New("radio")
	switch cfg.Radio {
	case "serial":
		return seriallink.Open(ctx, seriallink.Config{
			Port:   cfg.Serial.Port,
			Baud:   cfg.Serial.Baud,
			Peer:   broadcastPeer,
			Logger: logger,
		})
	case "tcp":
		return tcplink.Listen(ctx, cfg.TCP.Listen, logger)
	case "loopback":
		remote, local := loopback.Pair("loopback", "actuatord", 16)
		// Each stdin line is sent as if the remote had transmitted it.
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if err := remote.Send(scanner.Bytes()); err != nil {
					logger.Warnf("loopback: %v", err)
				}
			}
		}()
		return local, nil
	}
	return nil, errors.Errorf("unknown radio type %v", cfg.Radio)
}

func actuatordMain() error {
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

	wiring, err := config.LoadActuator(cfg.Config)
	if err != nil {
		return errors.Errorf("Could not load wiring: %v", err)
	}
	if cfg.Peer != "" {
		wiring.Peer = cfg.Peer
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Register()

	var j *journal.Journal
	var recorder dispatch.Recorder
	var reader journalReader
	if cfg.Journal.Path != "" {
		j, err = journal.Open(cfg.Journal.Path, cfg.Journal.Limit)
		if err != nil {
			return errors.Errorf("Could not open journal: %v", err)
		}
		log.Infof("Opened journal %s", cfg.Journal.Path)
		defer func() {
			if err := j.Close(); err != nil {
				log.Errorf("Could not close journal: %v", err)
			} else {
				log.Info("Closed journal.")
			}
		}()
		recorder, reader = j, j
	}

	server := NewServer(reader, Status{Machine: cfg.Machine, Radio: cfg.Radio}, logsetup.New("server"))

	// Motors are stopped by their constructors and again by motor.New
	// before any packet can be received.
	climber, cutter, servos, err := buildMotors(ctx, cfg.Machine, wiring)
	if err != nil {
		return errors.Errorf("Could not set up motors: %v", err)
	}
	driver, err := motor.New(motor.Config{
		Climber:       climber,
		Cutter:        cutter,
		Servos:        servos,
		Logger:        logsetup.New("motor"),
		StateCallback: server.stateCallback,
	})
	if err != nil {
		return errors.Errorf("Could not set up motors: %v", err)
	}
	log.Infof("Motors stopped (%s machine, %s climber, %s cutter, %d servos).", cfg.Machine, wiring.Climb.Driver, wiring.Cut.Driver, len(servos))

	var servoCfgs []dispatch.ServoConfig
	for _, s := range wiring.Servos {
		servoCfgs = append(servoCfgs, dispatch.ServoConfig{
			Index: s.Index, Start: s.Start, Min: s.Min, Max: s.Max, Neutral: s.Neutral, Hold: s.Hold,
		})
	}
	dispatcher, err := dispatch.New(dispatch.Config{
		Driver: driver,
		Servos: servoCfgs,
		Logger: logsetup.New("dispatch"),
	})
	if err != nil {
		return errors.Errorf("Could not create dispatcher: %v", err)
	}
	server.motors = dispatcher

	link, err := openRadio(ctx, cfg)
	if err != nil {
		return errors.Errorf("Could not open radio link: %v", err)
	}
	defer link.Close()
	log.Infof("Listening on %s radio.", cfg.Radio)
	if ls, ok := link.(linkState); ok {
		server.radio = ls
	}

	receiver := &dispatch.Receiver{
		Source:           link,
		Dispatcher:       dispatcher,
		AllowedPeer:      wiring.Peer,
		Journal:          recorder,
		DispatchCallback: server.dispatchCallback,
		Logger:           logsetup.New("receiver"),
	}

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		sig := <-signals
		log.Infof("Received %v, stopping motors...", sig)
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return receiver.Run(gctx)
	})
	if cfg.HTTP.Listen != "" {
		srv := &http.Server{
			Handler:      server.Handler(),
			Addr:         cfg.HTTP.Listen,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		g.Go(func() error {
			log.Infof("Serving status on %s", cfg.HTTP.Listen)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && err != context.Canceled {
		return errors.Errorf("Failed running actuatord: %v", err)
	}
	return nil
}

func main() {
	if err := actuatordMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.WithError(err).Println("Failed running actuatord.")
		os.Exit(1)
	}
}
