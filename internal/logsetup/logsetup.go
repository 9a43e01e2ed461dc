// Package logsetup configures the process-wide logrus logger.
package logsetup

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Debug bool
	// File, if set, receives a copy of the log, rotated at MaxSizeMB.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Configure applies opts to the standard logger and returns a closer for
// the log file, if any.
func Configure(opts Options) io.Closer {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if opts.File == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 3
	}
	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, lj))
	return lj
}

// New returns a fresh logger entry for one subsystem. It shares the
// standard logger's level, formatter and output.
func New(system string) *log.Entry {
	return log.StandardLogger().WithField("system", system)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
