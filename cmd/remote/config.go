package main

import (
	"github.com/jessevdk/go-flags"
)

type serialOptions struct {
	Port string `long:"port" description:"Serial port of the radio bridge"`
	Baud int    `long:"baud" description:"Baud rate of the radio bridge" default:"115200"`
}

type tcpOptions struct {
	Addr string `long:"addr" description:"Address of an actuatord TCP radio" default:"127.0.0.1:7373"`
}

type options struct {
	ShowVersion bool   `long:"version" description:"Display version information and exit"`
	Debug       bool   `long:"debug" description:"Start in debug mode"`
	LogFile     string `long:"logfile" description:"Also log to this file, rotated by size"`
	Config      string `long:"config" description:"TOML wiring file; built-in defaults if unset"`
	Inputs      string `long:"inputs" description:"Where buttons and encoders are read from" choice:"gpio" choice:"mock" default:"gpio"`
	Radio       string `long:"radio" description:"Radio link used to reach the actuator" choice:"serial" choice:"tcp" default:"serial"`
	Peer        string `long:"peer" description:"Override the peer address from the wiring file"`
	Name        string `long:"name" description:"Name announced to TCP listeners" default:"remote"`

	Serial serialOptions `group:"Serial radio" namespace:"serial"`
	TCP    tcpOptions    `group:"TCP radio" namespace:"tcp"`
}

func loadOptions(args []string) (*options, error) {
	cfg := &options{}
	if _, err := flags.NewParser(cfg, flags.Default).ParseArgs(args); err != nil {
		return nil, err
	}
	return cfg, nil
}
