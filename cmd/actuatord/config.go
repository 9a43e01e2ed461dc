package main

import (
	"github.com/jessevdk/go-flags"
)

type serialOptions struct {
	Port string `long:"port" description:"Serial port of the radio bridge"`
	Baud int    `long:"baud" description:"Baud rate of the radio bridge" default:"115200"`
}

type tcpOptions struct {
	Listen string `long:"listen" description:"Address to accept TCP radio connections on" default:"127.0.0.1:7373"`
}

type httpOptions struct {
	Listen string `long:"listen" description:"Address of the status server; empty disables it" default:"127.0.0.1:8502"`
}

type journalOptions struct {
	Path  string `long:"path" description:"bbolt file recording recent dispatches; empty disables it"`
	Limit int    `long:"limit" description:"Number of dispatches kept" default:"1000"`
}

type options struct {
	ShowVersion bool   `long:"version" description:"Display version information and exit"`
	Debug       bool   `long:"debug" description:"Start in debug mode"`
	LogFile     string `long:"logfile" description:"Also log to this file, rotated by size"`
	Config      string `long:"config" description:"TOML wiring file; built-in defaults if unset"`
	Machine     string `long:"machine" description:"Motor hardware" choice:"gpio" choice:"modbus" choice:"mock" default:"gpio"`
	Radio       string `long:"radio" description:"Radio link commands arrive on" choice:"serial" choice:"tcp" choice:"loopback" default:"serial"`
	Peer        string `long:"peer" description:"Only accept commands from this peer; overrides the wiring file"`

	Serial  serialOptions  `group:"Serial radio" namespace:"serial"`
	TCP     tcpOptions     `group:"TCP radio" namespace:"tcp"`
	HTTP    httpOptions    `group:"Status server" namespace:"http"`
	Journal journalOptions `group:"Journal" namespace:"journal"`
}

func loadOptions(args []string) (*options, error) {
	cfg := &options{}
	if _, err := flags.NewParser(cfg, flags.Default).ParseArgs(args); err != nil {
		return nil, err
	}
	return cfg, nil
}
