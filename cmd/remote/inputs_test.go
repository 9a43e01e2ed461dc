package main

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/config"
	"github.com/w1xm/climber/protocol"
)

func TestMockInputsDriveSampler(t *testing.T) {
	wiring := config.DefaultRemote()
	m := newMockInputs(wiring)
	s, err := buildSampler(wiring, m.open)
	if err != nil {
		t.Fatal(err)
	}
	m.drive(strings.NewReader("clu 1\nbogus\nCT 1\nXX 1\n"), log.NewEntry(log.StandardLogger()))

	start := time.Unix(0, 0)
	s.Poll(start)
	s.Poll(start.Add(40 * time.Millisecond))
	want := []protocol.ButtonLevel{
		{Name: "CLU", Level: true},
		{Name: "CLD", Level: false},
		{Name: "CT", Level: true},
	}
	if diff := cmp.Diff(want, s.Buttons()); diff != "" {
		t.Errorf("buttons (-want +got):\n%s", diff)
	}
	if got := len(s.Encoders()); got != 4 {
		t.Errorf("%d encoders, want 4", got)
	}
}

func TestLoadOptionsDefaults(t *testing.T) {
	cfg, err := loadOptions([]string{"--inputs=mock", "--radio=tcp", "--tcp.addr=127.0.0.1:9999"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Inputs != "mock" || cfg.Radio != "tcp" || cfg.TCP.Addr != "127.0.0.1:9999" || cfg.Serial.Baud != 115200 {
		t.Errorf("config = %+v", cfg)
	}
	if _, err := loadOptions([]string{"--radio=carrier-pigeon"}); err == nil {
		t.Error("bad radio choice accepted")
	}
}
