// Package protocol encodes input changes as ASCII wire lines and decodes
// received lines into typed messages.
//
// Two line forms exist:
//
//	BTN:<NAME>=<0|1>,<NAME>=<0|1>,...   full snapshot of every button
//	E<index>:<value>                    one encoder position
//
// ':', '=' and ',' are structural and never appear inside names.
package protocol

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	buttonPrefix  = "BTN:"
	encoderPrefix = 'E'
)

var ErrReservedName = errors.New("name contains reserved characters")

// Message is one decoded wire line: a ButtonReport, an EncoderReport or an
// Unrecognized line.
type Message interface {
	Kind() string
}

// ButtonReport maps upper-cased button names to their reported value.
type ButtonReport struct {
	Levels map[string]int
}

func (ButtonReport) Kind() string { return "button" }

// Level returns the value for name, defaulting to 0 when absent.
func (r ButtonReport) Level(name string) int {
	return r.Levels[strings.ToUpper(name)]
}

type EncoderReport struct {
	Index int
	Value int
}

func (EncoderReport) Kind() string { return "encoder" }

type Unrecognized struct {
	Raw string
}

func (Unrecognized) Kind() string { return "unrecognized" }

// ButtonLevel is one entry of a button snapshot.
type ButtonLevel struct {
	Name  string
	Level bool
}

// ValidateName rejects names that could not round trip through the wire
// format.
func ValidateName(name string) error {
	if name == "" {
		return errors.Wrap(ErrReservedName, "empty name")
	}
	if strings.ContainsAny(name, ":=, \t\r\n") {
		return errors.Wrapf(ErrReservedName, "%q", name)
	}
	return nil
}

// EncodeButtons builds a BTN line holding every level in order.
func EncodeButtons(levels []ButtonLevel) ([]byte, error) {
	var b strings.Builder
	b.WriteString(buttonPrefix)
	for i, l := range levels {
		if err := ValidateName(l.Name); err != nil {
			return nil, err
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strings.ToUpper(l.Name))
		b.WriteByte('=')
		if l.Level {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return []byte(b.String()), nil
}

// EncodeEncoder builds an E line for one encoder.
func EncodeEncoder(index, value int) []byte {
	return []byte(string(encoderPrefix) + strconv.Itoa(index) + ":" + strconv.Itoa(value))
}

// Decode never fails: anything it cannot make sense of is returned as
// Unrecognized. Inside a BTN payload every pair is parsed on its own and a
// value that is not an integer decodes as 0.
func Decode(data []byte) Message {
	raw := string(data)
	line := strings.TrimSpace(raw)
	switch {
	case len(line) >= len(buttonPrefix) && strings.EqualFold(line[:len(buttonPrefix)], buttonPrefix):
		return decodeButtons(line[len(buttonPrefix):])
	case len(line) > 0 && (line[0] == encoderPrefix || line[0] == 'e'):
		if m, ok := decodeEncoder(line[1:]); ok {
			return m
		}
	}
	return Unrecognized{Raw: raw}
}

func decodeButtons(payload string) ButtonReport {
	r := ButtonReport{Levels: make(map[string]int)}
	for _, part := range strings.Split(payload, ",") {
		i := strings.IndexByte(part, '=')
		if i < 0 {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(part[:i]))
		if key == "" {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(part[i+1:]))
		if err != nil {
			v = 0
		}
		r.Levels[key] = v
	}
	return r
}

func decodeEncoder(body string) (EncoderReport, bool) {
	i := strings.IndexByte(body, ':')
	if i <= 0 {
		return EncoderReport{}, false
	}
	index, err := strconv.Atoi(body[:i])
	if err != nil || index < 0 {
		return EncoderReport{}, false
	}
	value, err := strconv.Atoi(strings.TrimSpace(body[i+1:]))
	if err != nil {
		return EncoderReport{}, false
	}
	return EncoderReport{Index: index, Value: value}, true
}
