// Package actuator defines the motor commands understood by the actuator
// unit and the capability interface every actuator driver provides.
package actuator

import "fmt"

// Direction is the climbing motor state.
type Direction int

const (
	Stop Direction = iota
	Forward
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Stop:
		return "stop"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "stop":
		*d = Stop
	case "forward":
		*d = Forward
	case "reverse":
		*d = Reverse
	default:
		return fmt.Errorf("unknown direction %q", text)
	}
	return nil
}

type CommandKind int

const (
	ClimbStop CommandKind = iota
	ClimbForward
	ClimbReverse
	CutStart
	CutStop
	ServoMove
)

var kindNames = map[CommandKind]string{
	ClimbStop:    "climb_stop",
	ClimbForward: "climb_forward",
	ClimbReverse: "climb_reverse",
	CutStart:     "cut_start",
	CutStop:      "cut_stop",
	ServoMove:    "servo_move",
}

func (k CommandKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// Command is one motor command. Servo and Sign are only meaningful for
// ServoMove; Sign is +1 or -1.
type Command struct {
	Kind  CommandKind
	Servo int
	Sign  int
}

func (c Command) String() string {
	if c.Kind == ServoMove {
		return fmt.Sprintf("%s[%d]%+d", c.Kind, c.Servo, c.Sign)
	}
	return c.Kind.String()
}

// ClimbCommand returns the command that puts the climbing motor in d.
func ClimbCommand(d Direction) Command {
	switch d {
	case Forward:
		return Command{Kind: ClimbForward}
	case Reverse:
		return Command{Kind: ClimbReverse}
	}
	return Command{Kind: ClimbStop}
}

// State is the discrete state of every motor.
type State struct {
	Climb   Direction `json:"climb"`
	Cutting bool      `json:"cutting"`
}

// Driver is the actuator capability set. Calls are synchronous and must not
// be made concurrently.
type Driver interface {
	SetClimb(d Direction) error
	SetCut(on bool) error
	SetServo(index int, angle float64) error
	// Stop forces every motor to its stopped state.
	Stop() error
	State() State
}
