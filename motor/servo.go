package motor

import (
	"time"

	"github.com/pkg/errors"

	"github.com/w1xm/climber/pin"
)

const (
	ServoFrequency = 50
	servoPeriod    = time.Second / ServoFrequency
	servoMinPulse  = 500 * time.Microsecond
	servoMaxPulse  = 2500 * time.Microsecond
)

// Servo is a hobby servo on a 50Hz PWM line; 0..180 degrees map to a
// 0.5..2.5ms pulse.
type Servo struct {
	out   pin.PWM
	angle float64
}

func NewServo(out pin.PWM) (*Servo, error) {
	if out == nil {
		return nil, errors.Wrap(ErrInvalidWiring, "servo needs a pwm output")
	}
	return &Servo{out: out}, nil
}

func servoDuty(angle float64) float64 {
	pulse := servoMinPulse + time.Duration(angle/180*float64(servoMaxPulse-servoMinPulse))
	return float64(pulse) / float64(servoPeriod)
}

// SetAngle moves the servo. An out of range angle leaves it where it is.
func (s *Servo) SetAngle(angle float64) error {
	if angle < 0 || angle > 180 {
		return errors.Wrapf(ErrInvalidAngle, "%v", angle)
	}
	if err := s.out.Duty(servoDuty(angle)); err != nil {
		return err
	}
	s.angle = angle
	return nil
}

func (s *Servo) Angle() float64 {
	return s.angle
}
