package motor

import "github.com/pkg/errors"

var (
	ErrInvalidSpeed     = errors.New("speed must be between -100 and 100")
	ErrInvalidAngle     = errors.New("servo angle must be between 0 and 180")
	ErrInvalidDirection = errors.New("invalid climb direction")
	ErrNoServo          = errors.New("no servo wired at index")
	ErrInvalidWiring    = errors.New("invalid motor wiring")
)
