// Package pin defines the digital I/O seams between the signal and motor
// logic and whatever drives the physical lines.
package pin

// Input is a digital line sampled by polling.
type Input interface {
	Read() bool
}

// Output is a digital line driven high or low.
type Output interface {
	Out(high bool) error
}

// PWM is a pulse-width modulated line. Duty is a fraction in [0, 1].
type PWM interface {
	Duty(fraction float64) error
}
