package pin

import "sync"

// Write is one recorded write to a Fake pin.
type Write struct {
	High bool
	Duty float64
	PWM  bool
}

// Fake is an in-memory pin usable as an Input, Output or PWM. It is used by
// tests and by the mock machine.
type Fake struct {
	Name string

	mu     sync.Mutex
	level  bool
	duty   float64
	writes []Write
	err    error
}

func NewFake(name string) *Fake {
	return &Fake{Name: name}
}

// Set changes the level returned by Read.
func (f *Fake) Set(high bool) {
	f.mu.Lock()
	f.level = high
	f.mu.Unlock()
}

func (f *Fake) Read() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

func (f *Fake) Out(high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.level = high
	f.writes = append(f.writes, Write{High: high})
	return nil
}

func (f *Fake) Duty(fraction float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.duty = fraction
	f.writes = append(f.writes, Write{Duty: fraction, PWM: true})
	return nil
}

// Level returns the last level written or set.
func (f *Fake) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// CurrentDuty returns the last duty fraction written.
func (f *Fake) CurrentDuty() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duty
}

// Writes returns a copy of every write so far.
func (f *Fake) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Write, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *Fake) ClearWrites() {
	f.mu.Lock()
	f.writes = nil
	f.mu.Unlock()
}

// FailWith makes subsequent writes return err. A nil err clears the failure.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}
