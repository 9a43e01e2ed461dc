// Package input turns noisy mechanical inputs into clean values: debounced
// buttons and clamped rotary encoder positions.
package input

import "time"

// Button debounces one binary signal.
//
// A raw level that differs from the stable level becomes a pending
// candidate. The candidate is committed once it has been observed
// continuously for at least Window; any sample back at the stable level
// discards it.
type Button struct {
	Name   string
	Window time.Duration

	stable         bool
	pending        bool
	pendingSince   time.Time
	lastTransition time.Time
}

// NewButton returns a button whose stable level starts at initial.
func NewButton(name string, window time.Duration, initial bool) *Button {
	return &Button{Name: name, Window: window, stable: initial}
}

// Read feeds one raw sample taken at now.
func (b *Button) Read(raw bool, now time.Time) (changed bool, level bool) {
	if raw == b.stable {
		b.pending = false
		b.lastTransition = now
		return false, b.stable
	}
	if !b.pending {
		b.pending = true
		b.pendingSince = now
	}
	if now.Sub(b.pendingSince) < b.Window {
		return false, b.stable
	}
	b.stable = raw
	b.pending = false
	b.lastTransition = now
	return true, b.stable
}

// Level returns the current stable level.
func (b *Button) Level() bool {
	return b.stable
}

// LastTransition returns the time the stable level was last confirmed or
// committed.
func (b *Button) LastTransition() time.Time {
	return b.lastTransition
}
