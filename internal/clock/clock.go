// Package clock is the single source of "now" for the assessment engine.
// Time-limit and cooldown computations never read the wall clock directly.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current server time.
type Clock interface {
	Now() time.Time
}

// System is the production clock backed by time.Now in UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fake is a manually driven clock for tests and simulations.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock frozen at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now returns the frozen instant.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}
