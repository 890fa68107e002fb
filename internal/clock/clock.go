// Package clock abstracts wall-clock reads and blocking sleeps so the refresh
// loop can be driven by synthetic time in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the source of time for the scheduler and the time authority.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for at least d. Non-positive durations return at once.
	Sleep(d time.Duration)
}

type realClock struct{}

// Real returns the system clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// FakeClock is a deterministic Clock. Time only moves on Advance or Sleep;
// Sleep returns immediately after moving the clock forward.
//
// FakeClock is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	sleeps  []time.Duration
}

// Fake returns a FakeClock set to initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Sleep records d and advances the clock by it.
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.current = c.current.Add(d)
	}
}

// Advance moves the clock forward by d, modelling time spent working.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set jumps the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Sleeps returns every duration passed to Sleep, in call order.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}
