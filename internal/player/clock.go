package player

import (
	"sync"
	"time"
)

// Clock is the shared audio clock. It only advances while running, so
// progress derived from it stays continuous across a pause.
type Clock struct {
	mu      sync.Mutex
	now     func() time.Time
	since   time.Time
	elapsed time.Duration
	running bool
}

// NewClock returns a running clock starting at zero.
func NewClock() *Clock {
	return newClock(time.Now)
}

func newClock(now func() time.Time) *Clock {
	return &Clock{now: now, since: now(), running: true}
}

// Now returns the running time in seconds.
func (c *Clock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.elapsed
	if c.running {
		d += c.now().Sub(c.since)
	}
	return d.Seconds()
}

// Suspend stops the clock.
func (c *Clock) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.elapsed += c.now().Sub(c.since)
	c.running = false
}

// Resume restarts a suspended clock from where it stopped.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.since = c.now()
	c.running = true
}

// Running reports whether the clock advances.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
