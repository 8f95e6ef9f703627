// Package modeltest provides a manually driven clock for task tests.
package modeltest

import (
	"sync"
	"time"

	"github.com/tgienger/tplan/internal/models"
)

// Clock is a models.Clock whose timers only fire when told to.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*Timer
}

// NewClock returns a clock frozen at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Timer is a pending callback on a Clock.
type Timer struct {
	clock *Clock
	d     time.Duration
	f     func()
	done  bool
}

// Stop cancels the timer. It reports whether the timer was still pending.
func (t *Timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward without firing timers.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AfterFunc registers f to run when the timer is fired.
func (c *Clock) AfterFunc(d time.Duration, f func()) models.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &Timer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Pending returns the number of timers that are armed and not cancelled.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Fire runs the oldest pending timer, advancing the clock by its duration.
// It returns false when nothing is pending.
func (c *Clock) Fire() bool {
	c.mu.Lock()
	var next *Timer
	for _, t := range c.timers {
		if !t.done {
			next = t
			break
		}
	}
	if next == nil {
		c.mu.Unlock()
		return false
	}
	next.done = true
	c.now = c.now.Add(next.d)
	c.mu.Unlock()

	next.f()
	return true
}

// FireStale runs a timer's callback even though it was cancelled, the way a
// runtime timer can fire just as it is being stopped.
func (c *Clock) FireStale(t models.Timer) {
	ft, ok := t.(*Timer)
	if !ok {
		return
	}
	ft.f()
}

// Last returns the most recently armed timer, cancelled or not.
func (c *Clock) Last() models.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}
