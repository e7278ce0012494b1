package main

import (
	"time"
)

// Clock turns wall-clock frames into a whole number of fixed solver steps.
// Time and Dt hold the last observed frame, like a frame-time resource.
type Clock struct {
	Time time.Time
	Dt   time.Duration

	step     time.Duration
	acc      time.Duration
	maxSteps int
}

// NewClock creates a clock producing steps of the given length. maxSteps caps
// how many steps a single long frame may request; the rest is dropped.
func NewClock(now time.Time, step time.Duration, maxSteps int) *Clock {
	if maxSteps < 1 {
		maxSteps = 1
	}
	return &Clock{Time: now, step: step, maxSteps: maxSteps}
}

// Advance records a new frame time and returns the number of fixed steps due.
func (c *Clock) Advance(now time.Time) int {
	c.Dt = now.Sub(c.Time)
	c.Time = now
	if c.Dt < 0 {
		c.Dt = 0
	}

	c.acc += c.Dt
	n := int(c.acc / c.step)
	if n > c.maxSteps {
		n = c.maxSteps
		c.acc = 0
		return n
	}
	c.acc -= time.Duration(n) * c.step
	return n
}
