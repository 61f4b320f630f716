package core

import "time"

type Clock struct {
	now       func() time.Time
	startTime time.Time
	lastTick  time.Time
	elapsed   time.Duration
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockWithSource is used by tests to drive the clock manually.
func NewClockWithSource(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = c.now()
	c.lastTick = c.startTime
	c.elapsed = 0
}

// Update refreshes the elapsed time and returns the time passed since the previous Update.
// Has no effect on non-started clocks.
func (c *Clock) Update() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	t := c.now()
	delta := t.Sub(c.lastTick)
	c.lastTick = t
	c.elapsed = t.Sub(c.startTime)
	return delta
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}

func (c *Clock) Running() bool {
	return !c.startTime.IsZero()
}
