package core

import "time"

type Clock struct {
	startTime float64
	lastTime  float64
	delta     float64
	elapsed   float64
}

func NewClock() *Clock {
	return &Clock{}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = nowSeconds()
	c.lastTime = c.startTime
	c.delta = 0
	c.elapsed = 0
}

// Updates the provided clock. Should be called once at the top of every
// frame. Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.startTime == 0 {
		return
	}
	now := nowSeconds()
	c.delta = now - c.lastTime
	if c.delta < 0 {
		c.delta = 0
	}
	c.lastTime = now
	c.elapsed = now - c.startTime
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = 0
}

// Delta returns the seconds between the last two Update calls, never
// negative.
func (c *Clock) Delta() float64 {
	return c.delta
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
