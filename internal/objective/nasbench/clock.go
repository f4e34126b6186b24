package nasbench

import "sync"

// Clock accumulates the simulated training time of every cell scored
// through an adapter. It is safe for concurrent use.
type Clock struct {
	mu    sync.Mutex
	total float64
}

// Add advances the clock by seconds.
func (c *Clock) Add(seconds float64) {
	c.mu.Lock()
	c.total += seconds
	c.mu.Unlock()
}

// Total returns the accumulated seconds.
func (c *Clock) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Reset sets the clock back to zero.
func (c *Clock) Reset() {
	c.mu.Lock()
	c.total = 0
	c.mu.Unlock()
}
