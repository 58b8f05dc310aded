package autoposter

import "sync"

// ServerCount is a lock-guarded server count for adapters that report on a
// fixed interval. The zero value is ready to use.
type ServerCount struct {
	mu sync.RWMutex
	n  int
}

// Get returns the current count.
func (c *ServerCount) Get() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.n
}

// Set replaces the current count.
func (c *ServerCount) Set(n int) {
	c.mu.Lock()
	c.n = n
	c.mu.Unlock()
}

// ServerCount returns c, so a bare *ServerCount can be handed to NewSimple.
func (c *ServerCount) ServerCount() *ServerCount {
	return c
}
