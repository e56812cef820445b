// Package marketdata holds the last-traded-price cache shared between the
// feed ingestion path and every trade worker.
package marketdata

import "sync"

// Cache maps instrument token to its last known price. Writes come from the
// feed callback, reads from workers and the dashboard. Last write wins; no
// history is kept. A single RWMutex is enough here: the map stays small
// (tens of instruments) while tick frequency dominates, and the ingestion
// path must never block on anything slower than this map write.
type Cache struct {
	mu   sync.RWMutex
	last map[uint32]float64
}

func NewCache() *Cache {
	return &Cache{last: make(map[uint32]float64)}
}

// Update sets the last price for a token.
func (c *Cache) Update(token uint32, price float64) {
	c.mu.Lock()
	c.last[token] = price
	c.mu.Unlock()
}

// Get returns the most recent price for a token. The second return is false
// if the token has never been quoted; callers must treat that as "unknown",
// never as a price of zero.
func (c *Cache) Get(token uint32) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	price, ok := c.last[token]
	return price, ok
}

// Snapshot copies the current contents for observability consumers.
func (c *Cache) Snapshot() map[uint32]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint32]float64, len(c.last))
	for token, price := range c.last {
		out[token] = price
	}
	return out
}
