package pricefeed

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// priceCache is a write-time TTL cache for the current token price. Entries
// expire purely by age, not by access. The clock is injected so tests can
// control expiry deterministically.
type priceCache struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	value    decimal.Decimal
	storedAt time.Time
	valid    bool
}

func newPriceCache(ttl time.Duration, now func() time.Time) *priceCache {
	if now == nil {
		now = time.Now
	}
	return &priceCache{ttl: ttl, now: now}
}

// Get returns the cached price if it is still within TTL.
func (c *priceCache) Get() (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || c.now().Sub(c.storedAt) >= c.ttl {
		return decimal.Zero, false
	}
	return c.value, true
}

// Put stores a price, resetting its age.
func (c *priceCache) Put(v decimal.Decimal) {
	c.mu.Lock()
	c.value = v
	c.storedAt = c.now()
	c.valid = true
	c.mu.Unlock()
}

// Invalidate clears the cache, forcing the next read to fetch fresh data.
func (c *priceCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
