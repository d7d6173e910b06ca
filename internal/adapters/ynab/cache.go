package ynab

import (
	"sync"
	"time"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

// DefaultCacheTTL is how long fetched transactions are reused.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	transactions []matcher.YnabTransaction
	expiresAt    time.Time
}

// Cache holds fetched transaction lists keyed by budget and window.
// The caller owns it; it is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewCache creates a cache. A non-positive ttl uses DefaultCacheTTL and a nil
// now uses time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns a copy of the cached transactions for key if they have not expired.
func (c *Cache) Get(key string) ([]matcher.YnabTransaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return append([]matcher.YnabTransaction(nil), entry.transactions...), true
}

// Set stores a copy of transactions under key.
func (c *Cache) Set(key string, transactions []matcher.YnabTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		transactions: append([]matcher.YnabTransaction(nil), transactions...),
		expiresAt:    c.now().Add(c.ttl),
	}
}

// Invalidate drops every entry. Called after memos are written.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(budgetID string, since time.Time, amazonOnly bool) string {
	key := budgetID + "|" + since.Format("2006-01-02")
	if amazonOnly {
		key += "|amazon"
	}
	return key
}
