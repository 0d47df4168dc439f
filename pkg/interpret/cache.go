package interpret

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Cache memoizes annotator output by canonical key. Lookup never computes:
// it serves only what a prior Warm populated, so the query path stays free
// of external calls.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Interpretation
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Interpretation)}
}

// Lookup returns the cached interpretation for the canonical key, or nil.
func (c *Cache) Lookup(key string) *Interpretation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// Put stores an interpretation under its canonical key.
func (c *Cache) Put(key string, in *Interpretation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = in
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a copy of the cached entries keyed by canonical key, for
// persistence alongside the run that warmed them.
func (c *Cache) Entries() map[string]*Interpretation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*Interpretation, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Warm runs the annotator for every request whose key is not yet cached.
// Annotator failures are logged and skipped: a missing interpretation only
// degrades display, never correctness.
func (c *Cache) Warm(ctx context.Context, a Annotator, reqs []Request) {
	if a == nil {
		return
	}
	for _, req := range reqs {
		key := req.Key()
		if c.Lookup(key) != nil {
			continue
		}
		in, err := a.Interpret(ctx, req)
		if err != nil {
			zap.L().Warn("interpret: annotator failed",
				zap.String("key", key[:12]),
				zap.Error(err))
			continue
		}
		c.Put(key, in)
	}
}
