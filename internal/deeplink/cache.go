package deeplink

import (
	"context"
	"sync"
)

// Fetcher recovers a link the host observed before ingestion was wired up.
// Implementations report "none" on failure instead of returning an error.
type Fetcher interface {
	FetchLastLink(ctx context.Context) (Event, bool)
}

// Cache is a single-slot store holding the most recent Event.
type Cache struct {
	mu         sync.RWMutex
	last       Event
	set        bool
	generation uint64

	fetcherMu sync.RWMutex
	fetcher   Fetcher
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// SetFetcher installs the fallback consulted while the slot is still empty.
func (c *Cache) SetFetcher(f Fetcher) {
	c.fetcherMu.Lock()
	defer c.fetcherMu.Unlock()
	c.fetcher = f
}

// Replace overwrites the stored event.
func (c *Cache) Replace(ev Event) {
	ev = ev.Clone()
	c.mu.Lock()
	c.last = ev
	c.set = true
	c.generation++
	c.mu.Unlock()
}

// Get returns a copy of the current event, or false if nothing was ever
// stored. While empty, the fetcher (if any) is asked once per call; the lock is
// not held during that call.
func (c *Cache) Get(ctx context.Context) (Event, bool) {
	c.mu.RLock()
	if c.set {
		ev := c.last.Clone()
		c.mu.RUnlock()
		return ev, true
	}
	gen := c.generation
	c.mu.RUnlock()

	c.fetcherMu.RLock()
	f := c.fetcher
	c.fetcherMu.RUnlock()
	if f == nil {
		return Event{}, false
	}

	ev, ok := f.FetchLastLink(ctx)
	if !ok {
		return Event{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A Replace that landed during the fetch is newer than anything the
	// foreign side reported.
	if c.generation != gen {
		return c.last.Clone(), true
	}
	c.last = ev.Clone()
	c.set = true
	return ev, true
}
