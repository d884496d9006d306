// Package cache holds short-lived copies of engine listings for the HTTP
// API. It uses patrickmn/go-cache for TTL-based expiry.
//
// Entries are keyed per torrent plus one key for the full listing, so a
// command touching a torrent can drop exactly what it made stale.
package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/seedarr/seedarr/pkg/engine"
)

const listKey = "torrents"

// Cache wraps go-cache with typed accessors for torrent data.
type Cache struct {
	store  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a new cache with the given TTL and cleanup interval.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Torrents returns the cached listing.
func (c *Cache) Torrents() ([]engine.Torrent, bool) {
	v, ok := c.store.Get(listKey)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return v.([]engine.Torrent), true
}

// SetTorrents caches a listing.
func (c *Cache) SetTorrents(list []engine.Torrent) {
	c.store.Set(listKey, list, gocache.DefaultExpiration)
}

// Torrent returns a cached torrent.
func (c *Cache) Torrent(infoHash string) (engine.Torrent, bool) {
	v, ok := c.store.Get(torrentKey(infoHash))
	if !ok {
		c.misses.Add(1)
		return engine.Torrent{}, false
	}
	c.hits.Add(1)
	return v.(engine.Torrent), true
}

// SetTorrent caches a single torrent.
func (c *Cache) SetTorrent(t engine.Torrent) {
	c.store.Set(torrentKey(t.InfoHash), t, gocache.DefaultExpiration)
}

// Invalidate drops the listing and the entry for infoHash.
func (c *Cache) Invalidate(infoHash string) {
	c.store.Delete(listKey)
	if infoHash != "" {
		c.store.Delete(torrentKey(infoHash))
	}
}

// Clear removes all items from the cache.
func (c *Cache) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of items in the cache.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// Stats returns cache statistics.
type Stats struct {
	ItemCount int   `json:"item_count"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() Stats {
	return Stats{
		ItemCount: c.store.ItemCount(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
	}
}

func torrentKey(infoHash string) string { return "torrent:" + infoHash }
