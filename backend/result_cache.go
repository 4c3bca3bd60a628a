package main

import (
	"sort"
	"sync"
)

// cacheKey identifies one analysis: the same board searched for another
// side, depth or mode is a different result.
type cacheKey struct {
	Hash           uint64
	Size           int
	MaximizersTurn bool
	Depth          int
	Mode           string
}

type cachedMove struct {
	Position int
	Score    int64
}

type cacheEntry struct {
	Key        cacheKey
	Moves      []cachedMove
	Nodes      int64
	Prunes     int64
	ElapsedMs  float64
	Over       bool
	Hits       uint32
	StoredAtMs int64
}

// ResultCache is a bounded analysis cache. When full, storing a new key
// evicts the entry with the fewest hits.
type ResultCache struct {
	mu      sync.RWMutex
	limit   int
	entries map[cacheKey]*cacheEntry
}

func NewResultCache(limit int) *ResultCache {
	return &ResultCache{
		limit:   limit,
		entries: make(map[cacheKey]*cacheEntry),
	}
}

// Get returns a copy of the entry and counts the hit.
func (c *ResultCache) Get(key cacheKey) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	entry.Hits++
	return *entry, true
}

// Contains reports whether key is cached without counting a hit.
func (c *ResultCache) Contains(key cacheKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Put stores entry, replacing any entry with the same key. It reports
// whether another entry was evicted to make room. A limit of 0 disables
// storing.
func (c *ResultCache) Put(entry cacheEntry) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit <= 0 {
		return false
	}
	if existing, ok := c.entries[entry.Key]; ok {
		entry.Hits = existing.Hits
		*existing = entry
		return false
	}
	for len(c.entries) >= c.limit {
		c.evictLocked()
		evicted = true
	}
	stored := entry
	c.entries[entry.Key] = &stored
	return evicted
}

func (c *ResultCache) evictLocked() {
	var victim *cacheEntry
	for _, entry := range c.entries {
		if victim == nil || evictsBefore(entry, victim) {
			victim = entry
		}
	}
	if victim != nil {
		delete(c.entries, victim.Key)
	}
}

func evictsBefore(a, b *cacheEntry) bool {
	if a.Hits != b.Hits {
		return a.Hits < b.Hits
	}
	if a.StoredAtMs != b.StoredAtMs {
		return a.StoredAtMs < b.StoredAtMs
	}
	return a.Key.Hash < b.Key.Hash
}

// DeleteByHash drops every entry for the board hash and returns how many
// went.
func (c *ResultCache) DeleteByHash(hash uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	deleted := 0
	for key := range c.entries {
		if key.Hash == hash {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted
}

func (c *ResultCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]*cacheEntry)
	c.mu.Unlock()
}

func (c *ResultCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ResultCache) Capacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limit
}

// SetLimit changes the capacity, evicting down to it when it shrinks.
func (c *ResultCache) SetLimit(limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = limit
	if limit <= 0 {
		c.entries = make(map[cacheKey]*cacheEntry)
		return
	}
	for len(c.entries) > limit {
		c.evictLocked()
	}
}

func (c *ResultCache) TopEntriesByHits(offset int, limit int) ([]cacheEntry, int) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	entries := c.snapshotEntries()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Hits != entries[j].Hits {
			return entries[i].Hits > entries[j].Hits
		}
		if entries[i].Nodes != entries[j].Nodes {
			return entries[i].Nodes > entries[j].Nodes
		}
		if entries[i].StoredAtMs != entries[j].StoredAtMs {
			return entries[i].StoredAtMs > entries[j].StoredAtMs
		}
		return entries[i].Key.Hash < entries[j].Key.Hash
	})
	total := len(entries)
	if offset >= total {
		return []cacheEntry{}, total
	}
	end := min(offset+limit, total)
	return entries[offset:end], total
}

func (c *ResultCache) snapshotEntries() []cacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make([]cacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, *entry)
	}
	return entries
}

// loadEntries replaces the content with entries, keeping the most-hit ones
// when they do not all fit.
func (c *ResultCache) loadEntries(entries []cacheEntry) int {
	sorted := append([]cacheEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Hits > sorted[j].Hits
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*cacheEntry, len(sorted))
	for i := range sorted {
		if len(c.entries) >= c.limit {
			break
		}
		entry := sorted[i]
		c.entries[entry.Key] = &entry
	}
	return len(c.entries)
}
