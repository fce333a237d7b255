// Package cache keeps recent lobby snapshots in memory for quick reads.
// It is never the source of truth; the lobby goroutine is.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
)

// SnapshotCache is a bounded, expiring map from lobby ID to its latest snapshot.
type SnapshotCache struct {
	lru    *expirable.LRU[string, engine.Snapshot]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewSnapshotCache creates a cache of at most size lobbies whose entries expire after ttl.
func NewSnapshotCache(size int, ttl time.Duration) *SnapshotCache {
	if size <= 0 {
		size = 1
	}
	return &SnapshotCache{lru: expirable.NewLRU[string, engine.Snapshot](size, nil, ttl)}
}

// Put stores the latest snapshot of a lobby.
func (c *SnapshotCache) Put(lobbyID string, snap engine.Snapshot) {
	c.lru.Add(lobbyID, snap)
}

// Get returns the cached snapshot if it is still fresh.
func (c *SnapshotCache) Get(lobbyID string) (engine.Snapshot, bool) {
	snap, ok := c.lru.Get(lobbyID)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return snap, ok
}

// Invalidate drops a lobby, e.g. after restart or deletion.
func (c *SnapshotCache) Invalidate(lobbyID string) {
	c.lru.Remove(lobbyID)
}

func (c *SnapshotCache) Len() int {
	return c.lru.Len()
}

// Stats returns the hit and miss counters.
func (c *SnapshotCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
