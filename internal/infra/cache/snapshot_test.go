package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
)

func TestSnapshotCacheEvictsOldest(t *testing.T) {
	c := NewSnapshotCache(2, time.Minute)
	c.Put("a", engine.Snapshot{DayCount: 1})
	c.Put("b", engine.Snapshot{DayCount: 2})
	c.Put("c", engine.Snapshot{DayCount: 3})

	_, ok := c.Get("a")
	assert.False(t, ok)
	snap, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, snap.DayCount)
	assert.Equal(t, 2, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestSnapshotCacheInvalidateAndExpire(t *testing.T) {
	c := NewSnapshotCache(4, 20*time.Millisecond)
	c.Put("a", engine.Snapshot{})
	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("b", engine.Snapshot{})
	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("b")
	assert.False(t, ok)
}
