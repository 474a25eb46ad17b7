package mesh

import (
	"iter"

	"robotmesh"
	"robotmesh/internal/check"
)

// DefaultCacheCapacity is how many peers a scan keeps when no capacity is
// configured. It also bounds the connect attempts per scan.
const DefaultCacheCapacity = 4

// RankedCache holds the strongest peers seen during one scan, strongest
// first. Its backing storage is sized once at construction and never grows.
//
// Peers are not de-duplicated by hardware id: the same radio heard twice in
// one scan can occupy two slots.
type RankedCache struct {
	entries  []robotmesh.PeerRecord
	capacity int
}

// NewRankedCache returns an empty cache holding at most capacity peers.
// A capacity <= 0 selects DefaultCacheCapacity.
func NewRankedCache(capacity int) *RankedCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &RankedCache{
		entries:  make([]robotmesh.PeerRecord, 0, capacity),
		capacity: capacity,
	}
}

// Insert offers rec to the cache. The record lands before the first held
// peer that is strictly weaker, evicting the weakest peer if the cache is
// full. A record no stronger than every held peer is appended only while
// there is room.
func (c *RankedCache) Insert(rec robotmesh.PeerRecord) {
	n := len(c.entries)
	if n == 0 {
		c.entries = append(c.entries, rec)
		return
	}

	for i, held := range c.entries {
		if held.SignalStrength >= rec.SignalStrength {
			continue
		}
		if n == c.capacity {
			c.entries = c.entries[:n-1]
		}
		c.entries = append(c.entries, robotmesh.PeerRecord{})
		copy(c.entries[i+1:], c.entries[i:])
		c.entries[i] = rec
		c.assertRanked()
		return
	}

	if n < c.capacity {
		c.entries = append(c.entries, rec)
	}
}

// Len returns the number of cached peers.
func (c *RankedCache) Len() int { return len(c.entries) }

// Cap returns the fixed capacity.
func (c *RankedCache) Cap() int { return c.capacity }

// At returns the i-th strongest peer.
func (c *RankedCache) At(i int) robotmesh.PeerRecord { return c.entries[i] }

// Peers returns a copy of the cached peers, strongest first.
func (c *RankedCache) Peers() []robotmesh.PeerRecord {
	out := make([]robotmesh.PeerRecord, len(c.entries))
	copy(out, c.entries)
	return out
}

// All iterates the cached peers by rank.
func (c *RankedCache) All() iter.Seq2[int, robotmesh.PeerRecord] {
	return func(yield func(int, robotmesh.PeerRecord) bool) {
		for i, rec := range c.entries {
			if !yield(i, rec) {
				return
			}
		}
	}
}

// Reset empties the cache, keeping its storage.
func (c *RankedCache) Reset() {
	c.entries = c.entries[:0]
}

func (c *RankedCache) assertRanked() {
	if !check.Enabled() {
		return
	}
	check.Assertf(len(c.entries) <= c.capacity, "ranked cache holds %d > %d", len(c.entries), c.capacity)
	for i := 1; i < len(c.entries); i++ {
		check.Assertf(c.entries[i-1].SignalStrength >= c.entries[i].SignalStrength,
			"ranked cache out of order at %d: %d < %d", i, c.entries[i-1].SignalStrength, c.entries[i].SignalStrength)
	}
}
