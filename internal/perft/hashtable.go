package perft

import (
	"sync"
	"sync/atomic"
)

// Number of shards for table locking (power of 2 for fast modulo)
const htShardCount = 256
const htShardMask = htShardCount - 1

// HashEntry caches the node count of one subtree.
type HashEntry struct {
	Key   uint64 // Full 64-bit Zobrist hash for verification
	Nodes uint64
	Depth uint8 // 0 marks an empty slot
}

// HashTable maps (position key, depth) to subtree node counts. It is safe
// for concurrent use by the workers of one or more perft runs.
type HashTable struct {
	entries []HashEntry
	shards  [htShardCount]sync.RWMutex
	size    uint64
	mask    uint64

	hits   atomic.Uint64
	probes atomic.Uint64
}

// NewHashTable creates a table using about sizeMB megabytes.
func NewHashTable(sizeMB int) *HashTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	entrySize := uint64(24)
	numEntries := roundDownToPowerOf2((uint64(sizeMB) * 1024 * 1024) / entrySize)

	return &HashTable{
		entries: make([]HashEntry, numEntries),
		size:    numEntries,
		mask:    numEntries - 1,
	}
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (ht *HashTable) shardIndex(idx uint64) int {
	return int(idx & htShardMask)
}

// Probe returns the cached node count for the position at depth.
func (ht *HashTable) Probe(hash uint64, depth int) (uint64, bool) {
	ht.probes.Add(1)

	idx := hash & ht.mask
	shard := ht.shardIndex(idx)

	ht.shards[shard].RLock()
	entry := ht.entries[idx]
	ht.shards[shard].RUnlock()

	if entry.Key == hash && int(entry.Depth) == depth && entry.Depth > 0 {
		ht.hits.Add(1)
		return entry.Nodes, true
	}
	return 0, false
}

// Store saves a subtree count. Deeper entries are kept over shallower
// ones, since they save more work on a hit.
func (ht *HashTable) Store(hash uint64, depth int, nodes uint64) {
	if depth <= 0 || depth > 255 {
		return
	}
	idx := hash & ht.mask
	shard := ht.shardIndex(idx)

	ht.shards[shard].Lock()
	entry := &ht.entries[idx]
	if entry.Depth == 0 || depth >= int(entry.Depth) {
		entry.Key = hash
		entry.Nodes = nodes
		entry.Depth = uint8(depth)
	}
	ht.shards[shard].Unlock()
}

// Clear empties the table and resets its statistics.
func (ht *HashTable) Clear() {
	for s := range ht.shards {
		ht.shards[s].Lock()
	}
	clear(ht.entries)
	for s := range ht.shards {
		ht.shards[s].Unlock()
	}
	ht.hits.Store(0)
	ht.probes.Store(0)
}

// HashFull returns the permille of the first thousand slots in use.
func (ht *HashTable) HashFull() int {
	used := 0
	sampleSize := 1000
	if uint64(sampleSize) > ht.size {
		sampleSize = int(ht.size)
	}
	for i := 0; i < sampleSize; i++ {
		shard := ht.shardIndex(uint64(i))
		ht.shards[shard].RLock()
		if ht.entries[i].Depth > 0 {
			used++
		}
		ht.shards[shard].RUnlock()
	}
	return (used * 1000) / sampleSize
}

// HitRate returns the cache hit rate as a percentage.
func (ht *HashTable) HitRate() float64 {
	probes := ht.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(ht.hits.Load()) / float64(probes) * 100
}

// Size returns the number of entries in the table.
func (ht *HashTable) Size() uint64 {
	return ht.size
}
