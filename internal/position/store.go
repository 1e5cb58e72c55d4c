// Package position implements the Position Store: a per-line projection of
// wager state fetched from the Exchange Client (spec §4.5). The store is
// stateless across cycles aside from memoization within a single refresh
// pass — the exchange is always authoritative.
package position

import (
	"sync"

	"github.com/svyatogor45/linekeeper/internal/models"
)

const defaultShardCount = 16

// fnvHash is a dependency-free FNV-1a hash used only to pick a shard; it is
// not used for anything security-sensitive.
func fnvHash(s string) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

type shard struct {
	mu         sync.RWMutex
	positions  map[string]models.LinePosition
}

// Store holds the current LinePosition per line_id, sharded by a hash of
// the line_id so refreshes for unrelated lines never contend on the same
// lock (the same technique the reference arbitrage engine uses to shard
// its price tracker by symbol).
type Store struct {
	shards     []*shard
	numShards  uint32
}

// New builds a Store with the default shard count.
func New() *Store {
	return NewWithShards(defaultShardCount)
}

// NewWithShards allows overriding shard count, mainly for tests that want
// to force collisions.
func NewWithShards(n int) *Store {
	if n <= 0 {
		n = 1
	}
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{positions: make(map[string]models.LinePosition)}
	}
	return &Store{shards: shards, numShards: uint32(n)}
}

func (s *Store) shardFor(lineID string) *shard {
	idx := fnvHash(lineID) % s.numShards
	return s.shards[idx]
}

// Put stores the freshly computed LinePosition for a line, replacing any
// previous value. Called by the refresh pass once wager records for that
// line have been summarized.
func (s *Store) Put(lineID string, lp models.LinePosition) {
	sh := s.shardFor(lineID)
	sh.mu.Lock()
	sh.positions[lineID] = lp
	sh.mu.Unlock()
}

// Get returns the last-known LinePosition for a line and whether one exists.
func (s *Store) Get(lineID string) (models.LinePosition, bool) {
	sh := s.shardFor(lineID)
	sh.mu.RLock()
	lp, ok := sh.positions[lineID]
	sh.mu.RUnlock()
	return lp, ok
}

// Delete drops a line's position, used when a line leaves the resolved map.
func (s *Store) Delete(lineID string) {
	sh := s.shardFor(lineID)
	sh.mu.Lock()
	delete(sh.positions, lineID)
	sh.mu.Unlock()
}

// Snapshot returns a copy of every tracked position, for admin reporting.
func (s *Store) Snapshot() map[string]models.LinePosition {
	out := make(map[string]models.LinePosition)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, v := range sh.positions {
			out[k] = v
		}
		sh.mu.RUnlock()
	}
	return out
}
