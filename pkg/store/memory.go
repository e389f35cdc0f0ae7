package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// shardCount is the number of independent shards in the memory store.
// Sharding keeps key operations from serializing behind a single lock.
const shardCount = 64

// Memory implements Store using in-process sharded maps. This is the default
// backend; all data is lost when the process exits.
//
// Keys are distributed over fixed shards by FNV-1a hash, so concurrent
// operations on different keys contend only when they land on the same shard.
type Memory struct {
	shards [shardCount]*shard
}

// shard is a single lock-protected segment of the key space.
type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// entry is a stored value with its counter and expiry.
type entry struct {
	value     []byte
	count     int64
	expiresAt time.Time
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return m
}

// shardFor returns the shard responsible for key.
func (m *Memory) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

// IncrementWithin atomically increments the counter at key, starting a new
// window with expiry ttl when the key is absent or expired.
func (m *Memory) IncrementWithin(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("ttl must be positive, got %v", ttl)
	}

	s := m.shardFor(key)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.After(e.expiresAt) {
		s.entries[key] = &entry{count: 1, expiresAt: now.Add(ttl)}
		return 1, nil
	}

	e.count++
	return e.count, nil
}

// Get retrieves the value stored at key.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s := m.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}

	// Copy so callers cannot mutate the stored value.
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

// Set stores value at key with the given ttl.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", ttl)
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{value: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes the entry at key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	s := m.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// TTL returns the remaining lifetime of key.
func (m *Memory) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	s := m.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return 0, false, nil
	}
	remaining := time.Until(e.expiresAt)
	if remaining <= 0 {
		delete(s.entries, key)
		return 0, false, nil
	}
	return remaining, true, nil
}

// Prune removes expired entries across all shards.
func (m *Memory) Prune(ctx context.Context) (int, error) {
	now := time.Now()
	removed := 0

	for _, s := range m.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if now.After(e.expiresAt) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}

	return removed, nil
}

// Close releases resources. The memory store has none.
func (m *Memory) Close() error {
	return nil
}

// Size returns the number of live entries. Useful for monitoring and tests.
func (m *Memory) Size() int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
