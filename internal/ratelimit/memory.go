// Package ratelimit provides fixed-window request limiting backed by an
// in-process or Redis counter store.
package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryStore is a thread-safe, bounded counter store. When it is full the
// least recently touched key is evicted.
type MemoryStore struct {
	mu      sync.Mutex
	maxKeys int
	items   map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

type counterEntry struct {
	key       string
	count     int64
	expiresAt time.Time
}

// NewMemoryStore creates a store holding at most maxKeys counters.
func NewMemoryStore(maxKeys int) *MemoryStore {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &MemoryStore{
		maxKeys: maxKeys,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Increment bumps the counter for key, starting a new window when the
// previous one has elapsed.
func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if elem, ok := s.items[key]; ok {
		entry := elem.Value.(*counterEntry)
		s.order.MoveToFront(elem)
		if now.Before(entry.expiresAt) {
			entry.count++
			return entry.count, entry.expiresAt.Sub(now), nil
		}
		// Start new counter window
		entry.count = 1
		entry.expiresAt = now.Add(window)
		return 1, window, nil
	}

	entry := &counterEntry{
		key:       key,
		count:     1,
		expiresAt: now.Add(window),
	}
	s.items[key] = s.order.PushFront(entry)

	for s.order.Len() > s.maxKeys {
		s.removeOldest()
	}
	return 1, window, nil
}

// Ping checks store health.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close drops every counter.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*list.Element)
	s.order = list.New()
	return nil
}

// Stats returns the number of tracked keys and the capacity.
func (s *MemoryStore) Stats() (size int, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len(), s.maxKeys
}

func (s *MemoryStore) removeOldest() {
	elem := s.order.Back()
	if elem == nil {
		return
	}
	s.order.Remove(elem)
	delete(s.items, elem.Value.(*counterEntry).key)
}
