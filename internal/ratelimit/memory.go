package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	data       map[string]*window
	mu         sync.Mutex
	gcInterval time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
}

type window struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryStore creates a store that drops closed windows every gcInterval.
func NewMemoryStore(gcInterval time.Duration) *MemoryStore {
	if gcInterval <= 0 {
		gcInterval = time.Minute
	}

	store := &MemoryStore{
		data:       make(map[string]*window),
		gcInterval: gcInterval,
		stopCh:     make(chan struct{}),
	}
	go store.gc()
	return store
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, length time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w, ok := s.data[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(length)}
		s.data[key] = w
	}
	w.count++
	return w.count, w.expiresAt, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Close stops the collector. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

func (s *MemoryStore) gc() {
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, w := range s.data {
		if !now.Before(w.expiresAt) {
			delete(s.data, key)
		}
	}
}
