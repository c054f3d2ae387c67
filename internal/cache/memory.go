package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a size-bounded LRU whose entries expire after a TTL.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates an LRU holding at most size entries.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 256
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.lru.Purge()
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}

func (m *Memory) Close() error {
	return nil
}
