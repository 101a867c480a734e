package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process Provider for local development and tests.
type MemoryProvider struct {
	mu   sync.RWMutex
	data map[string]memoryItem
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryProvider creates an empty in-process cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string]memoryItem)}
}

// Get retrieves a cached item if present and not expired.
func (p *MemoryProvider) Get(ctx context.Context, key string) ([]byte, error) {
	p.mu.RLock()
	item, ok := p.data[key]
	p.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		p.mu.Lock()
		// Recheck under the write lock; a concurrent Set may have renewed it.
		if current, stillThere := p.data[key]; stillThere && current.expiresAt.Equal(item.expiresAt) {
			delete(p.data, key)
		}
		p.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return item.value, nil
}

// Set stores a value. A zero TTL keeps the entry until deleted.
func (p *MemoryProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	p.mu.Lock()
	p.data[key] = memoryItem{value: value, expiresAt: expires}
	p.mu.Unlock()
	return nil
}

// Del removes an entry.
func (p *MemoryProvider) Del(ctx context.Context, key string) error {
	p.mu.Lock()
	delete(p.data, key)
	p.mu.Unlock()
	return nil
}

// Close is a no-op for the in-process cache.
func (p *MemoryProvider) Close() error { return nil }
