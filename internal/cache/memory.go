package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// MemoryProvider implements Provider with an in-process map and per-entry
// expiry. It backs default configurations where no Valkey cluster is wired.
type MemoryProvider struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryProvider creates an empty in-memory cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string]memoryEntry)}
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent or expired.
func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	p.mu.RLock()
	entry, ok := p.data[key]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	if entry.expired(time.Now()) {
		p.mu.Lock()
		delete(p.data, key)
		p.mu.Unlock()
		return nil, ErrCacheMiss
	}
	value := append([]byte(nil), entry.value...)
	return value, nil
}

// Set stores bytes with the provided TTL; ttl <= 0 stores without expiry.
func (p *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	p.mu.Lock()
	p.data[key] = entry
	p.mu.Unlock()
	return nil
}

// Del removes an entry.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.data, key)
	p.mu.Unlock()
	return nil
}

// Keys lists unexpired keys matching the glob pattern.
func (p *MemoryProvider) Keys(_ context.Context, pattern string) ([]string, error) {
	now := time.Now()
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0)
	for key, entry := range p.data {
		if entry.expired(now) {
			continue
		}
		if pattern == "" || pattern == "*" {
			keys = append(keys, key)
			continue
		}
		if ok, err := path.Match(pattern, key); err == nil && ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close is a no-op for the memory provider.
func (p *MemoryProvider) Close() error { return nil }

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
