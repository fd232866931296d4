package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryFlagStore keeps flags and rate-limit windows in process memory.
type MemoryFlagStore struct {
	mu         sync.Mutex
	flags      map[string]flagEntry
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

type flagEntry struct {
	value     string
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// NewMemoryFlagStore creates a store; ttl <= 0 keeps flags forever.
func NewMemoryFlagStore(ttl time.Duration) *MemoryFlagStore {
	return &MemoryFlagStore{
		flags:      make(map[string]flagEntry),
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryFlagStore) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.flags[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && r.now().After(e.expiresAt) {
		delete(r.flags, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (r *MemoryFlagStore) Set(ctx context.Context, key, value string) error {
	e := flagEntry{value: value}
	if r.ttl > 0 {
		e.expiresAt = r.now().Add(r.ttl)
	}
	r.mu.Lock()
	r.flags[key] = e
	r.mu.Unlock()
	return nil
}

func (r *MemoryFlagStore) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	delete(r.flags, key)
	r.mu.Unlock()
	return nil
}

// CheckRateLimit counts a hit in a fixed window and reports whether it is within limit.
func (r *MemoryFlagStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
