package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process fast tier backed by an expiring map. It is the
// default when no Redis address is configured.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates an in-process fast tier. Expired entries are swept
// every 10 minutes.
func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := m.c.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.c.Set(key, val, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *Memory) Name() string { return "memory" }

// Len returns the number of live entries, for stats.
func (m *Memory) Len() int { return m.c.ItemCount() }
