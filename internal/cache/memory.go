package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/neexbeast/city-infos/internal/cities"
)

// Memory is the in-process snapshot cache used when no Redis is configured.
type Memory struct {
	items *gocache.Cache
}

// NewMemory constructs a Memory cache. Expired entries are purged every 2*ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{items: gocache.New(ttl, 2*ttl)}
}

// Get returns nil, nil on a miss.
func (m *Memory) Get(_ context.Context, cityID string) (*cities.Snapshot, error) {
	v, found := m.items.Get(cityID)
	if !found {
		return nil, nil
	}
	snap, ok := v.(*cities.Snapshot)
	if !ok {
		m.items.Delete(cityID)
		return nil, nil
	}
	return snap, nil
}

// Set stores snap until the ttl expires. A nil snap is ignored.
func (m *Memory) Set(_ context.Context, cityID string, snap *cities.Snapshot) error {
	if snap == nil {
		return nil
	}
	m.items.Set(cityID, snap, gocache.DefaultExpiration)
	return nil
}

// Delete evicts the snapshot of the given city, if any.
func (m *Memory) Delete(_ context.Context, cityID string) error {
	m.items.Delete(cityID)
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }
