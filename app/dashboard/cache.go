package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SnapshotKey identifies a view derived at one block height.
type SnapshotKey struct {
	Identity           common.Address
	Role               domain.Role
	IncludeZeroBalance bool
	BlockHeight        uint64
}

func (k SnapshotKey) String() string {
	return fmt.Sprintf("%s:%s:%t:%d", strings.ToLower(k.Identity.Hex()), k.Role, k.IncludeZeroBalance, k.BlockHeight)
}

// SnapshotCache stores derived views. It is an optimisation only: a miss or a
// failing cache never changes a load's result.
type SnapshotCache interface {
	Get(ctx context.Context, key SnapshotKey) (*View, bool, error)
	Set(ctx context.Context, key SnapshotKey, view *View) error
	// Invalidate drops every snapshot of identity.
	Invalidate(ctx context.Context, identity common.Address) error
}

// DefaultMemoryCacheSize bounds a MemoryCache built with a non-positive size.
const DefaultMemoryCacheSize = 4096

// MemoryCache is a process-local SnapshotCache. Entries expire after the TTL
// and the least recently used ones are evicted once size is reached, so
// snapshots of past block heights do not pile up.
type MemoryCache struct {
	lru *expirable.LRU[SnapshotKey, *View]
}

func NewMemoryCache(ttl time.Duration, size int) *MemoryCache {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	return &MemoryCache{lru: expirable.NewLRU[SnapshotKey, *View](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key SnapshotKey) (*View, bool, error) {
	view, ok := c.lru.Get(key)
	return view, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key SnapshotKey, view *View) error {
	c.lru.Add(key, view)
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, identity common.Address) error {
	for _, key := range c.lru.Keys() {
		if key.Identity == identity {
			c.lru.Remove(key)
		}
	}
	return nil
}

// Len returns the number of cached snapshots.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
