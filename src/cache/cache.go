// Package cache memoizes resource listings per query shape.
package cache

import (
	"context"
	"strconv"
	"sync"

	"ResourceDirectory/src/resource"
	"ResourceDirectory/src/types"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"golang.org/x/sync/singleflight"
)

// AllKey identifies the unscoped listing.
const AllKey = "all"

type Loader func(ctx context.Context) (map[string]*resource.Resource, error)

// Result tells how a Get was served.
type Result string

const (
	Hit    Result = "hit"
	Miss   Result = "miss"
	Shared Result = "shared"
)

// ResourceCache holds one populated mapping per query shape. Concurrent
// misses on the same key share a single load.
type ResourceCache struct {
	mu         sync.Mutex
	entries    map[string]map[string]*resource.Resource
	generation uint64
	group      singleflight.Group
}

func New() *ResourceCache {
	return &ResourceCache{entries: make(map[string]map[string]*resource.Resource)}
}

// KeyFor returns the cache key of a query shape. Centers within the same
// 12-character geohash cell (a few centimeters) share an entry.
func KeyFor(area *types.AreaSpecifier) string {
	if area == nil {
		return AllKey
	}
	return "area:" + geohash.Encode(area.Latitude, area.Longitude) + ":" +
		strconv.FormatFloat(area.DistanceMeters, 'f', -1, 64)
}

// Get returns the mapping cached under key, loading it on a miss. A load
// that overlaps a Clear is returned to its callers but not stored. The load
// is detached from ctx cancellation since other callers may share it.
func (c *ResourceCache) Get(ctx context.Context, key string, load Loader) (map[string]*resource.Resource, Result, error) {
	c.mu.Lock()
	if m, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return m, Hit, nil
	}
	gen := c.generation
	c.mu.Unlock()

	// Loads are shared per generation: a caller arriving after Clear never
	// joins a load that started before it.
	flight := key + "#" + strconv.FormatUint(gen, 10)
	v, err, shared := c.group.Do(flight, func() (interface{}, error) {
		m, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.entries[key] = m
		}
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, Miss, err
	}
	result := Miss
	if shared {
		result = Shared
	}
	return v.(map[string]*resource.Resource), result, nil
}

func (c *ResourceCache) Populated(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Clear drops every cached shape.
func (c *ResourceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]map[string]*resource.Resource)
	c.generation++
}
