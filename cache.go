package quarry

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Cache is the interface for caching query results.
// The cache package provides an in-memory LRU implementation; any shared
// store (Redis, Memcached) can be plugged in by implementing it.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies a cached read.
type CacheKey struct {
	Model      string
	Operation  string
	Predicates string
	Select     string
	OrderBy    string
	Include    string
	// Limit is nil for unlimited reads, which differ from a limit of 0.
	Limit  *int
	Offset int
}

// Prefix returns the key prefix shared by every cached read of a model.
func (k CacheKey) Prefix() string {
	return k.Model + ":"
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(k.Prefix())
	b.WriteString(k.Operation)
	limit := "-"
	if k.Limit != nil {
		limit = strconv.Itoa(*k.Limit)
	}
	for _, s := range []string{k.Predicates, k.Select, k.OrderBy, k.Include, limit, strconv.Itoa(k.Offset)} {
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}
