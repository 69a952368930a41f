// Package cache provides in-memory implementations of quarry.Cache.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/syssam/quarry"
)

// DefaultSize is the number of entries an LRU keeps when no size is given.
const DefaultSize = 1024

// LRU is a size bounded cache evicting the least recently used entries.
// Entries expire after the TTL given to Set. Entries sharing a TTL are
// kept in one expirable LRU, bounded by the size of the cache. It is safe
// for concurrent use.
type LRU struct {
	size int

	mu      sync.RWMutex
	classes map[time.Duration]*expirable.LRU[string, []byte]
}

var _ quarry.Cache = (*LRU)(nil)

// NewLRU returns a cache holding up to size entries per TTL.
func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = DefaultSize
	}
	return &LRU{size: size, classes: make(map[time.Duration]*expirable.LRU[string, []byte])}, nil
}

// class returns the LRU of entries expiring after ttl.
func (l *LRU) class(ttl time.Duration) *expirable.LRU[string, []byte] {
	if ttl < 0 {
		ttl = 0
	}
	l.mu.RLock()
	c := l.classes[ttl]
	l.mu.RUnlock()
	if c != nil {
		return c
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if c = l.classes[ttl]; c == nil {
		c = expirable.NewLRU[string, []byte](l.size, nil, ttl)
		l.classes[ttl] = c
	}
	return c
}

func (l *LRU) each(fn func(*expirable.LRU[string, []byte])) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.classes {
		fn(c)
	}
}

// Get returns the value stored under key, or nil if it is missing or expired.
func (l *LRU) Get(_ context.Context, key string) ([]byte, error) {
	var (
		value []byte
		found bool
	)
	l.each(func(c *expirable.LRU[string, []byte]) {
		if v, ok := c.Get(key); ok && !found {
			value, found = v, true
		}
	})
	return value, nil
}

// Set stores value under key. A zero ttl never expires.
func (l *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	target := l.class(ttl)
	l.each(func(c *expirable.LRU[string, []byte]) {
		if c != target {
			c.Remove(key)
		}
	})
	target.Add(key, value)
	return nil
}

// Delete removes the entry stored under key.
func (l *LRU) Delete(_ context.Context, key string) error {
	l.each(func(c *expirable.LRU[string, []byte]) {
		c.Remove(key)
	})
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (l *LRU) DeletePrefix(_ context.Context, prefix string) error {
	l.each(func(c *expirable.LRU[string, []byte]) {
		for _, k := range c.Keys() {
			if strings.HasPrefix(k, prefix) {
				c.Remove(k)
			}
		}
	})
	return nil
}

// Clear removes all entries.
func (l *LRU) Clear(context.Context) error {
	l.each(func(c *expirable.LRU[string, []byte]) {
		c.Purge()
	})
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (l *LRU) Len() int {
	n := 0
	l.each(func(c *expirable.LRU[string, []byte]) {
		n += c.Len()
	})
	return n
}
