package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache is a size-bounded LRU whose entries also expire after a TTL.
type Cache[V any] struct {
	lru *lru.Cache[string, cacheItem[V]]
	now func() time.Time
}

// NewCache creates a cache holding at most size entries.
func NewCache[V any](size int) (*Cache[V], error) {
	l, err := lru.New[string, cacheItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: l, now: time.Now}, nil
}

// Set 设置缓存，ttl 为有效期
func (c *Cache[V]) Set(key string, data V, ttl time.Duration) {
	c.lru.Add(key, cacheItem[V]{data: data, expiresAt: c.now().Add(ttl)})
}

// Get returns the entry for key unless it is missing or expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	item, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return item.data, true
}

func (c *Cache[V]) Delete(key string) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}
