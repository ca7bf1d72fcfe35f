package store

import (
	lru "github.com/hashicorp/golang-lru"
)

// cache is a bounded, in-memory read-through cache of decoded header
// records keyed by block hash, sitting in front of bbolt reads. It is
// pure performance: every miss falls through to a cold read, and every
// write (including canonical-flag flips during reorg) overwrites the
// cache entry so it never serves stale data.
type cache struct {
	lru *lru.Cache
}

func newCache(size int) (*cache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &cache{lru: c}, nil
}

func (c *cache) get(hash [32]byte) (Record, bool) {
	v, ok := c.lru.Get(hash)
	if !ok {
		return Record{}, false
	}
	return v.(Record), true
}

func (c *cache) put(hash [32]byte, rec Record) {
	c.lru.Add(hash, rec)
}
