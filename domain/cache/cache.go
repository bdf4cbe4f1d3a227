// Package cache provides the router-owned memoization of candidate paths.
// The cache is keyed by a typed composite key rather than string
// concatenation, and is invalidated wholesale whenever the pool snapshot is
// replaced.
package cache

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/batchswap/sor/domain"
)

// RouteCacheKey identifies one (tokenIn, tokenOut, swapType) routing problem.
type RouteCacheKey struct {
	TokenIn  common.Address
	TokenOut common.Address
	Kind     domain.SwapTypes
}

// RoutesCache is a TTL-bounded LRU of candidate path sets. Concurrent
// requests for the same uncached key may redundantly compute the same paths;
// that is acceptable, there is no single-flight requirement.
type RoutesCache[V any] struct {
	lru *expirable.LRU[RouteCacheKey, V]
}

// New creates a routes cache holding at most size entries for at most ttl.
func New[V any](size int, ttl time.Duration) *RoutesCache[V] {
	return &RoutesCache[V]{
		lru: expirable.NewLRU[RouteCacheKey, V](size, nil, ttl),
	}
}

// Get returns the cached value for the key, if present and unexpired.
func (c *RoutesCache[V]) Get(key RouteCacheKey) (V, bool) {
	return c.lru.Get(key)
}

// Set stores the value under the key.
func (c *RoutesCache[V]) Set(key RouteCacheKey, value V) {
	c.lru.Add(key, value)
}

// Purge drops every entry. Called when a new pool snapshot replaces the old
// one so that no request ever routes over a partially stale view.
func (c *RoutesCache[V]) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *RoutesCache[V]) Len() int {
	return c.lru.Len()
}
