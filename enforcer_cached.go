package polyauthz

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/polyauthz/core/util"
)

const defaultCacheSize = 1000

// CachedEnforcer wraps a SyncedEnforcer with an LRU cache from request key
// to decision: a hit skips matcher evaluation and role-graph traversal
// entirely; any mutation flushes the cache in full, so a cached decision
// can never be stale, without needing selective invalidation.
type CachedEnforcer struct {
	synced  *SyncedEnforcer
	cache   *lru.Cache
	cacheMu sync.Mutex
	enabled bool
}

// NewCachedEnforcer builds a CachedEnforcer with the given LRU capacity
// (defaultCacheSize when size <= 0).
func NewCachedEnforcer(size int, params ...interface{}) (*CachedEnforcer, error) {
	synced, err := NewSyncedEnforcer(params...)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedEnforcer{synced: synced, cache: cache, enabled: true}, nil
}

// EnableCache turns result caching on or off without discarding the
// existing entries.
func (e *CachedEnforcer) EnableCache(enable bool) { e.enabled = enable }

// Enforce returns a cached decision when one exists for this exact request
// tuple, else evaluates and caches the result.
func (e *CachedEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if !e.enabled {
		return e.synced.Enforce(rvals...)
	}
	key := util.JoinRequestKey(rvals)
	if v, ok := e.cacheGet(key); ok {
		return v, nil
	}
	result, err := e.synced.Enforce(rvals...)
	if err != nil {
		return false, err
	}
	e.cacheSet(key, result)
	return result, nil
}

func (e *CachedEnforcer) cacheGet(key string) (bool, bool) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	v, ok := e.cache.Get(key)
	if !ok {
		return false, false
	}
	return v.(bool), true
}

func (e *CachedEnforcer) cacheSet(key string, result bool) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.cache.Add(key, result)
}

func (e *CachedEnforcer) invalidate() {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.cache.Purge()
}

// LoadPolicy reloads the policy store and flushes the cache.
func (e *CachedEnforcer) LoadPolicy() error {
	defer e.invalidate()
	return e.synced.LoadPolicy()
}

// AddPolicy adds rule and flushes the cache.
func (e *CachedEnforcer) AddPolicy(params ...string) (bool, error) {
	defer e.invalidate()
	return e.synced.AddPolicy(params...)
}

// RemovePolicy removes rule and flushes the cache.
func (e *CachedEnforcer) RemovePolicy(params ...string) (bool, error) {
	defer e.invalidate()
	return e.synced.RemovePolicy(params...)
}

// AddGroupingPolicy adds a grouping rule and flushes the cache.
func (e *CachedEnforcer) AddGroupingPolicy(params ...string) (bool, error) {
	defer e.invalidate()
	return e.synced.AddGroupingPolicy(params...)
}

// RemoveGroupingPolicy removes a grouping rule and flushes the cache.
func (e *CachedEnforcer) RemoveGroupingPolicy(params ...string) (bool, error) {
	defer e.invalidate()
	return e.synced.RemoveGroupingPolicy(params...)
}

// Synced exposes the wrapped SyncedEnforcer for read-only operations this
// wrapper doesn't need to intercept (no cache entries to invalidate).
func (e *CachedEnforcer) Synced() *SyncedEnforcer { return e.synced }
