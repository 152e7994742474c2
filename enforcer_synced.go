package polyauthz

import "sync"

// SyncedEnforcer wraps a CoreEnforcer with a RWMutex: any
// number of Enforce calls run concurrently under RLock, while every
// mutating call takes the exclusive Lock, so writes on one instance are
// linearizable and a read observes every write that completed before it
// began.
type SyncedEnforcer struct {
	mu   sync.RWMutex
	core *CoreEnforcer
}

// NewSyncedEnforcer builds a SyncedEnforcer the same way NewEnforcer does.
func NewSyncedEnforcer(params ...interface{}) (*SyncedEnforcer, error) {
	core, err := NewEnforcer(params...)
	if err != nil {
		return nil, err
	}
	return &SyncedEnforcer{core: core}, nil
}

// Enforce acquires a read lock and delegates to the wrapped CoreEnforcer.
func (e *SyncedEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.core.Enforce(rvals...)
}

// EnforceWithMatcher is Enforce with an ad-hoc matcher.
func (e *SyncedEnforcer) EnforceWithMatcher(matcher string, rvals ...interface{}) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.core.EnforceWithMatcher(matcher, rvals...)
}

// EnforceEx is Enforce plus the deciding rule.
func (e *SyncedEnforcer) EnforceEx(rvals ...interface{}) (bool, []string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.core.EnforceEx(rvals...)
}

// BatchEnforce decides a slice of requests under a single read lock.
func (e *SyncedEnforcer) BatchEnforce(requests [][]interface{}) ([]bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.core.BatchEnforce(requests)
}

// LoadPolicy reloads the policy store under the write lock.
func (e *SyncedEnforcer) LoadPolicy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.LoadPolicy()
}

// SavePolicy persists the policy store; readers are not blocked since the
// in-memory model isn't mutated.
func (e *SyncedEnforcer) SavePolicy() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.core.SavePolicy()
}

// AddPolicy adds rule under the write lock.
func (e *SyncedEnforcer) AddPolicy(params ...string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.AddPolicy(params...)
}

// RemovePolicy removes rule under the write lock.
func (e *SyncedEnforcer) RemovePolicy(params ...string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.RemovePolicy(params...)
}

// AddGroupingPolicy adds a grouping rule under the write lock.
func (e *SyncedEnforcer) AddGroupingPolicy(params ...string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.AddGroupingPolicy(params...)
}

// RemoveGroupingPolicy removes a grouping rule under the write lock.
func (e *SyncedEnforcer) RemoveGroupingPolicy(params ...string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.RemoveGroupingPolicy(params...)
}

// BuildRoleLinks rebuilds every role graph under the write lock.
func (e *SyncedEnforcer) BuildRoleLinks() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.BuildRoleLinks()
}

// Core exposes the wrapped enforcer for callers that need an operation
// this wrapper doesn't forward; such callers are responsible for their
// own locking discipline.
func (e *SyncedEnforcer) Core() *CoreEnforcer { return e.core }
