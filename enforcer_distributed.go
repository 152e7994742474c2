package polyauthz

import "github.com/polyauthz/core/model"

// DistributedEnforcer wraps a SyncedEnforcer and forwards every local
// mutation to a persist.Dispatcher instead of applying it
// directly: the dispatcher is responsible for
// broadcasting the change to every enforcer instance in the cluster,
// including this one, which is why the local call itself does not touch
// the model; ApplyRemote* is the only path that does, and it is also
// what the dispatcher calls back into on every replica once a change has
// been accepted. The Self* path on CoreEnforcer exists precisely so
// ApplyRemote* can mutate locally without re-dispatching and looping.
type DistributedEnforcer struct {
	*SyncedEnforcer
}

// NewDistributedEnforcer builds a DistributedEnforcer the same way
// NewEnforcer does; call SetDispatcher afterward to wire the transport.
func NewDistributedEnforcer(params ...interface{}) (*DistributedEnforcer, error) {
	synced, err := NewSyncedEnforcer(params...)
	if err != nil {
		return nil, err
	}
	return &DistributedEnforcer{SyncedEnforcer: synced}, nil
}

// AddPolicy forwards the mutation to the dispatcher rather than applying
// it locally; the dispatcher is expected to call back into
// ApplyRemoteAddPolicies on every replica, this one included. It
// deliberately does not hold e.mu while forwarding: a same-process
// dispatcher (as in tests, or a single-node deployment) calls back into
// this replica's ApplyRemote* synchronously, which needs the write lock,
// so holding even a read lock here across that call would deadlock
// against sync.RWMutex's non-reentrant Lock.
func (e *DistributedEnforcer) AddPolicy(params ...string) (bool, error) {
	return e.core.addPolicy("p", "p", params)
}

// RemovePolicy forwards the mutation to the dispatcher.
func (e *DistributedEnforcer) RemovePolicy(params ...string) (bool, error) {
	return e.core.removePolicy("p", "p", params)
}

// AddGroupingPolicy forwards the mutation to the dispatcher.
func (e *DistributedEnforcer) AddGroupingPolicy(params ...string) (bool, error) {
	return e.core.addPolicy("g", "g", params)
}

// RemoveGroupingPolicy forwards the mutation to the dispatcher.
func (e *DistributedEnforcer) RemoveGroupingPolicy(params ...string) (bool, error) {
	return e.core.removePolicy("g", "g", params)
}

// ApplyRemoteAddPolicies applies a dispatcher-originated add under the
// write lock, without re-forwarding to the dispatcher (the Self* path).
func (e *DistributedEnforcer) ApplyRemoteAddPolicies(sec, ptype string, rules [][]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rule := range rules {
		if _, err := e.core.SelfAddPolicy(sec, ptype, rule); err != nil {
			return err
		}
	}
	return nil
}

// ApplyRemoteRemovePolicies applies a dispatcher-originated remove under
// the write lock.
func (e *DistributedEnforcer) ApplyRemoteRemovePolicies(sec, ptype string, rules [][]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rule := range rules {
		if _, err := e.core.SelfRemovePolicy(sec, ptype, rule); err != nil {
			return err
		}
	}
	return nil
}

// ApplyRemoteRemoveFilteredPolicy applies a dispatcher-originated filtered
// remove under the write lock.
func (e *DistributedEnforcer) ApplyRemoteRemoveFilteredPolicy(sec, ptype string, fieldIndex int, fieldValues []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed, err := e.core.model.RemoveFilteredPolicy(sec, ptype, fieldIndex, fieldValues...)
	if err != nil || len(removed) == 0 {
		return err
	}
	if sec == "g" && e.core.autoBuildRoleLinks {
		if err := e.core.BuildIncrementalRoleLinks(model.PolicyRemove, ptype, removed); err != nil {
			return err
		}
	}
	return e.core.maybeSave()
}

// ApplyRemoteClearPolicy applies a dispatcher-originated clear under the
// write lock.
func (e *DistributedEnforcer) ApplyRemoteClearPolicy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.model.ClearPolicy()
	for _, rm := range e.core.rmMap {
		if err := rm.Clear(); err != nil {
			return err
		}
	}
	return e.core.maybeSave()
}
