// Package persist defines the external ports the enforcement core
// consumes: Adapter, Watcher, Dispatcher. Concrete implementations
// (file/CSV, SQL, KV, HTTP, pub/sub transports) are explicitly out of
// scope for the core; only one minimal file adapter is kept, under
// persist/fileadapter, purely so the core's own tests have something to
// load fixtures from.
package persist

import "github.com/polyauthz/core/model"

// Adapter is the storage port: load the full policy set into a model,
// persist it back, and (for adapters that support it) perform single-rule
// mutations directly against the backing store.
type Adapter interface {
	LoadPolicy(model model.Model) error
	SavePolicy(model model.Model) error

	AddPolicy(sec string, ptype string, rule []string) error
	RemovePolicy(sec string, ptype string, rule []string) error
	RemoveFilteredPolicy(sec string, ptype string, fieldIndex int, fieldValues ...string) error
}

// BatchAdapter is an optional extension for adapters that can perform
// multi-rule add/remove more efficiently than looping single-rule calls.
type BatchAdapter interface {
	Adapter
	AddPolicies(sec string, ptype string, rules [][]string) error
	RemovePolicies(sec string, ptype string, rules [][]string) error
}

// FilteredAdapter is an optional extension for adapters that can load only
// a subset of the policy store. The filter value's shape is
// adapter-specific; the core passes it through opaquely.
type FilteredAdapter interface {
	Adapter
	IsFiltered() bool
	LoadFilteredPolicy(model model.Model, filter interface{}) error
}

// IncrementalFilteredAdapter additionally supports appending another
// filtered slice onto an already-filtered load.
type IncrementalFilteredAdapter interface {
	FilteredAdapter
	LoadIncrementalFilteredPolicy(model model.Model, filter interface{}) error
}

// UpdatableAdapter is an optional extension for adapters that can replace a
// rule in place rather than remove-then-add.
type UpdatableAdapter interface {
	Adapter
	UpdatePolicy(sec string, ptype string, oldRule, newRule []string) error
	UpdatePolicies(sec string, ptype string, oldRules, newRules [][]string) error
}
