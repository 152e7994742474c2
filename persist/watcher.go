package persist

// Watcher is the change-notification port: the enforcer calls
// Update after any policy mutation so that other enforcer instances sharing
// the same backing store can reload. Concrete transports (redis pub/sub,
// etcd watch, NATS, ...) are out of scope; callers wire their own.
type Watcher interface {
	SetUpdateCallback(func(string)) error
	Update() error
	Close()
}

// WatcherEx is an optional extension letting the enforcer tell other
// instances exactly what changed instead of "something changed, reload
// everything".
type WatcherEx interface {
	Watcher
	UpdateForAddPolicy(sec, ptype string, params ...string) error
	UpdateForRemovePolicy(sec, ptype string, params ...string) error
	UpdateForRemoveFilteredPolicy(sec, ptype string, fieldIndex int, fieldValues ...string) error
	UpdateForSavePolicy(model interface{}) error
	UpdateForAddPolicies(sec, ptype string, rules ...[]string) error
	UpdateForRemovePolicies(sec, ptype string, rules ...[]string) error
}
