package polyauthz

import (
	"sync"

	"github.com/polyauthz/core/rbac"
)

// FunctionalEnforcer is the immutable enforcer variant: every mutating
// method returns a new *FunctionalEnforcer sharing a copy-on-write Model
// (Model.Copy(), the same mechanism CoreEnforcer.LoadPolicy already uses)
// instead of mutating shared state, so it requires no locking and is safe
// to hand to any number of goroutines so long as each holds its own value.
type FunctionalEnforcer struct {
	core *CoreEnforcer
}

// NewFunctionalEnforcer builds a FunctionalEnforcer the same way
// NewEnforcer does.
func NewFunctionalEnforcer(params ...interface{}) (*FunctionalEnforcer, error) {
	core, err := NewEnforcer(params...)
	if err != nil {
		return nil, err
	}
	return &FunctionalEnforcer{core: core}, nil
}

// Enforce decides against the current, immutable snapshot.
func (e *FunctionalEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	return e.core.Enforce(rvals...)
}

// EnforceWithMatcher is Enforce with an ad-hoc matcher.
func (e *FunctionalEnforcer) EnforceWithMatcher(matcher string, rvals ...interface{}) (bool, error) {
	return e.core.EnforceWithMatcher(matcher, rvals...)
}

// WithPolicy returns a new FunctionalEnforcer with rule added to the
// default policy type, leaving the receiver's snapshot untouched.
func (e *FunctionalEnforcer) WithPolicy(params ...string) (*FunctionalEnforcer, error) {
	next := e.fork()
	if _, err := next.core.AddPolicy(params...); err != nil {
		return nil, err
	}
	return next, nil
}

// WithoutPolicy returns a new FunctionalEnforcer with rule removed from
// the default policy type.
func (e *FunctionalEnforcer) WithoutPolicy(params ...string) (*FunctionalEnforcer, error) {
	next := e.fork()
	if _, err := next.core.RemovePolicy(params...); err != nil {
		return nil, err
	}
	return next, nil
}

// WithGroupingPolicy returns a new FunctionalEnforcer with a grouping rule
// added.
func (e *FunctionalEnforcer) WithGroupingPolicy(params ...string) (*FunctionalEnforcer, error) {
	next := e.fork()
	if _, err := next.core.AddGroupingPolicy(params...); err != nil {
		return nil, err
	}
	return next, nil
}

// WithoutGroupingPolicy returns a new FunctionalEnforcer with a grouping
// rule removed.
func (e *FunctionalEnforcer) WithoutGroupingPolicy(params ...string) (*FunctionalEnforcer, error) {
	next := e.fork()
	if _, err := next.core.RemoveGroupingPolicy(params...); err != nil {
		return nil, err
	}
	return next, nil
}

// fork builds a sibling CoreEnforcer over a copy-on-write model, reusing
// the same adapter/watcher/dispatcher/logger but an independent policy
// store and role-manager set so mutating the fork never touches e.
func (e *FunctionalEnforcer) fork() *FunctionalEnforcer {
	next := &CoreEnforcer{
		modelPath:            e.core.modelPath,
		model:                e.core.model.Copy(),
		fm:                   e.core.fm,
		eft:                  e.core.eft,
		adapter:              e.core.adapter,
		watcher:              e.core.watcher,
		dispatcher:           e.core.dispatcher,
		enabled:              e.core.enabled,
		autoSave:             false,
		autoBuildRoleLinks:   e.core.autoBuildRoleLinks,
		autoNotifyWatcher:    false,
		autoNotifyDispatcher: false,
		acceptJSONRequest:    e.core.acceptJSONRequest,
		logger:               e.core.logger,
	}
	next.matcherMap = sync.Map{}
	next.rmMap = map[string]rbac.RoleManager{}
	next.initRmMap()
	if next.autoBuildRoleLinks {
		_ = next.BuildRoleLinks()
	}
	return &FunctionalEnforcer{core: next}
}

// Core exposes the current immutable snapshot's underlying CoreEnforcer
// read-only surface (Enforce*, Get*); callers must not use its mutating
// methods directly, since that would defeat copy-on-write semantics.
func (e *FunctionalEnforcer) Core() *CoreEnforcer { return e.core }
