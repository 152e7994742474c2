package polyauthz

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/polyauthz/core/errs"
	"github.com/polyauthz/core/rbac"
)

// txnOp is one staged mutation, replayed in order against the
// transaction's working copy at Commit time.
type txnOp func(*CoreEnforcer) error

// Txn stages a sequence of mutations and applies them atomically at
// Commit: Commit copies the parent's current model into a private working
// copy, runs every staged op against it, and only on success does that
// copy replace the parent's model; any failure discards the working copy
// and leaves the parent untouched. Begin takes no snapshot, so changes
// made to the parent between Begin and Commit are kept and the staged ops
// apply on top of them. The id is carried
// purely for logging/tracing and plays no role in commit/rollback
// correctness.
type Txn struct {
	id     uuid.UUID
	parent *CoreEnforcer
	ops    []txnOp
	done   bool
}

// Begin starts a transaction against e.
func Begin(e *CoreEnforcer) *Txn {
	return &Txn{id: uuid.New(), parent: e}
}

// ID returns the transaction's tracing identifier.
func (t *Txn) ID() uuid.UUID { return t.id }

// AddPolicy stages adding rule to the default policy type.
func (t *Txn) AddPolicy(params ...string) error {
	return t.stage(func(e *CoreEnforcer) error {
		_, err := e.AddPolicy(params...)
		return err
	})
}

// AddNamedPolicy stages adding rule to ptype.
func (t *Txn) AddNamedPolicy(ptype string, params ...string) error {
	return t.stage(func(e *CoreEnforcer) error {
		_, err := e.AddNamedPolicy(ptype, params...)
		return err
	})
}

// RemovePolicy stages removing rule from the default policy type.
func (t *Txn) RemovePolicy(params ...string) error {
	return t.stage(func(e *CoreEnforcer) error {
		_, err := e.RemovePolicy(params...)
		return err
	})
}

// RemoveNamedPolicy stages removing rule from ptype.
func (t *Txn) RemoveNamedPolicy(ptype string, params ...string) error {
	return t.stage(func(e *CoreEnforcer) error {
		_, err := e.RemoveNamedPolicy(ptype, params...)
		return err
	})
}

// AddGroupingPolicy stages adding a grouping rule to the default type.
func (t *Txn) AddGroupingPolicy(params ...string) error {
	return t.stage(func(e *CoreEnforcer) error {
		_, err := e.AddGroupingPolicy(params...)
		return err
	})
}

// RemoveGroupingPolicy stages removing a grouping rule from the default type.
func (t *Txn) RemoveGroupingPolicy(params ...string) error {
	return t.stage(func(e *CoreEnforcer) error {
		_, err := e.RemoveGroupingPolicy(params...)
		return err
	})
}

// UpdatePolicy stages replacing oldRule with newRule in the default
// policy type.
func (t *Txn) UpdatePolicy(oldRule, newRule []string) error {
	return t.stage(func(e *CoreEnforcer) error {
		_, err := e.UpdatePolicy(oldRule, newRule)
		return err
	})
}

func (t *Txn) stage(op txnOp) error {
	if t.done {
		return errs.ErrTransactionClosed
	}
	t.ops = append(t.ops, op)
	return nil
}

// Commit replays every staged op, in order, against a private working
// copy of the parent's model and role graphs. If every op succeeds, the
// working copy becomes the parent's model; otherwise the parent is left
// exactly as it was before Commit was called and the caller receives
// errs.ErrTransactionAborted wrapping the failing op's error. A committed
// or rolled-back transaction rejects further staging.
func (t *Txn) Commit() error {
	if t.done {
		return errs.ErrTransactionClosed
	}
	t.done = true

	working := t.fork()
	for _, op := range t.ops {
		if err := op(working); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrTransactionAborted, err)
		}
	}

	t.parent.model = working.model
	t.parent.rmMap = working.rmMap
	t.parent.matcherMap = sync.Map{}
	return nil
}

// Rollback discards every staged op; the parent enforcer is left exactly
// as it was before Begin. A committed or rolled-back transaction rejects
// further staging.
func (t *Txn) Rollback() error {
	if t.done {
		return errs.ErrTransactionClosed
	}
	t.done = true
	t.ops = nil
	return nil
}

// fork builds a private CoreEnforcer over a copy-on-write model, sharing
// the parent's adapter/watcher/dispatcher/logger but with its own policy
// store and role graphs so staged ops never touch the parent until Commit
// swaps the result in.
func (t *Txn) fork() *CoreEnforcer {
	e := t.parent
	working := &CoreEnforcer{
		modelPath:            e.modelPath,
		model:                e.model.Copy(),
		fm:                   e.fm,
		eft:                  e.eft,
		adapter:              e.adapter,
		watcher:              nil,
		dispatcher:           nil,
		enabled:              e.enabled,
		autoSave:             false,
		autoBuildRoleLinks:   e.autoBuildRoleLinks,
		autoNotifyWatcher:    false,
		autoNotifyDispatcher: false,
		acceptJSONRequest:    e.acceptJSONRequest,
		logger:               e.logger,
		rmMap:                map[string]rbac.RoleManager{},
	}
	working.initRmMap()
	if working.autoBuildRoleLinks {
		_ = working.BuildRoleLinks()
	}
	return working
}
