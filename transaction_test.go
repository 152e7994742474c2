package polyauthz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyauthz/core/errs"
)

func TestTransactionCommitAppliesAllStagedOps(t *testing.T) {
	e := newEnforcer(t, basicACLModel, [][]string{{"alice", "data1", "read"}})

	txn := Begin(e)
	require.NoError(t, txn.AddPolicy("bob", "data2", "write"))
	require.NoError(t, txn.RemovePolicy("alice", "data1", "read"))
	require.NoError(t, txn.Commit())

	ok, err := e.Enforce("bob", "data2", "write")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestTransactionRollbackInvariant checks the
// enforce(rollback(begin(e, ops)), R) == enforce(e, R) property: nothing
// staged before a Rollback is ever visible to the parent enforcer.
func TestTransactionRollbackInvariant(t *testing.T) {
	e := newEnforcer(t, basicACLModel, [][]string{{"alice", "data1", "read"}})

	before, err := e.Enforce("bob", "data2", "write")
	require.NoError(t, err)

	txn := Begin(e)
	require.NoError(t, txn.AddPolicy("bob", "data2", "write"))
	require.NoError(t, txn.Rollback())

	after, err := e.Enforce("bob", "data2", "write")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.False(t, after)
	assert.Len(t, e.GetPolicy(), 1)
}

func TestTransactionAbortLeavesParentUntouched(t *testing.T) {
	e := newEnforcer(t, basicACLModel, [][]string{{"alice", "data1", "read"}})

	txn := Begin(e)
	require.NoError(t, txn.AddPolicy("bob", "data2", "write"))
	// Removing a rule that isn't present fails the staged op at Commit.
	require.NoError(t, txn.RemovePolicy("nobody", "nothing", "nothing"))

	err := txn.Commit()
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTransactionAborted)

	assert.Len(t, e.GetPolicy(), 1, "the aborted txn's staged add must not leak into the parent")
	ok, err := e.Enforce("bob", "data2", "write")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransactionRejectsReuseAfterClose(t *testing.T) {
	e := newEnforcer(t, basicACLModel, nil)

	txn := Begin(e)
	require.NoError(t, txn.Rollback())

	err := txn.Rollback()
	assert.ErrorIs(t, err, errs.ErrTransactionClosed)

	err = txn.AddPolicy("alice", "data1", "read")
	assert.ErrorIs(t, err, errs.ErrTransactionClosed)
}
