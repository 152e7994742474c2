package polyauthz

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyauthz/core/model"
)

func TestSyncedEnforcerConcurrentAccess(t *testing.T) {
	m, err := model.NewModelFromString(basicACLModel)
	require.NoError(t, err)
	e, err := NewSyncedEnforcer(m)
	require.NoError(t, err)
	_, err = e.AddPolicy("alice", "data1", "read")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Enforce("alice", "data1", "read")
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = e.AddPolicy("bob", "data2", "write")
	}()
	wg.Wait()

	ok, err := e.Enforce("bob", "data2", "write")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFunctionalEnforcerImmutability(t *testing.T) {
	m, err := model.NewModelFromString(basicACLModel)
	require.NoError(t, err)
	base, err := NewFunctionalEnforcer(m)
	require.NoError(t, err)
	base, err = base.WithPolicy("alice", "data1", "read")
	require.NoError(t, err)

	withBob, err := base.WithPolicy("bob", "data2", "write")
	require.NoError(t, err)

	baseOK, err := base.Enforce("bob", "data2", "write")
	require.NoError(t, err)
	assert.False(t, baseOK, "mutating the derived snapshot must not affect the parent")

	bobOK, err := withBob.Enforce("bob", "data2", "write")
	require.NoError(t, err)
	assert.True(t, bobOK)

	aliceStillOK, err := base.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.True(t, aliceStillOK)
}

func TestCachedEnforcerNeverStale(t *testing.T) {
	m, err := model.NewModelFromString(basicACLModel)
	require.NoError(t, err)
	e, err := NewCachedEnforcer(10, m)
	require.NoError(t, err)

	ok, err := e.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.AddPolicy("alice", "data1", "read")
	require.NoError(t, err)

	ok, err = e.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.True(t, ok, "adding a policy must invalidate any cached decision for the same request")

	_, err = e.RemovePolicy("alice", "data1", "read")
	require.NoError(t, err)

	ok, err = e.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.False(t, ok, "removing a policy must invalidate the cache too")
}

func TestCachedEnforcerBypassesCacheWhenDisabled(t *testing.T) {
	m, err := model.NewModelFromString(basicACLModel)
	require.NoError(t, err)
	e, err := NewCachedEnforcer(10, m)
	require.NoError(t, err)
	e.EnableCache(false)

	_, err = e.AddPolicy("alice", "data1", "read")
	require.NoError(t, err)
	ok, err := e.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.True(t, ok)
}
