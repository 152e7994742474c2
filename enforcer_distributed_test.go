package polyauthz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyauthz/core/model"
)

// fanoutDispatcher simulates a cluster's broadcast transport: every
// mutation is applied, synchronously, to every replica's ApplyRemote*
// path, including the replica that originated the call; mirroring the
// "dispatcher itself included" contract in the Dispatcher doc comment.
type fanoutDispatcher struct {
	replicas []*DistributedEnforcer
}

func (d *fanoutDispatcher) AddPolicies(sec, ptype string, rules [][]string) error {
	for _, r := range d.replicas {
		if err := r.ApplyRemoteAddPolicies(sec, ptype, rules); err != nil {
			return err
		}
	}
	return nil
}

func (d *fanoutDispatcher) RemovePolicies(sec, ptype string, rules [][]string) error {
	for _, r := range d.replicas {
		if err := r.ApplyRemoteRemovePolicies(sec, ptype, rules); err != nil {
			return err
		}
	}
	return nil
}

func (d *fanoutDispatcher) RemoveFilteredPolicy(sec, ptype string, fieldIndex int, fieldValues []string) error {
	for _, r := range d.replicas {
		if err := r.ApplyRemoteRemoveFilteredPolicy(sec, ptype, fieldIndex, fieldValues); err != nil {
			return err
		}
	}
	return nil
}

func (d *fanoutDispatcher) ClearPolicy() error {
	for _, r := range d.replicas {
		if err := r.ApplyRemoteClearPolicy(); err != nil {
			return err
		}
	}
	return nil
}

func (d *fanoutDispatcher) UpdatePolicies(sec, ptype string, oldRules, newRules [][]string) error {
	return nil
}

func newDistributedReplica(t *testing.T) *DistributedEnforcer {
	t.Helper()
	m, err := model.NewModelFromString(basicACLModel)
	require.NoError(t, err)
	e, err := NewDistributedEnforcer(m)
	require.NoError(t, err)
	return e
}

func TestDistributedEnforcerBroadcastsToAllReplicas(t *testing.T) {
	replicaA := newDistributedReplica(t)
	replicaB := newDistributedReplica(t)
	dispatcher := &fanoutDispatcher{replicas: []*DistributedEnforcer{replicaA, replicaB}}
	replicaA.Core().SetDispatcher(dispatcher)
	replicaB.Core().SetDispatcher(dispatcher)

	_, err := replicaA.AddPolicy("alice", "data1", "read")
	require.NoError(t, err)

	okA, err := replicaA.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.True(t, okA)

	okB, err := replicaB.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.True(t, okB, "a mutation dispatched on one replica must be visible on every replica")
}
