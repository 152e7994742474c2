package polyauthz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyauthz/core/model"
	"github.com/polyauthz/core/rbac/condrolemanager"
)

// TestEnforcerWithConditionalRoleManager wires rbac/condrolemanager in as
// the "g" role manager via SetRoleManager: grouping rules load normally,
// but a gate attached directly on the role manager can still close an
// otherwise-valid edge at enforcement time.
func TestEnforcerWithConditionalRoleManager(t *testing.T) {
	m, err := model.NewModelFromString(rbacModel)
	require.NoError(t, err)
	e, err := NewEnforcer(m)
	require.NoError(t, err)

	rm := condrolemanager.NewRoleManager(10)
	e.SetRoleManager(rm)
	require.NoError(t, e.BuildRoleLinks())

	_, err = e.AddPolicy("on-call", "incident", "resolve")
	require.NoError(t, err)
	_, err = e.AddGroupingPolicy("alice", "on-call")
	require.NoError(t, err)

	onCallActive := false
	require.NoError(t, rm.AddLinkCondition("alice", "on-call", func(map[string]interface{}) bool {
		return onCallActive
	}))

	ok, err := e.Enforce("alice", "incident", "resolve")
	require.NoError(t, err)
	assert.False(t, ok, "alice's on-call role is gated off outside her shift")

	onCallActive = true
	ok, err = e.Enforce("alice", "incident", "resolve")
	require.NoError(t, err)
	assert.True(t, ok, "the same grouping rule grants access once the gate opens")
}
