package condrolemanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionalLinkGatesTraversal(t *testing.T) {
	rm := NewRoleManager(10)
	require.NoError(t, rm.AddLink("alice", "on-call-engineer"))

	gateOpen := false
	require.NoError(t, rm.AddLinkCondition("alice", "on-call-engineer", func(params map[string]interface{}) bool {
		return gateOpen
	}))

	has, err := rm.HasLink("alice", "on-call-engineer")
	require.NoError(t, err)
	assert.False(t, has, "the edge is conditionally gated closed")

	gateOpen = true
	has, err = rm.HasLink("alice", "on-call-engineer")
	require.NoError(t, err)
	assert.True(t, has, "the edge opens once the condition is satisfied")
}

func TestConditionalLinkWithParams(t *testing.T) {
	rm := NewRoleManager(10)
	require.NoError(t, rm.AddLink("bob", "shift-lead"))
	require.NoError(t, rm.AddLinkCondition("bob", "shift-lead", func(params map[string]interface{}) bool {
		hour, _ := params["hour"].(int)
		return hour >= 9 && hour < 17
	}))

	has, err := rm.HasLinkWithParams("bob", "shift-lead", map[string]interface{}{"hour": 3})
	require.NoError(t, err)
	assert.False(t, has)

	has, err = rm.HasLinkWithParams("bob", "shift-lead", map[string]interface{}{"hour": 14})
	require.NoError(t, err)
	assert.True(t, has)
}

func TestConditionlessEdgesAlwaysVisible(t *testing.T) {
	rm := NewRoleManager(10)
	require.NoError(t, rm.AddLink("carol", "admin"))

	has, err := rm.HasLink("carol", "admin")
	require.NoError(t, err)
	assert.True(t, has, "an edge with no attached condition is always traversable")
}

func TestDeleteLinkClearsItsCondition(t *testing.T) {
	rm := NewRoleManager(10)
	require.NoError(t, rm.AddLink("dan", "reviewer"))
	require.NoError(t, rm.AddLinkCondition("dan", "reviewer", func(map[string]interface{}) bool { return false }))
	require.NoError(t, rm.DeleteLink("dan", "reviewer"))

	has, err := rm.HasLink("dan", "reviewer")
	require.NoError(t, err)
	assert.False(t, has, "the edge itself is gone, independent of its condition")
}

func TestReflexiveLink(t *testing.T) {
	rm := NewRoleManager(10)
	has, err := rm.HasLink("erin", "erin")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestDomainLinkCondition(t *testing.T) {
	rm := NewRoleManager(10)
	require.NoError(t, rm.AddLink("frank", "domain-admin", "tenant-a"))
	open := false
	require.NoError(t, rm.AddDomainLinkCondition("frank", "domain-admin", "tenant-a", func(map[string]interface{}) bool {
		return open
	}))

	has, err := rm.HasLink("frank", "domain-admin", "tenant-a")
	require.NoError(t, err)
	assert.False(t, has)

	open = true
	has, err = rm.HasLink("frank", "domain-admin", "tenant-a")
	require.NoError(t, err)
	assert.True(t, has)

	// the same edge in a different domain was never created, so it is
	// simply absent rather than gated.
	has, err = rm.HasLink("frank", "domain-admin", "tenant-b")
	require.NoError(t, err)
	assert.False(t, has)
}
