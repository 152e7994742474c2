package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyauthz/core/errs"
)

const sampleModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

func TestNewModelFromStringEscapesDottedReferences(t *testing.T) {
	m, err := NewModelFromString(sampleModel)
	require.NoError(t, err)
	assert.Contains(t, m["m"]["m"].Value, "r_obj")
	assert.NotContains(t, m["m"]["m"].Value, "r.obj")
}

func TestNewModelFromStringRejectsUndefinedField(t *testing.T) {
	_, err := NewModelFromString(`
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.missing == p.act
`)
	assert.Error(t, err)
}

func TestModelCopyIsIndependent(t *testing.T) {
	m, err := NewModelFromString(sampleModel)
	require.NoError(t, err)
	_, err = m.AddPolicy("p", "p", []string{"alice", "data1", "read"})
	require.NoError(t, err)

	clone := m.Copy()
	_, err = clone.AddPolicy("p", "p", []string{"bob", "data2", "write"})
	require.NoError(t, err)

	assert.Len(t, m.GetPolicy("p", "p"), 1, "mutating the clone must not affect the original")
	assert.Len(t, clone.GetPolicy("p", "p"), 2)
}

func TestClearPolicyEmptiesPAndGTables(t *testing.T) {
	m, err := NewModelFromString(sampleModel)
	require.NoError(t, err)
	_, err = m.AddPolicy("p", "p", []string{"alice", "data1", "read"})
	require.NoError(t, err)
	_, err = m.AddPolicy("g", "g", []string{"alice", "admin"})
	require.NoError(t, err)

	m.ClearPolicy()

	assert.Empty(t, m.GetPolicy("p", "p"))
	assert.Empty(t, m.GetPolicy("g", "g"))
}

func TestSortPoliciesByPriorityOrdersAscending(t *testing.T) {
	m, err := NewModelFromString(`
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act, eft, priority

[policy_effect]
e = priority(p_eft) || deny

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`)
	require.NoError(t, err)
	_, err = m.AddPolicy("p", "p", []string{"alice", "data1", "read", "allow", "5"})
	require.NoError(t, err)
	_, err = m.AddPolicy("p", "p", []string{"alice", "data1", "read", "deny", "1"})
	require.NoError(t, err)

	require.NoError(t, m.SortPoliciesByPriority())

	policies := m.GetPolicy("p", "p")
	require.Len(t, policies, 2)
	assert.Equal(t, "1", policies[0][4])
	assert.Equal(t, "5", policies[1][4])
}

func TestHasPolicyAndAddPolicyDuplicate(t *testing.T) {
	m, err := NewModelFromString(sampleModel)
	require.NoError(t, err)
	ok, err := m.AddPolicy("p", "p", []string{"alice", "data1", "read"})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, m.HasPolicy("p", "p", []string{"alice", "data1", "read"}))

	ok, err = m.AddPolicy("p", "p", []string{"alice", "data1", "read"})
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestUndefinedPolicyTypeIsDistinctError(t *testing.T) {
	m, err := NewModelFromString(sampleModel)
	require.NoError(t, err)

	_, err = m.AddPolicy("p", "p9", []string{"alice", "data1", "read"})
	assert.ErrorIs(t, err, errs.ErrUndefinedAssertion)

	_, err = m.RemovePolicy("g", "g7", []string{"alice", "admin"})
	assert.ErrorIs(t, err, errs.ErrUndefinedAssertion)
}
