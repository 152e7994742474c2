package fileadapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyauthz/core/model"
)

const testModelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = g(r_sub, p_sub) && r_obj == p_obj && r_act == p_act
`

func newTestModel(t *testing.T) model.Model {
	t.Helper()
	m, err := model.NewModelFromString(testModelText)
	require.NoError(t, err)
	return m
}

func TestLoadPolicyOnMissingFileIsNoOp(t *testing.T) {
	a := NewAdapter(filepath.Join(t.TempDir(), "missing.csv"))
	m := newTestModel(t)
	require.NoError(t, a.LoadPolicy(m))
	assert.Empty(t, m.GetPolicy("p", "p"))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	a := NewAdapter(path)
	m := newTestModel(t)

	_, err := m.AddPolicy("p", "p", []string{"alice", "data1", "read"})
	require.NoError(t, err)
	_, err = m.AddPolicy("g", "g", []string{"alice", "admin"})
	require.NoError(t, err)
	require.NoError(t, a.SavePolicy(m))

	reloaded := newTestModel(t)
	require.NoError(t, a.LoadPolicy(reloaded))

	assert.Equal(t, [][]string{{"alice", "data1", "read"}}, reloaded.GetPolicy("p", "p"))
	assert.Equal(t, [][]string{{"alice", "admin"}}, reloaded.GetPolicy("g", "g"))
}

func TestAddPolicyAppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	a := NewAdapter(path)

	require.NoError(t, a.AddPolicy("p", "p", []string{"alice", "data1", "read"}))
	require.NoError(t, a.AddPolicy("p", "p", []string{"bob", "data2", "write"}))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "p, alice, data1, read\np, bob, data2, write\n", string(body))
}

func TestRemovePolicyRewritesWithoutTheRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	a := NewAdapter(path)
	require.NoError(t, a.AddPolicy("p", "p", []string{"alice", "data1", "read"}))
	require.NoError(t, a.AddPolicy("p", "p", []string{"bob", "data2", "write"}))

	require.NoError(t, a.RemovePolicy("p", "p", []string{"alice", "data1", "read"}))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "p, bob, data2, write\n", string(body))
}

func TestRemoveFilteredPolicyWildcard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	a := NewAdapter(path)
	require.NoError(t, a.AddPolicy("p", "p", []string{"alice", "data1", "read"}))
	require.NoError(t, a.AddPolicy("p", "p", []string{"alice", "data2", "read"}))
	require.NoError(t, a.AddPolicy("p", "p", []string{"bob", "data1", "read"}))

	require.NoError(t, a.RemoveFilteredPolicy("p", "p", 0, "alice"))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "p, bob, data1, read\n", string(body))
}
