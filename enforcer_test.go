package polyauthz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyauthz/core/errs"
	"github.com/polyauthz/core/model"
	"github.com/polyauthz/core/persist/fileadapter"
)

const basicACLModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = r_sub == p_sub && r_obj == p_obj && r_act == p_act
`

func newEnforcer(t *testing.T, modelText string, rules [][]string) *CoreEnforcer {
	t.Helper()
	m, err := model.NewModelFromString(modelText)
	require.NoError(t, err)
	e, err := NewEnforcer(m)
	require.NoError(t, err)
	if len(rules) > 0 {
		_, err := e.AddPolicies(rules)
		require.NoError(t, err)
	}
	return e
}

func TestBasicACL(t *testing.T) {
	e := newEnforcer(t, basicACLModel, [][]string{
		{"alice", "data1", "read"},
		{"bob", "data2", "write"},
	})

	ok, err := e.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Enforce("alice", "data1", "write")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.Enforce("bob", "data2", "write")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Enforce("carol", "data1", "read")
	require.NoError(t, err)
	assert.False(t, ok)
}

const rbacModel = `
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

func TestRBACWithHierarchy(t *testing.T) {
	e := newEnforcer(t, rbacModel, [][]string{
		{"admin", "data1", "read"},
		{"admin", "data1", "write"},
	})
	_, err := e.AddGroupingPolicy("alice", "admin")
	require.NoError(t, err)
	_, err = e.AddGroupingPolicy("admin", "superadmin")
	require.NoError(t, err)

	ok, err := e.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.True(t, ok, "alice inherits admin's permissions")

	ok, err = e.Enforce("superadmin", "data1", "read")
	require.NoError(t, err)
	assert.False(t, ok, "roles are inherited downward only (member has parent's perms, not vice versa)")

	ok, err = e.Enforce("alice", "data1", "delete")
	require.NoError(t, err)
	assert.False(t, ok)

	// reflexive: admin has its own role
	rm := e.GetRoleManager()
	has, err := rm.HasLink("admin", "admin")
	require.NoError(t, err)
	assert.True(t, has)

	// deleting the link removes the inherited permission
	_, err = e.RemoveGroupingPolicy("alice", "admin")
	require.NoError(t, err)
	ok, err = e.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.False(t, ok)
}

const abacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = r_sub.Age >= 18 && r_obj == p_obj && r_act == p_act && p_sub == "any"
`

type abacSubject struct {
	Name string
	Age  int
}

func TestABACAttributeBag(t *testing.T) {
	e := newEnforcer(t, abacModel, [][]string{
		{"any", "data1", "read"},
	})

	adult := abacSubject{Name: "alice", Age: 30}
	minor := abacSubject{Name: "bob", Age: 12}

	ok, err := e.Enforce(adult, "data1", "read")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Enforce(minor, "data1", "read")
	require.NoError(t, err)
	assert.False(t, ok)
}

const abacMapModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = r_sub.department == r_obj.department && r_act == p_act && p_sub == "any" && p_obj == "any"
`

func TestABACJSONRequestMode(t *testing.T) {
	m, err := model.NewModelFromString(abacMapModel)
	require.NoError(t, err)
	e, err := NewEnforcer(m)
	require.NoError(t, err)
	e.EnableAcceptJSONRequest(true)
	_, err = e.AddPolicy("any", "any", "read")
	require.NoError(t, err)

	ok, err := e.Enforce(`{"department":"eng"}`, `{"department":"eng"}`, "read")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Enforce(`{"department":"eng"}`, `{"department":"sales"}`, "read")
	require.NoError(t, err)
	assert.False(t, ok)
}

const priorityModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act, eft, priority

[policy_effect]
e = priority(p_eft) || deny

[matchers]
m = r_sub == p_sub && r_obj == p_obj && r_act == p_act
`

func TestPriorityEffect(t *testing.T) {
	e := newEnforcer(t, priorityModel, [][]string{
		{"alice", "data1", "read", "deny", "1"},
		{"alice", "data1", "read", "allow", "2"},
	})
	require.NoError(t, e.GetModel().SortPoliciesByPriority())

	ok, err := e.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.False(t, ok, "the lower-priority-number rule (deny) decides first")
}

const restfulModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = r_sub == p_sub && keyMatch2(r_obj, p_obj) && r_act == p_act
`

func TestKeyMatchRESTful(t *testing.T) {
	e := newEnforcer(t, restfulModel, [][]string{
		{"alice", "/alice_data/:id", "GET"},
	})

	ok, err := e.Enforce("alice", "/alice_data/123", "GET")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Enforce("alice", "/bob_data/123", "GET")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisabledEnforcerAlwaysAllows(t *testing.T) {
	e := newEnforcer(t, basicACLModel, nil)
	e.EnableEnforce(false)

	ok, err := e.Enforce("nobody", "nothing", "anything")
	require.NoError(t, err)
	assert.True(t, ok, "a disabled enforcer allows every request regardless of policy")
}

func TestDuplicatePolicyIsNoOp(t *testing.T) {
	e := newEnforcer(t, basicACLModel, [][]string{{"alice", "data1", "read"}})

	ok, err := e.AddPolicy("alice", "data1", "read")
	assert.False(t, ok)
	assert.ErrorIs(t, err, errs.ErrPolicyExists)
	assert.Len(t, e.GetPolicy(), 1)
}

func TestRemoveFilteredPolicyExactRemoval(t *testing.T) {
	e := newEnforcer(t, basicACLModel, [][]string{
		{"alice", "data1", "read"},
		{"alice", "data2", "read"},
		{"bob", "data1", "read"},
	})

	ok, err := e.RemoveFilteredPolicy(0, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	remaining := e.GetPolicy()
	assert.Len(t, remaining, 1)
	assert.Equal(t, []string{"bob", "data1", "read"}, remaining[0])
}

func TestBatchEnforce(t *testing.T) {
	e := newEnforcer(t, basicACLModel, [][]string{
		{"alice", "data1", "read"},
		{"bob", "data2", "write"},
	})

	results, err := e.BatchEnforce([][]interface{}{
		{"alice", "data1", "read"},
		{"bob", "data2", "write"},
		{"alice", "data2", "write"},
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false}, results)
}

func TestFileAdapterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/policy.csv"
	adapter := fileadapter.NewAdapter(path)

	m, err := model.NewModelFromString(basicACLModel)
	require.NoError(t, err)
	e, err := NewEnforcer(m, adapter)
	require.NoError(t, err)

	_, err = e.AddPolicy("alice", "data1", "read")
	require.NoError(t, err)
	require.NoError(t, e.SavePolicy())

	reloaded, err := NewEnforcer(m.Copy(), adapter)
	require.NoError(t, err)
	ok, err := reloaded.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.True(t, ok)
}
