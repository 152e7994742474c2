package polyauthz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The first six tests in this file are the concrete scenarios used to
// validate the enforcement core end to end: one matcher/policy shape each,
// checked against the literal inputs and expected decisions. The last one
// covers per-rule recovery from matcher evaluation errors.

func TestScenarioBasicACL(t *testing.T) {
	e := newEnforcer(t, basicACLModel, [][]string{{"alice", "data1", "read"}})

	assertEnforce(t, e, true, "alice", "data1", "read")
	assertEnforce(t, e, false, "alice", "data1", "write")
	assertEnforce(t, e, false, "bob", "data1", "read")
}

func TestScenarioRBACWithHierarchyDeleteLink(t *testing.T) {
	e := newEnforcer(t, rbacModel, [][]string{{"data2_admin", "data2", "read"}})
	_, err := e.AddGroupingPolicy("alice", "admin")
	require.NoError(t, err)
	_, err = e.AddGroupingPolicy("admin", "data2_admin")
	require.NoError(t, err)

	assertEnforce(t, e, true, "alice", "data2", "read")

	require.NoError(t, e.GetRoleManager().DeleteLink("admin", "data2_admin"))
	e.invalidateMatcherMap()

	assertEnforce(t, e, false, "alice", "data2", "read")
}

type ownerBag struct {
	Owner string
}

const abacOwnerModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = r.sub == r.obj.Owner
`

func TestScenarioABACOwnerAttribute(t *testing.T) {
	e := newEnforcer(t, abacOwnerModel, nil)

	assertEnforce(t, e, true, "alice", ownerBag{Owner: "alice"}, "read")
	assertEnforce(t, e, false, "alice", ownerBag{Owner: "bob"}, "read")
}

func TestScenarioPriorityEffectAfterRemoval(t *testing.T) {
	e := newEnforcer(t, priorityModel, [][]string{
		{"alice", "data1", "read", "deny", "1"},
		{"alice", "data1", "read", "allow", "2"},
		{"*", "*", "read", "allow", "3"},
	})
	require.NoError(t, e.GetModel().SortPoliciesByPriority())

	assertEnforce(t, e, false, "alice", "data1", "read")

	_, err := e.RemovePolicy("alice", "data1", "read", "deny", "1")
	require.NoError(t, err)
	require.NoError(t, e.GetModel().SortPoliciesByPriority())

	assertEnforce(t, e, true, "alice", "data1", "read")
}

const keyMatchAPIModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = keyMatch(r.obj, p.obj) && r.act == p.act
`

func TestScenarioKeyMatchRESTfulAPI(t *testing.T) {
	e := newEnforcer(t, keyMatchAPIModel, [][]string{{"alice", "/api/users/*", "GET"}})

	assertEnforce(t, e, true, "alice", "/api/users/42", "GET")
	assertEnforce(t, e, false, "alice", "/api/admin", "GET")
}

const blpModel = `
[request_definition]
r = sub, sub_level, obj, obj_level, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = (r.act == "read" && r.sub_level >= r.obj_level) || (r.act == "write" && r.sub_level <= r.obj_level)
`

func TestScenarioBLPConfidentiality(t *testing.T) {
	e := newEnforcer(t, blpModel, [][]string{{"*", "*", "*"}})

	assertEnforce(t, e, true, "alice", 3, "data", 2, "read")
	assertEnforce(t, e, false, "alice", 3, "data", 4, "read")
	assertEnforce(t, e, true, "alice", 3, "data", 4, "write")
}

const abacPartialBagModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p_eft == allow))

[matchers]
m = r.sub == p.sub && r.obj.Owner == p.obj && r.act == p.act
`

// TestScenarioEvaluationErrorIsRecoveredPerRule exercises the per-rule
// error recovery rule: a matcher that errors on one policy rule (here,
// dotted access into a request value that isn't an attribute bag) is
// recorded as a non-match for that rule only; it neither aborts the
// enforce call nor prevents a later rule from deciding it.
func TestScenarioEvaluationErrorIsRecoveredPerRule(t *testing.T) {
	e := newEnforcer(t, abacPartialBagModel, [][]string{
		{"alice", "data1", "read"},
	})

	// r.obj is the bare string "data1", not a struct/map, so "r.obj.Owner"
	// fails to resolve for this request; the matcher errors for the one
	// rule it's evaluated against, and the call must still report a clean
	// false rather than surfacing the error.
	ok, err := e.Enforce("alice", "data1", "read")
	require.NoError(t, err)
	assert.False(t, ok)

	// The same rule matches once a real attribute bag is supplied; the
	// earlier error must not have poisoned the matcher cache or the
	// effector state for later calls.
	ok, err = e.Enforce("alice", ownerBag{Owner: "data1"}, "read")
	require.NoError(t, err)
	assert.True(t, ok)
}

func assertEnforce(t *testing.T, e *CoreEnforcer, want bool, rvals ...interface{}) {
	t.Helper()
	got, err := e.Enforce(rvals...)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
