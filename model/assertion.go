package model

import (
	"strings"

	"github.com/polyauthz/core/rbac"
)

// Assertion is one named entry in a model section. For
// request/policy assertions, Tokens holds the escaped field names
// ("r_sub", "p_obj", ...) in declared order. For role_definition
// assertions, Tokens holds the raw "_" placeholders (their count is the
// grouping arity) and RM holds the bound role manager. For policy_effect
// and matchers assertions only Value is meaningful.
type Assertion struct {
	Key   string
	Value string

	Tokens []string

	// tokenIndex maps an escaped field name to its position in Tokens;
	// built once at model load so evaluation never rebuilds it per call.
	tokenIndex map[string]int

	// eftIndex is the position of the optional "eft" field, -1 when the
	// definition doesn't declare one.
	eftIndex int

	// Policy holds every rule currently installed for this policy-type (p*
	// or g*), in insertion order.
	Policy [][]string

	// PolicyMap maps a canonical joined-rule string to its index in Policy,
	// giving O(1) duplicate detection.
	PolicyMap map[string]int

	// RM is the role manager bound to a role_definition ("g", "g2", ...)
	// assertion; nil for every other section.
	RM rbac.RoleManager
}

// indexTokens derives the lookup structures from Tokens. Called once per
// request/policy assertion at model load.
func (a *Assertion) indexTokens() {
	a.tokenIndex = make(map[string]int, len(a.Tokens))
	for i, t := range a.Tokens {
		a.tokenIndex[t] = i
	}
	a.eftIndex = a.fieldIndex("eft")
}

// ParamIndex returns the position of an escaped field reference such as
// "r_sub" or "p2_obj" within this assertion's field list.
func (a *Assertion) ParamIndex(name string) (int, bool) {
	i, ok := a.tokenIndex[name]
	return i, ok
}

// EffectValue returns a rule's effect token, defaulting to "allow" when
// the policy definition declares no eft field or the rule is short.
func (a *Assertion) EffectValue(rule []string) string {
	if a.eftIndex < 0 || a.eftIndex >= len(rule) {
		return "allow"
	}
	return rule[a.eftIndex]
}

// MentionedIn reports whether expr reads any of this assertion's fields,
// i.e. contains an escaped "<key>_" reference.
func (a *Assertion) MentionedIn(expr string) bool {
	return strings.Contains(expr, a.Key+"_")
}

func (a *Assertion) copy() *Assertion {
	na := &Assertion{Key: a.Key, Value: a.Value, RM: a.RM, tokenIndex: a.tokenIndex, eftIndex: a.eftIndex}
	if a.Tokens != nil {
		na.Tokens = append([]string(nil), a.Tokens...)
	}
	if a.Policy != nil {
		na.Policy = make([][]string, len(a.Policy))
		for i, rule := range a.Policy {
			na.Policy[i] = append([]string(nil), rule...)
		}
	}
	if a.PolicyMap != nil {
		na.PolicyMap = make(map[string]int, len(a.PolicyMap))
		for k, v := range a.PolicyMap {
			na.PolicyMap[k] = v
		}
	}
	return na
}

// fieldIndex returns the position of a bare field name (e.g. "eft",
// "priority", "sub") within this assertion's token list, or -1. Tokens are
// stored escaped with the section key prefix ("p_eft"), so this strips that
// prefix back off for comparison.
func (a *Assertion) fieldIndex(field string) int {
	suffix := "_" + field
	for i, t := range a.Tokens {
		if len(t) > len(suffix) && t[len(t)-len(suffix):] == suffix {
			return i
		}
	}
	return -1
}
