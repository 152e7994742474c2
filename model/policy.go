package model

import (
	"strings"

	"github.com/polyauthz/core/errs"
)

func ruleKey(rule []string) string {
	return strings.Join(rule, "\x1f")
}

// assertion looks up the Assertion for (sec, ptype), e.g. ("p", "p") or
// ("g", "g2"). A false result means the ptype was never declared in the
// model; mutating callers turn that into ErrUndefinedAssertion.
func (m Model) assertion(sec, ptype string) (*Assertion, bool) {
	am, ok := m[sec]
	if !ok {
		return nil, false
	}
	a, ok := am[ptype]
	return a, ok
}

// HasPolicy reports whether rule is already present. Rule tables have set
// semantics: duplicate rules are rejected on insert.
func (m Model) HasPolicy(sec, ptype string, rule []string) bool {
	a, ok := m.assertion(sec, ptype)
	if !ok {
		return false
	}
	_, present := a.PolicyMap[ruleKey(rule)]
	return present
}

// AddPolicy appends rule if it is not already present, returning false
// (ErrPolicyExists) when it is.
func (m Model) AddPolicy(sec, ptype string, rule []string) (bool, error) {
	a, ok := m.assertion(sec, ptype)
	if !ok {
		return false, errs.ErrUndefinedAssertion
	}
	key := ruleKey(rule)
	if _, present := a.PolicyMap[key]; present {
		return false, errs.ErrPolicyExists
	}
	a.PolicyMap[key] = len(a.Policy)
	a.Policy = append(a.Policy, append([]string(nil), rule...))
	return true, nil
}

// AddPolicies appends every rule in rules, atomically: if any rule is a
// duplicate, none are added. AddPoliciesEx is the skip-duplicates variant.
func (m Model) AddPolicies(sec, ptype string, rules [][]string) (bool, error) {
	a, ok := m.assertion(sec, ptype)
	if !ok {
		return false, errs.ErrUndefinedAssertion
	}
	for _, r := range rules {
		if _, present := a.PolicyMap[ruleKey(r)]; present {
			return false, errs.ErrPolicyExists
		}
	}
	for _, r := range rules {
		a.PolicyMap[ruleKey(r)] = len(a.Policy)
		a.Policy = append(a.Policy, append([]string(nil), r...))
	}
	return true, nil
}

// AddPoliciesEx appends only the rules from rules not already present,
// skipping duplicates instead of failing the whole batch.
func (m Model) AddPoliciesEx(sec, ptype string, rules [][]string) ([][]string, error) {
	a, ok := m.assertion(sec, ptype)
	if !ok {
		return nil, errs.ErrUndefinedAssertion
	}
	var added [][]string
	for _, r := range rules {
		key := ruleKey(r)
		if _, present := a.PolicyMap[key]; present {
			continue
		}
		a.PolicyMap[key] = len(a.Policy)
		a.Policy = append(a.Policy, append([]string(nil), r...))
		added = append(added, r)
	}
	return added, nil
}

// RemovePolicy removes rule if present, returning false (ErrPolicyMissing)
// when it isn't.
func (m Model) RemovePolicy(sec, ptype string, rule []string) (bool, error) {
	a, ok := m.assertion(sec, ptype)
	if !ok {
		return false, errs.ErrUndefinedAssertion
	}
	key := ruleKey(rule)
	idx, present := a.PolicyMap[key]
	if !present {
		return false, errs.ErrPolicyMissing
	}
	m.removeAt(a, idx)
	return true, nil
}

// RemovePolicies removes every rule in rules; all-or-nothing.
func (m Model) RemovePolicies(sec, ptype string, rules [][]string) (bool, error) {
	a, ok := m.assertion(sec, ptype)
	if !ok {
		return false, errs.ErrUndefinedAssertion
	}
	for _, r := range rules {
		if _, present := a.PolicyMap[ruleKey(r)]; !present {
			return false, errs.ErrPolicyMissing
		}
	}
	for _, r := range rules {
		idx := a.PolicyMap[ruleKey(r)]
		m.removeAt(a, idx)
	}
	return true, nil
}

func (m Model) removeAt(a *Assertion, idx int) {
	a.Policy = append(a.Policy[:idx], a.Policy[idx+1:]...)
	a.PolicyMap = map[string]int{}
	for i, r := range a.Policy {
		a.PolicyMap[ruleKey(r)] = i
	}
}

// RemoveFilteredPolicy removes every rule whose fields at
// [fieldIndex, fieldIndex+len(fieldValues)) equal fieldValues, treating an
// empty fieldValues[i] as a wildcard. Returns the removed rules.
func (m Model) RemoveFilteredPolicy(sec, ptype string, fieldIndex int, fieldValues ...string) ([][]string, error) {
	a, ok := m.assertion(sec, ptype)
	if !ok {
		return nil, errs.ErrUndefinedAssertion
	}
	var kept [][]string
	var removed [][]string
	for _, rule := range a.Policy {
		if matchesFilter(rule, fieldIndex, fieldValues) {
			removed = append(removed, rule)
		} else {
			kept = append(kept, rule)
		}
	}
	a.Policy = kept
	a.PolicyMap = map[string]int{}
	for i, r := range a.Policy {
		a.PolicyMap[ruleKey(r)] = i
	}
	return removed, nil
}

func matchesFilter(rule []string, fieldIndex int, fieldValues []string) bool {
	for i, v := range fieldValues {
		if v == "" {
			continue
		}
		pos := fieldIndex + i
		if pos >= len(rule) || rule[pos] != v {
			return false
		}
	}
	return true
}

// GetFilteredPolicy returns every rule matching the same filter semantics
// as RemoveFilteredPolicy, without mutating the table.
func (m Model) GetFilteredPolicy(sec, ptype string, fieldIndex int, fieldValues ...string) [][]string {
	a, ok := m.assertion(sec, ptype)
	if !ok {
		return nil
	}
	var out [][]string
	for _, rule := range a.Policy {
		if matchesFilter(rule, fieldIndex, fieldValues) {
			out = append(out, append([]string(nil), rule...))
		}
	}
	return out
}

// GetPolicy returns every rule for (sec, ptype), in insertion order.
func (m Model) GetPolicy(sec, ptype string) [][]string {
	a, ok := m.assertion(sec, ptype)
	if !ok {
		return nil
	}
	out := make([][]string, len(a.Policy))
	for i, r := range a.Policy {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// UpdatePolicy replaces oldRule with newRule, preserving position, so long
// as oldRule is present and newRule does not already exist elsewhere.
func (m Model) UpdatePolicy(sec, ptype string, oldRule, newRule []string) (bool, error) {
	a, ok := m.assertion(sec, ptype)
	if !ok {
		return false, errs.ErrUndefinedAssertion
	}
	idx, present := a.PolicyMap[ruleKey(oldRule)]
	if !present {
		return false, errs.ErrPolicyMissing
	}
	if _, dup := a.PolicyMap[ruleKey(newRule)]; dup {
		return false, errs.ErrPolicyExists
	}
	delete(a.PolicyMap, ruleKey(oldRule))
	a.Policy[idx] = append([]string(nil), newRule...)
	a.PolicyMap[ruleKey(newRule)] = idx
	return true, nil
}

// UpdatePolicies replaces each oldRules[i] with newRules[i]; all-or-nothing.
func (m Model) UpdatePolicies(sec, ptype string, oldRules, newRules [][]string) (bool, error) {
	if len(oldRules) != len(newRules) {
		return false, errs.NewModelError("update_policies: length mismatch", nil)
	}
	for _, old := range oldRules {
		if !m.HasPolicy(sec, ptype, old) {
			return false, errs.ErrPolicyMissing
		}
	}
	for i := range oldRules {
		if _, err := m.UpdatePolicy(sec, ptype, oldRules[i], newRules[i]); err != nil {
			return false, err
		}
	}
	return true, nil
}

// UpdateFilteredPolicies replaces every rule matching the filter with
// newRules, returning the rules that were replaced.
func (m Model) UpdateFilteredPolicies(sec, ptype string, newRules [][]string, fieldIndex int, fieldValues ...string) ([][]string, error) {
	old := m.GetFilteredPolicy(sec, ptype, fieldIndex, fieldValues...)
	if len(old) == 0 {
		return nil, nil
	}
	if _, err := m.RemoveFilteredPolicy(sec, ptype, fieldIndex, fieldValues...); err != nil {
		return nil, err
	}
	if _, err := m.AddPolicies(sec, ptype, newRules); err != nil {
		return nil, err
	}
	return old, nil
}
