package polyauthz

import (
	"github.com/polyauthz/core/errs"
	"github.com/polyauthz/core/model"
)

// This file is the management API surface: add/
// remove/update/query policy and grouping rules, filtered variants, the
// *_named_* variants for non-default policy/grouping types, and the
// self_* variants that bypass watcher notification (used when applying a
// change that originated from the watcher itself, to avoid feedback
// loops). The add and remove calls route through the dispatcher when one
// is attached and auto-notify-dispatcher is on; otherwise they mutate the
// local model directly, persist via the adapter when auto-save is on, and
// notify the watcher when auto-notify-watcher is on. AddNamedPoliciesEx,
// the Update* calls and RemoveFilteredNamedGroupingPolicy never call the
// dispatcher: they always take the local path.

// HasPolicy reports whether rule already exists for the default "p" type.
func (e *CoreEnforcer) HasPolicy(params ...string) bool {
	return e.model.HasPolicy("p", "p", params)
}

// HasNamedPolicy reports whether rule already exists for ptype.
func (e *CoreEnforcer) HasNamedPolicy(ptype string, params ...string) bool {
	return e.model.HasPolicy("p", ptype, params)
}

// AddPolicy adds rule to the default "p" policy type.
func (e *CoreEnforcer) AddPolicy(params ...string) (bool, error) {
	return e.AddNamedPolicy("p", params...)
}

// AddNamedPolicy adds rule to ptype.
func (e *CoreEnforcer) AddNamedPolicy(ptype string, params ...string) (bool, error) {
	return e.addPolicy("p", ptype, params)
}

// SelfAddPolicy adds rule to ptype without notifying the watcher or
// dispatcher (used when applying an already-broadcast remote change).
func (e *CoreEnforcer) SelfAddPolicy(sec, ptype string, rule []string) (bool, error) {
	if sec != "p" && sec != "g" {
		return false, errs.ErrInvalidSection
	}
	ok, err := e.model.AddPolicy(sec, ptype, rule)
	if err != nil || !ok {
		return ok, err
	}
	if err := e.rebuildIfGrouping(sec, ptype, model.PolicyAdd, [][]string{rule}); err != nil {
		return false, err
	}
	return true, e.maybeSave()
}

func (e *CoreEnforcer) addPolicy(sec, ptype string, rule []string) (bool, error) {
	if e.dispatcher != nil && e.autoNotifyDispatcher {
		if err := e.dispatcher.AddPolicies(sec, ptype, [][]string{rule}); err != nil {
			return false, err
		}
		return true, nil
	}
	ok, err := e.model.AddPolicy(sec, ptype, rule)
	if err != nil || !ok {
		return ok, err
	}
	if err := e.rebuildIfGrouping(sec, ptype, model.PolicyAdd, [][]string{rule}); err != nil {
		return false, err
	}
	if err := e.maybeSave(); err != nil {
		return false, err
	}
	return true, e.notifyWatcher()
}

// AddPolicies adds every rule in rules, all-or-nothing, to the default
// policy type.
func (e *CoreEnforcer) AddPolicies(rules [][]string) (bool, error) {
	return e.AddNamedPolicies("p", rules)
}

// AddNamedPolicies adds every rule in rules, all-or-nothing, to ptype.
func (e *CoreEnforcer) AddNamedPolicies(ptype string, rules [][]string) (bool, error) {
	return e.addPolicies("p", ptype, rules)
}

func (e *CoreEnforcer) addPolicies(sec, ptype string, rules [][]string) (bool, error) {
	if e.dispatcher != nil && e.autoNotifyDispatcher {
		if err := e.dispatcher.AddPolicies(sec, ptype, rules); err != nil {
			return false, err
		}
		return true, nil
	}
	ok, err := e.model.AddPolicies(sec, ptype, rules)
	if err != nil || !ok {
		return ok, err
	}
	if err := e.rebuildIfGrouping(sec, ptype, model.PolicyAdd, rules); err != nil {
		return false, err
	}
	if err := e.maybeSave(); err != nil {
		return false, err
	}
	return true, e.notifyWatcher()
}

// AddPoliciesEx adds every rule in rules not already present, skipping
// duplicates instead of failing the whole batch.
func (e *CoreEnforcer) AddPoliciesEx(rules [][]string) ([][]string, error) {
	return e.AddNamedPoliciesEx("p", rules)
}

// AddNamedPoliciesEx is AddPoliciesEx for ptype.
func (e *CoreEnforcer) AddNamedPoliciesEx(ptype string, rules [][]string) ([][]string, error) {
	added, err := e.model.AddPoliciesEx("p", ptype, rules)
	if err != nil || len(added) == 0 {
		return added, err
	}
	if err := e.rebuildIfGrouping("p", ptype, model.PolicyAdd, added); err != nil {
		return nil, err
	}
	if err := e.maybeSave(); err != nil {
		return nil, err
	}
	return added, e.notifyWatcher()
}

// RemovePolicy removes rule from the default policy type.
func (e *CoreEnforcer) RemovePolicy(params ...string) (bool, error) {
	return e.RemoveNamedPolicy("p", params...)
}

// RemoveNamedPolicy removes rule from ptype.
func (e *CoreEnforcer) RemoveNamedPolicy(ptype string, params ...string) (bool, error) {
	return e.removePolicy("p", ptype, params)
}

// SelfRemovePolicy removes rule from ptype without notifying the watcher
// or dispatcher.
func (e *CoreEnforcer) SelfRemovePolicy(sec, ptype string, rule []string) (bool, error) {
	if sec != "p" && sec != "g" {
		return false, errs.ErrInvalidSection
	}
	ok, err := e.model.RemovePolicy(sec, ptype, rule)
	if err != nil || !ok {
		return ok, err
	}
	if err := e.rebuildIfGrouping(sec, ptype, model.PolicyRemove, [][]string{rule}); err != nil {
		return false, err
	}
	return true, e.maybeSave()
}

func (e *CoreEnforcer) removePolicy(sec, ptype string, rule []string) (bool, error) {
	if e.dispatcher != nil && e.autoNotifyDispatcher {
		if err := e.dispatcher.RemovePolicies(sec, ptype, [][]string{rule}); err != nil {
			return false, err
		}
		return true, nil
	}
	ok, err := e.model.RemovePolicy(sec, ptype, rule)
	if err != nil || !ok {
		return ok, err
	}
	if err := e.rebuildIfGrouping(sec, ptype, model.PolicyRemove, [][]string{rule}); err != nil {
		return false, err
	}
	if err := e.maybeSave(); err != nil {
		return false, err
	}
	return true, e.notifyWatcher()
}

// RemovePolicies removes every rule in rules, all-or-nothing, from the
// default policy type.
func (e *CoreEnforcer) RemovePolicies(rules [][]string) (bool, error) {
	return e.RemoveNamedPolicies("p", rules)
}

// RemoveNamedPolicies removes every rule in rules from ptype.
func (e *CoreEnforcer) RemoveNamedPolicies(ptype string, rules [][]string) (bool, error) {
	if e.dispatcher != nil && e.autoNotifyDispatcher {
		if err := e.dispatcher.RemovePolicies("p", ptype, rules); err != nil {
			return false, err
		}
		return true, nil
	}
	ok, err := e.model.RemovePolicies("p", ptype, rules)
	if err != nil || !ok {
		return ok, err
	}
	if err := e.rebuildIfGrouping("p", ptype, model.PolicyRemove, rules); err != nil {
		return false, err
	}
	if err := e.maybeSave(); err != nil {
		return false, err
	}
	return true, e.notifyWatcher()
}

// RemoveFilteredPolicy removes every rule from the default policy type
// whose fields starting at fieldIndex match fieldValues (empty = wildcard).
func (e *CoreEnforcer) RemoveFilteredPolicy(fieldIndex int, fieldValues ...string) (bool, error) {
	return e.RemoveFilteredNamedPolicy("p", fieldIndex, fieldValues...)
}

// RemoveFilteredNamedPolicy is RemoveFilteredPolicy for ptype.
func (e *CoreEnforcer) RemoveFilteredNamedPolicy(ptype string, fieldIndex int, fieldValues ...string) (bool, error) {
	if e.dispatcher != nil && e.autoNotifyDispatcher {
		if err := e.dispatcher.RemoveFilteredPolicy("p", ptype, fieldIndex, fieldValues); err != nil {
			return false, err
		}
		return true, nil
	}
	removed, err := e.model.RemoveFilteredPolicy("p", ptype, fieldIndex, fieldValues...)
	if err != nil || len(removed) == 0 {
		return len(removed) > 0, err
	}
	if err := e.rebuildIfGrouping("p", ptype, model.PolicyRemove, removed); err != nil {
		return false, err
	}
	if err := e.maybeSave(); err != nil {
		return false, err
	}
	return true, e.notifyWatcher()
}

// UpdatePolicy replaces oldRule with newRule in the default policy type.
func (e *CoreEnforcer) UpdatePolicy(oldRule, newRule []string) (bool, error) {
	return e.UpdateNamedPolicy("p", oldRule, newRule)
}

// UpdateNamedPolicy replaces oldRule with newRule in ptype.
func (e *CoreEnforcer) UpdateNamedPolicy(ptype string, oldRule, newRule []string) (bool, error) {
	ok, err := e.model.UpdatePolicy("p", ptype, oldRule, newRule)
	if err != nil || !ok {
		return ok, err
	}
	if err := e.rebuildIfGrouping("p", ptype, model.PolicyRemove, [][]string{oldRule}); err != nil {
		return false, err
	}
	if err := e.rebuildIfGrouping("p", ptype, model.PolicyAdd, [][]string{newRule}); err != nil {
		return false, err
	}
	if err := e.maybeSave(); err != nil {
		return false, err
	}
	return true, e.notifyWatcher()
}

// UpdatePolicies replaces each oldRules[i] with newRules[i], all-or-nothing.
func (e *CoreEnforcer) UpdatePolicies(oldRules, newRules [][]string) (bool, error) {
	return e.UpdateNamedPolicies("p", oldRules, newRules)
}

// UpdateNamedPolicies is UpdatePolicies for ptype.
func (e *CoreEnforcer) UpdateNamedPolicies(ptype string, oldRules, newRules [][]string) (bool, error) {
	ok, err := e.model.UpdatePolicies("p", ptype, oldRules, newRules)
	if err != nil || !ok {
		return ok, err
	}
	if err := e.rebuildIfGrouping("p", ptype, model.PolicyRemove, oldRules); err != nil {
		return false, err
	}
	if err := e.rebuildIfGrouping("p", ptype, model.PolicyAdd, newRules); err != nil {
		return false, err
	}
	if err := e.maybeSave(); err != nil {
		return false, err
	}
	return true, e.notifyWatcher()
}

// UpdateFilteredPolicies replaces every rule of the default type matching
// the filter with newRules.
func (e *CoreEnforcer) UpdateFilteredPolicies(newRules [][]string, fieldIndex int, fieldValues ...string) ([][]string, error) {
	return e.UpdateFilteredNamedPolicies("p", newRules, fieldIndex, fieldValues...)
}

// UpdateFilteredNamedPolicies is UpdateFilteredPolicies for ptype.
func (e *CoreEnforcer) UpdateFilteredNamedPolicies(ptype string, newRules [][]string, fieldIndex int, fieldValues ...string) ([][]string, error) {
	old, err := e.model.UpdateFilteredPolicies("p", ptype, newRules, fieldIndex, fieldValues...)
	if err != nil || len(old) == 0 {
		return old, err
	}
	if err := e.rebuildIfGrouping("p", ptype, model.PolicyRemove, old); err != nil {
		return nil, err
	}
	if err := e.rebuildIfGrouping("p", ptype, model.PolicyAdd, newRules); err != nil {
		return nil, err
	}
	if err := e.maybeSave(); err != nil {
		return nil, err
	}
	return old, e.notifyWatcher()
}

// GetPolicy returns every rule of the default policy type.
func (e *CoreEnforcer) GetPolicy() [][]string { return e.model.GetPolicy("p", "p") }

// GetNamedPolicy returns every rule of ptype.
func (e *CoreEnforcer) GetNamedPolicy(ptype string) [][]string { return e.model.GetPolicy("p", ptype) }

// GetFilteredPolicy returns every rule of the default policy type matching
// the filter.
func (e *CoreEnforcer) GetFilteredPolicy(fieldIndex int, fieldValues ...string) [][]string {
	return e.model.GetFilteredPolicy("p", "p", fieldIndex, fieldValues...)
}

// GetFilteredNamedPolicy is GetFilteredPolicy for ptype.
func (e *CoreEnforcer) GetFilteredNamedPolicy(ptype string, fieldIndex int, fieldValues ...string) [][]string {
	return e.model.GetFilteredPolicy("p", ptype, fieldIndex, fieldValues...)
}

// --- grouping policy surface: identical shape, section "g" ---

// HasGroupingPolicy reports whether rule exists in the default "g" type.
func (e *CoreEnforcer) HasGroupingPolicy(params ...string) bool {
	return e.model.HasPolicy("g", "g", params)
}

// HasNamedGroupingPolicy reports whether rule exists in ptype.
func (e *CoreEnforcer) HasNamedGroupingPolicy(ptype string, params ...string) bool {
	return e.model.HasPolicy("g", ptype, params)
}

// AddGroupingPolicy adds rule to the default "g" type and rebuilds that
// role graph.
func (e *CoreEnforcer) AddGroupingPolicy(params ...string) (bool, error) {
	return e.addPolicy("g", "g", params)
}

// AddNamedGroupingPolicy is AddGroupingPolicy for ptype.
func (e *CoreEnforcer) AddNamedGroupingPolicy(ptype string, params ...string) (bool, error) {
	return e.addPolicy("g", ptype, params)
}

// RemoveGroupingPolicy removes rule from the default "g" type.
func (e *CoreEnforcer) RemoveGroupingPolicy(params ...string) (bool, error) {
	return e.removePolicy("g", "g", params)
}

// RemoveNamedGroupingPolicy is RemoveGroupingPolicy for ptype.
func (e *CoreEnforcer) RemoveNamedGroupingPolicy(ptype string, params ...string) (bool, error) {
	return e.removePolicy("g", ptype, params)
}

// RemoveFilteredGroupingPolicy removes every rule of the default "g" type
// matching the filter.
func (e *CoreEnforcer) RemoveFilteredGroupingPolicy(fieldIndex int, fieldValues ...string) (bool, error) {
	return e.RemoveFilteredNamedGroupingPolicy("g", fieldIndex, fieldValues...)
}

// RemoveFilteredNamedGroupingPolicy is RemoveFilteredGroupingPolicy for ptype.
func (e *CoreEnforcer) RemoveFilteredNamedGroupingPolicy(ptype string, fieldIndex int, fieldValues ...string) (bool, error) {
	removed, err := e.model.RemoveFilteredPolicy("g", ptype, fieldIndex, fieldValues...)
	if err != nil || len(removed) == 0 {
		return len(removed) > 0, err
	}
	if err := e.rebuildIfGrouping("g", ptype, model.PolicyRemove, removed); err != nil {
		return false, err
	}
	if err := e.maybeSave(); err != nil {
		return false, err
	}
	return true, e.notifyWatcher()
}

// GetGroupingPolicy returns every rule of the default "g" type.
func (e *CoreEnforcer) GetGroupingPolicy() [][]string { return e.model.GetPolicy("g", "g") }

// GetNamedGroupingPolicy returns every rule of ptype.
func (e *CoreEnforcer) GetNamedGroupingPolicy(ptype string) [][]string {
	return e.model.GetPolicy("g", ptype)
}

// GetFilteredGroupingPolicy returns every rule of the default "g" type
// matching the filter.
func (e *CoreEnforcer) GetFilteredGroupingPolicy(fieldIndex int, fieldValues ...string) [][]string {
	return e.model.GetFilteredPolicy("g", "g", fieldIndex, fieldValues...)
}

// GetFilteredNamedGroupingPolicy is GetFilteredGroupingPolicy for ptype.
func (e *CoreEnforcer) GetFilteredNamedGroupingPolicy(ptype string, fieldIndex int, fieldValues ...string) [][]string {
	return e.model.GetFilteredPolicy("g", ptype, fieldIndex, fieldValues...)
}

// rebuildIfGrouping keeps the role graph for ptype synchronized with an
// incremental policy-store mutation; a no-op outside section "g".
func (e *CoreEnforcer) rebuildIfGrouping(sec, ptype string, op model.PolicyOp, rules [][]string) error {
	if sec != "g" || !e.autoBuildRoleLinks {
		return nil
	}
	return e.BuildIncrementalRoleLinks(op, ptype, rules)
}

func (e *CoreEnforcer) maybeSave() error {
	if !e.autoSave || e.adapter == nil {
		return nil
	}
	return e.adapter.SavePolicy(e.model)
}

func (e *CoreEnforcer) notifyWatcher() error {
	if e.watcher == nil || !e.autoNotifyWatcher {
		return nil
	}
	return e.watcher.Update()
}
