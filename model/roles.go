package model

import "github.com/polyauthz/core/rbac"

// PolicyOp identifies whether an incremental role-link rebuild should add
// or remove the given rules from the corresponding role graph.
type PolicyOp int

const (
	PolicyAdd PolicyOp = iota
	PolicyRemove
)

// BuildRoleLinks binds each role_definition assertion to its role manager
// (from rmMap, keyed by grouping-type name) and replays every currently
// installed grouping rule into that manager's graph, so role-graph edges
// always mirror the g* tables. Called after a full LoadPolicy and whenever
// EnableAutoBuildRoleLinks triggers a rebuild.
func (m Model) BuildRoleLinks(rmMap map[string]rbac.RoleManager) error {
	gs, ok := m["g"]
	if !ok {
		return nil
	}
	for ptype, a := range gs {
		rm, ok := rmMap[ptype]
		if !ok {
			continue
		}
		a.RM = rm
		for _, rule := range a.Policy {
			if err := addLinkFromRule(rm, rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// BuildIncrementalRoleLinks applies a single add/remove of rules to the
// named grouping-type's role manager without touching any other ptype or
// rebuilding from scratch; a grouping-rule mutation and its role-graph
// update happen in the same step.
func (m Model) BuildIncrementalRoleLinks(rmMap map[string]rbac.RoleManager, op PolicyOp, sec string, ptype string, rules [][]string) error {
	rm, ok := rmMap[ptype]
	if !ok {
		return nil
	}
	if gs, ok := m[sec]; ok {
		if a, ok := gs[ptype]; ok {
			a.RM = rm
		}
	}
	for _, rule := range rules {
		switch op {
		case PolicyAdd:
			if err := addLinkFromRule(rm, rule); err != nil {
				return err
			}
		case PolicyRemove:
			if err := deleteLinkFromRule(rm, rule); err != nil {
				return err
			}
		}
	}
	return nil
}

func addLinkFromRule(rm rbac.RoleManager, rule []string) error {
	if len(rule) < 2 {
		return nil
	}
	if len(rule) >= 3 {
		return rm.AddLink(rule[0], rule[1], rule[2])
	}
	return rm.AddLink(rule[0], rule[1])
}

func deleteLinkFromRule(rm rbac.RoleManager, rule []string) error {
	if len(rule) < 2 {
		return nil
	}
	if len(rule) >= 3 {
		return rm.DeleteLink(rule[0], rule[1], rule[2])
	}
	return rm.DeleteLink(rule[0], rule[1])
}
