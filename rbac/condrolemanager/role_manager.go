// Package condrolemanager supplements the default role manager with
// conditional links: an edge (a, b[, domain]) may have a boolean function
// attached that gates whether the edge is visible during a given HasLink
// traversal, evaluated against a parameter bag: the one passed to
// HasLinkWithParams or, for a plain HasLink call, the bag stored for that
// edge with SetLinkConditionParams (nil if none). The enforcer's g()
// binding calls plain HasLink and passes no bag from the matcher.
//
// This is a distinct RoleManager implementation rather than a wrapper
// around defaultrolemanager.RoleManager because the gating check has to
// happen inside the traversal itself, at each edge visit.
package condrolemanager

import (
	"sync"

	"github.com/polyauthz/core/log"
	"github.com/polyauthz/core/rbac"
)

const defaultDomain = ""

type role struct {
	name  string
	links map[string]*role
}

func newRole(name string) *role { return &role{name: name, links: map[string]*role{}} }

type domainGraph struct {
	roles map[string]*role
}

func newDomainGraph() *domainGraph { return &domainGraph{roles: map[string]*role{}} }

func (g *domainGraph) getOrCreate(name string) *role {
	r, ok := g.roles[name]
	if !ok {
		r = newRole(name)
		g.roles[name] = r
	}
	return r
}

type edgeKey struct {
	domain, child, parent string
}

// RoleManager is a conditional-link-aware role manager. It satisfies both
// rbac.RoleManager and rbac.ConditionalRoleManager.
type RoleManager struct {
	mu                 sync.RWMutex
	maxHierarchyLevel  int
	domains            map[string]*domainGraph
	matchingFunc       rbac.MatchingFunc
	domainMatchingFunc rbac.MatchingFunc
	conditions         map[edgeKey]rbac.ConditionalFunc
	storedParams       map[edgeKey]map[string]interface{}
	logger             log.Logger
}

var (
	_ rbac.RoleManager            = (*RoleManager)(nil)
	_ rbac.ConditionalRoleManager = (*RoleManager)(nil)
)

// NewRoleManager constructs a conditional-link role manager.
func NewRoleManager(maxHierarchyLevel int) *RoleManager {
	return &RoleManager{
		maxHierarchyLevel: maxHierarchyLevel,
		domains:           map[string]*domainGraph{defaultDomain: newDomainGraph()},
		conditions:        map[edgeKey]rbac.ConditionalFunc{},
		storedParams:      map[edgeKey]map[string]interface{}{},
	}
}

func domainOf(domain ...string) string {
	if len(domain) == 0 || domain[0] == "" {
		return defaultDomain
	}
	return domain[0]
}

func (rm *RoleManager) graph(domain string) *domainGraph {
	g, ok := rm.domains[domain]
	if !ok {
		g = newDomainGraph()
		rm.domains[domain] = g
	}
	return g
}

func (rm *RoleManager) SetLogger(logger log.Logger) { rm.logger = logger }

func (rm *RoleManager) Clear() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.domains = map[string]*domainGraph{defaultDomain: newDomainGraph()}
	rm.conditions = map[edgeKey]rbac.ConditionalFunc{}
	rm.storedParams = map[edgeKey]map[string]interface{}{}
	return nil
}

func (rm *RoleManager) AddLink(name1, name2 string, domain ...string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	g := rm.graph(domainOf(domain...))
	g.getOrCreate(name1).links[name2] = g.getOrCreate(name2)
	return nil
}

func (rm *RoleManager) DeleteLink(name1, name2 string, domain ...string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	d := domainOf(domain...)
	if g, ok := rm.domains[d]; ok {
		if child, ok := g.roles[name1]; ok {
			delete(child.links, name2)
		}
	}
	delete(rm.conditions, edgeKey{d, name1, name2})
	delete(rm.storedParams, edgeKey{d, name1, name2})
	return nil
}

// AddLinkCondition attaches a gating function to edge (name1 -> name2) in
// the given domain (default domain if omitted).
func (rm *RoleManager) AddLinkCondition(name1, name2 string, fn rbac.ConditionalFunc, domain ...string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.conditions[edgeKey{domainOf(domain...), name1, name2}] = fn
	return nil
}

// AddDomainLinkCondition is the explicit-domain spelling used when a
// caller always has a domain value in hand.
func (rm *RoleManager) AddDomainLinkCondition(name1, name2, domain string, fn rbac.ConditionalFunc) error {
	return rm.AddLinkCondition(name1, name2, fn, domain)
}

// SetLinkConditionParams caches a parameter bag against a specific edge, so
// HasLink (no-params interface method) still gates correctly for callers
// that cannot thread params through the RoleManager interface directly.
func (rm *RoleManager) SetLinkConditionParams(name1, name2 string, domain string, params map[string]interface{}) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.storedParams[edgeKey{domain, name1, name2}] = params
}

func (rm *RoleManager) HasLink(name1, name2 string, domain ...string) (bool, error) {
	return rm.hasLink(name1, name2, nil, domain...)
}

func (rm *RoleManager) HasLinkWithParams(name1, name2 string, params map[string]interface{}, domain ...string) (bool, error) {
	return rm.hasLink(name1, name2, params, domain...)
}

func (rm *RoleManager) hasLink(name1, name2 string, params map[string]interface{}, domain ...string) (bool, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if name1 == name2 {
		return true, nil
	}

	d := domainOf(domain...)
	candidates := []string{d}
	if rm.domainMatchingFunc != nil {
		for other := range rm.domains {
			if other != d && rm.domainMatchingFunc(d, other) {
				candidates = append(candidates, other)
			}
		}
	}

	for _, cd := range candidates {
		if rm.hasLinkInDomain(cd, name1, name2, params) {
			return true, nil
		}
	}
	return false, nil
}

func (rm *RoleManager) edgeVisible(domain, child, parentName string, params map[string]interface{}) bool {
	fn, ok := rm.conditions[edgeKey{domain, child, parentName}]
	if !ok {
		return true
	}
	p := params
	if p == nil {
		p = rm.storedParams[edgeKey{domain, child, parentName}]
	}
	return fn(p)
}

func (rm *RoleManager) hasLinkInDomain(domain, name1, name2 string, params map[string]interface{}) bool {
	g, ok := rm.domains[domain]
	if !ok {
		return rm.matches(name1, name2)
	}
	start, ok := g.roles[name1]
	if !ok {
		return rm.matches(name1, name2)
	}

	type frame struct {
		r     *role
		depth int
	}
	visited := map[string]bool{name1: true}
	queue := []frame{{start, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if rm.matches(cur.r.name, name2) {
			return true
		}
		if cur.depth >= rm.maxHierarchyLevel {
			continue
		}
		for pname, parent := range cur.r.links {
			if visited[pname] {
				continue
			}
			if !rm.edgeVisible(domain, cur.r.name, pname, params) {
				continue
			}
			visited[pname] = true
			queue = append(queue, frame{parent, cur.depth + 1})
		}
	}
	return false
}

func (rm *RoleManager) matches(name, target string) bool {
	if name == target {
		return true
	}
	if rm.matchingFunc != nil {
		return rm.matchingFunc(name, target)
	}
	return false
}

func (rm *RoleManager) GetRoles(name string, domain ...string) ([]string, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	g, ok := rm.domains[domainOf(domain...)]
	if !ok {
		return nil, nil
	}
	r, ok := g.roles[name]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(r.links))
	for pname := range r.links {
		out = append(out, pname)
	}
	return out, nil
}

func (rm *RoleManager) GetUsers(name string, domain ...string) ([]string, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	g, ok := rm.domains[domainOf(domain...)]
	if !ok {
		return nil, nil
	}
	var out []string
	for _, r := range g.roles {
		if _, ok := r.links[name]; ok {
			out = append(out, r.name)
		}
	}
	return out, nil
}

func (rm *RoleManager) GetDomains(name string) ([]string, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	var out []string
	for d, g := range rm.domains {
		if _, ok := g.roles[name]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (rm *RoleManager) GetAllDomains() ([]string, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]string, 0, len(rm.domains))
	for d := range rm.domains {
		out = append(out, d)
	}
	return out, nil
}

func (rm *RoleManager) PrintRoles() error {
	if rm.logger == nil || !rm.logger.IsEnabled() {
		return nil
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	var lines []string
	for d, g := range rm.domains {
		for _, r := range g.roles {
			for p := range r.links {
				suffix := ""
				if d != defaultDomain {
					suffix = " (" + d + ")"
				}
				lines = append(lines, r.name+" < "+p+suffix)
			}
		}
	}
	rm.logger.LogRole(lines)
	return nil
}

func (rm *RoleManager) AddMatchingFunc(name string, fn rbac.MatchingFunc) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.matchingFunc = fn
	return true
}

func (rm *RoleManager) AddDomainMatchingFunc(name string, fn rbac.MatchingFunc) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.domainMatchingFunc = fn
	return true
}
