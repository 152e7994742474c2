// Package defaultrolemanager implements the default directed role graph:
// reflexive + transitive hasLink up to a configurable hierarchy depth,
// cycle-tolerant traversal, optional role-name and domain pattern
// matching, and per-grouping-type domain scoping. Storage is an adjacency
// list of named role nodes per domain bucket, walked breadth-first with a
// visited set.
package defaultrolemanager

import (
	"sync"

	"github.com/polyauthz/core/log"
	"github.com/polyauthz/core/rbac"
)

const defaultDomain = ""

// role is one named node; links holds its direct parents (role -> role it has).
type role struct {
	name  string
	links map[string]*role
}

func newRole(name string) *role {
	return &role{name: name, links: map[string]*role{}}
}

func (r *role) addParent(p *role) {
	r.links[p.name] = p
}

func (r *role) deleteParent(name string) {
	delete(r.links, name)
}

// domainGraph is the set of named roles that belong to one domain bucket.
type domainGraph struct {
	roles map[string]*role
}

func newDomainGraph() *domainGraph {
	return &domainGraph{roles: map[string]*role{}}
}

func (g *domainGraph) getOrCreate(name string) *role {
	r, ok := g.roles[name]
	if !ok {
		r = newRole(name)
		g.roles[name] = r
	}
	return r
}

// RoleManager is the default, in-memory RoleManager.
type RoleManager struct {
	mu                 sync.RWMutex
	maxHierarchyLevel  int
	domains            map[string]*domainGraph
	matchingFunc       rbac.MatchingFunc
	domainMatchingFunc rbac.MatchingFunc
	logger             log.Logger
}

var _ rbac.RoleManager = (*RoleManager)(nil)

// NewRoleManager constructs a role manager with the given max transitive
// hierarchy depth (conventionally 10).
func NewRoleManager(maxHierarchyLevel int) *RoleManager {
	return &RoleManager{
		maxHierarchyLevel: maxHierarchyLevel,
		domains:           map[string]*domainGraph{defaultDomain: newDomainGraph()},
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

// candidateDomains returns the domain buckets a query against `domain` must
// search: the domain itself, plus any other known domain whose name the
// domainMatchingFunc considers equivalent to it.
func (rm *RoleManager) candidateDomains(domain string) []string {
	if rm.domainMatchingFunc == nil {
		return []string{domain}
	}
	seen := map[string]struct{}{domain: {}}
	out := []string{domain}
	for d := range rm.domains {
		if d == domain {
			continue
		}
		if rm.domainMatchingFunc(domain, d) {
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				out = append(out, d)
			}
		}
	}
	return out
}

func (rm *RoleManager) SetLogger(logger log.Logger) { rm.logger = logger }

// Clear drops all roles and domains; matching functions survive, so a
// policy reload does not lose previously installed pattern matchers.
func (rm *RoleManager) Clear() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.domains = map[string]*domainGraph{defaultDomain: newDomainGraph()}
	return nil
}

func (rm *RoleManager) AddLink(name1, name2 string, domain ...string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	d := domainOf(domain...)
	g := rm.graph(d)
	child := g.getOrCreate(name1)
	parent := g.getOrCreate(name2)
	child.addParent(parent)
	return nil
}

func (rm *RoleManager) DeleteLink(name1, name2 string, domain ...string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	d := domainOf(domain...)
	g := rm.graph(d)
	if child, ok := g.roles[name1]; ok {
		child.deleteParent(name2)
	}
	return nil
}

// HasLink reports reachability: reflexive, then transitively closed up to
// maxHierarchyLevel hops, cycle-safe via a per-traversal visited set. When
// a matching function is installed the closure widens: any node x reached
// from name1 satisfies the query if matchingFunc(x, name2) holds,
// consulted at every traversal step.
func (rm *RoleManager) HasLink(name1, name2 string, domain ...string) (bool, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if name1 == name2 {
		return true, nil
	}

	d := domainOf(domain...)
	for _, cand := range rm.candidateDomains(d) {
		if rm.hasLinkInDomain(cand, name1, name2) {
			return true, nil
		}
	}
	return false, nil
}

func (rm *RoleManager) hasLinkInDomain(domain, name1, name2 string) bool {
	g, ok := rm.domains[domain]
	if !ok {
		return false
	}
	start, ok := g.roles[name1]
	if !ok {
		// name1 may still equal/match name2 even with no graph entry.
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

// GetRoles returns name's direct parents (the roles it has). Pattern
// matching does not widen this listing; hasLink is the operation a
// matching function widens, and GetRoles stays direct.
func (rm *RoleManager) GetRoles(name string, domain ...string) ([]string, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	d := domainOf(domain...)
	g, ok := rm.domains[d]
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

// GetUsers returns every node in the domain whose direct parent set
// includes name (the inverse of GetRoles).
func (rm *RoleManager) GetUsers(name string, domain ...string) ([]string, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	d := domainOf(domain...)
	g, ok := rm.domains[d]
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

// GetDomains returns every domain bucket in which `name` appears as a node.
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

// GetAllDomains returns every domain bucket this manager knows about.
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
				if d == defaultDomain {
					lines = append(lines, r.name+" < "+p)
				} else {
					lines = append(lines, r.name+" < "+p+" ("+d+")")
				}
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

