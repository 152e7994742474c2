// Package rbac defines the role-graph contract the enforcement core
// consults during matcher evaluation, and the registry of named managers
// keyed by grouping-type (g, g2, ...).
package rbac

import "github.com/polyauthz/core/log"

// MatchingFunc widens HasLink traversal: when installed, an edge a->x also
// satisfies a query for b whenever fn(x, b) is true. GetRoles and GetUsers
// list direct links only and are not widened. Used
// both for role-name pattern matching (e.g. keyMatch on role names) and, via
// AddDomainMatchingFunc, for domain pattern matching.
type MatchingFunc func(arg1, arg2 string) bool

// ConditionalFunc gates a specific edge during traversal. It is consulted
// with the parameter bag passed to HasLinkWithParams, or, when HasLink is
// called without one, with the bag stored for that edge via
// SetLinkConditionParams.
type ConditionalFunc func(params map[string]interface{}) bool

// RoleManager is the port the core's matcher evaluation and Model.BuildRoleLinks
// use. Multiple independent instances coexist, one per grouping-type name.
type RoleManager interface {
	Clear() error
	AddLink(name1 string, name2 string, domain ...string) error
	DeleteLink(name1 string, name2 string, domain ...string) error
	HasLink(name1 string, name2 string, domain ...string) (bool, error)
	GetRoles(name string, domain ...string) ([]string, error)
	GetUsers(name string, domain ...string) ([]string, error)
	GetDomains(name string) ([]string, error)
	GetAllDomains() ([]string, error)
	PrintRoles() error
	SetLogger(logger log.Logger)
	AddMatchingFunc(name string, fn MatchingFunc) bool
	AddDomainMatchingFunc(name string, fn MatchingFunc) bool
}

// ConditionalRoleManager is the superset interface implemented by role
// managers that also support conditional links. Not every RoleManager
// needs to support this, so it is kept as an optional extension interface
// rather than bloating RoleManager itself.
type ConditionalRoleManager interface {
	RoleManager
	AddLinkCondition(name1, name2 string, fn ConditionalFunc, domain ...string) error
	AddDomainLinkCondition(name1, name2, domain string, fn ConditionalFunc) error
	SetLinkConditionParams(name1, name2 string, domain string, params map[string]interface{})
	HasLinkWithParams(name1, name2 string, params map[string]interface{}, domain ...string) (bool, error)
}
