package polyauthz

import "github.com/polyauthz/core/errs"

// This file supplements the management API with RBAC convenience helpers:
// thin wrappers over AddGroupingPolicy/RemoveGroupingPolicy and the role
// manager's own query methods, domain-qualified where the underlying
// grouping type carries a domain field.

// GetRolesForUser returns every role name directly assigned to user
// (non-transitive; transitive reachability is what HasRoleForUser checks).
func (e *CoreEnforcer) GetRolesForUser(user string, domain ...string) ([]string, error) {
	rm, ok := e.rmMap["g"]
	if !ok {
		return nil, errs.ErrRoleManagerNotFound
	}
	return rm.GetRoles(user, domain...)
}

// GetUsersForRole returns every user directly assigned role.
func (e *CoreEnforcer) GetUsersForRole(role string, domain ...string) ([]string, error) {
	rm, ok := e.rmMap["g"]
	if !ok {
		return nil, errs.ErrRoleManagerNotFound
	}
	return rm.GetUsers(role, domain...)
}

// HasRoleForUser reports whether user transitively has role, via the role
// graph's hasLink.
func (e *CoreEnforcer) HasRoleForUser(user, role string, domain ...string) (bool, error) {
	roles, err := e.GetRolesForUser(user, domain...)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	rm, ok := e.rmMap["g"]
	if !ok {
		return false, errs.ErrRoleManagerNotFound
	}
	return rm.HasLink(user, role, domain...)
}

// AddRoleForUser grants user the role via the default "g" grouping type.
func (e *CoreEnforcer) AddRoleForUser(user, role string, domain ...string) (bool, error) {
	return e.AddGroupingPolicy(ruleWithDomain(user, role, domain)...)
}

// DeleteRoleForUser revokes role from user.
func (e *CoreEnforcer) DeleteRoleForUser(user, role string, domain ...string) (bool, error) {
	return e.RemoveGroupingPolicy(ruleWithDomain(user, role, domain)...)
}

// DeleteRolesForUser revokes every role currently assigned to user.
func (e *CoreEnforcer) DeleteRolesForUser(user string, domain ...string) (bool, error) {
	fieldValues := []string{user}
	if len(domain) > 0 {
		fieldValues = append(fieldValues, "", domain[0])
	}
	return e.RemoveFilteredGroupingPolicy(0, fieldValues...)
}

// DeleteUser removes user both as a subject of "p" rules and as a member
// of any role.
func (e *CoreEnforcer) DeleteUser(user string) (bool, error) {
	removedRoles, err := e.RemoveFilteredGroupingPolicy(0, user)
	if err != nil {
		return false, err
	}
	removedPolicies, err := e.RemoveFilteredPolicy(0, user)
	if err != nil {
		return false, err
	}
	return removedRoles || removedPolicies, nil
}

// DeleteRole removes role both as a target of grouping rules and as a
// subject of "p" rules.
func (e *CoreEnforcer) DeleteRole(role string) (bool, error) {
	removedRoles, err := e.RemoveFilteredGroupingPolicy(1, role)
	if err != nil {
		return false, err
	}
	removedPolicies, err := e.RemoveFilteredPolicy(0, role)
	if err != nil {
		return false, err
	}
	return removedRoles || removedPolicies, nil
}

// DeletePermission removes every "p" rule granting the given object/action
// (and any trailing fields) to any subject.
func (e *CoreEnforcer) DeletePermission(permission ...string) (bool, error) {
	return e.RemoveFilteredPolicy(1, permission...)
}

// AddPermissionForUser grants subject the permission (object, action, ...)
// as a direct "p" rule.
func (e *CoreEnforcer) AddPermissionForUser(user string, permission ...string) (bool, error) {
	return e.AddPolicy(append([]string{user}, permission...)...)
}

// DeletePermissionForUser revokes a direct "p" rule granting subject the
// permission (object, action, ...).
func (e *CoreEnforcer) DeletePermissionForUser(user string, permission ...string) (bool, error) {
	return e.RemovePolicy(append([]string{user}, permission...)...)
}

// DeletePermissionsForUser revokes every direct "p" rule for subject.
func (e *CoreEnforcer) DeletePermissionsForUser(user string) (bool, error) {
	return e.RemoveFilteredPolicy(0, user)
}

// GetPermissionsForUser returns every direct "p" rule for subject.
func (e *CoreEnforcer) GetPermissionsForUser(user string) [][]string {
	return e.GetFilteredPolicy(0, user)
}

// HasPermissionForUser reports whether subject has the exact direct "p"
// rule (user, permission...).
func (e *CoreEnforcer) HasPermissionForUser(user string, permission ...string) bool {
	return e.HasPolicy(append([]string{user}, permission...)...)
}

func ruleWithDomain(user, role string, domain []string) []string {
	if len(domain) == 0 {
		return []string{user, role}
	}
	return []string{user, role, domain[0]}
}
