package rbac

import "strings"

// RouteLevelPermissionCheck gates a route on a permission name or a
// comma-separated list of alternatives.
//
// A grant in either scope satisfies a scoped request and the bare legacy name
// satisfies both. Handlers must still run the record-level decision.
func RouteLevelPermissionCheck(requested string, perms PermissionSet) bool {
	for _, alt := range strings.Split(requested, ",") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		if routeAllows(alt, perms) {
			return true
		}
	}
	return false
}

func routeAllows(name string, perms PermissionSet) bool {
	if perms.Has(name) {
		return true
	}
	base, scope := ParsePermission(name)
	switch scope {
	case ScopeAll:
		if perms.Has(ScopeOwn.Apply(base)) {
			return true
		}
	case ScopeOwn:
		if perms.Has(ScopeAll.Apply(base)) {
			return true
		}
	default:
		return false
	}
	return perms.Has(base)
}
