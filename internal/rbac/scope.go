package rbac

import "strings"

const (
	suffixAll = "_all"
	suffixOwn = "_own"
)

// Scope qualifies which records of a resource a permission applies to.
type Scope int

const (
	// ScopeUnscoped is a bare resource-action name such as clients_view.
	ScopeUnscoped Scope = iota
	// ScopeAll applies to every record of the resource.
	ScopeAll
	// ScopeOwn applies only to records owned by the acting user.
	ScopeOwn
)

// String returns the permission suffix for the scope.
func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeOwn:
		return "own"
	default:
		return "unscoped"
	}
}

// Apply appends the scope suffix to a base permission name.
func (s Scope) Apply(base string) string {
	switch s {
	case ScopeAll:
		return base + suffixAll
	case ScopeOwn:
		return base + suffixOwn
	default:
		return base
	}
}

// ParsePermission splits a permission name into its base and scope.
func ParsePermission(name string) (string, Scope) {
	switch {
	case len(name) > len(suffixAll) && strings.HasSuffix(name, suffixAll):
		return strings.TrimSuffix(name, suffixAll), ScopeAll
	case len(name) > len(suffixOwn) && strings.HasSuffix(name, suffixOwn):
		return strings.TrimSuffix(name, suffixOwn), ScopeOwn
	default:
		return name, ScopeUnscoped
	}
}

// BasePermission builds the unscoped {resource}_{action} name.
func BasePermission(resource, action string) string {
	return resource + "_" + action
}
