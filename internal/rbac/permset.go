package rbac

import "sort"

// PermissionSet is a flat, deduplicated collection of permission names.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from names, skipping empty entries.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether name is present. A nil set contains nothing.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// HasAny reports whether any of names is present.
func (s PermissionSet) HasAny(names ...string) bool {
	for _, name := range names {
		if s.Has(name) {
			return true
		}
	}
	return false
}

// Len returns the number of names in the set.
func (s PermissionSet) Len() int { return len(s) }

// Names returns the set members sorted alphabetically.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Union merges other into a new set.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	merged := make(PermissionSet, len(s)+len(other))
	for name := range s {
		merged[name] = struct{}{}
	}
	for name := range other {
		merged[name] = struct{}{}
	}
	return merged
}
